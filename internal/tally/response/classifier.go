// Package response interprets the bodies the Tally listener sends back.
//
// Tally's response schema is not stable across releases, so classification is
// done by marker substrings rather than by parsing the XML structurally.
package response

import (
	"regexp"
	"strings"
)

const (
	MsgEmptyResponse   = "Empty response from Tally"
	MsgLineError       = "TDL Line error"
	MsgTallyError      = "Tally error"
	MsgInvalidResponse = "Invalid Tally response"
	MsgUnknownResponse = "Unknown Tally response"

	minPlausibleLength = 50
)

var (
	successMarkers = []string{
		"<CREATED>1</CREATED>",
		"<ALTERED>1</ALTERED>",
		"<DELETED>1</DELETED>",
		"<LASTVCHID>",
		"VOUCHER",
	}

	lineErrorPattern = regexp.MustCompile(`<LINEERROR>([\s\S]*?)</LINEERROR>`)
	errorPattern     = regexp.MustCompile(`<ERROR>([\s\S]*?)</ERROR>`)
)

// Result is the outcome of classifying one response body.
type Result struct {
	Success bool
	Error   string
}

// Classifier turns a raw response body into a Result.
type Classifier interface {
	Classify(body string) Result
}

// MarkerClassifier is the lenient substring based Classifier.
type MarkerClassifier struct{}

func NewMarkerClassifier() Classifier {
	return MarkerClassifier{}
}

func (MarkerClassifier) Classify(body string) Result {
	if body == "" {
		return Result{Error: MsgEmptyResponse}
	}

	for _, marker := range successMarkers {
		if strings.Contains(body, marker) {
			return Result{Success: true}
		}
	}

	if strings.Contains(body, "LINEERROR") {
		return Result{Error: extract(lineErrorPattern, body, MsgLineError)}
	}

	if strings.Contains(body, "<ERROR>") {
		return Result{Error: extract(errorPattern, body, MsgTallyError)}
	}

	if len(body) < minPlausibleLength {
		return Result{Error: MsgInvalidResponse}
	}

	return Result{Error: MsgUnknownResponse}
}

func extract(pattern *regexp.Regexp, body, fallback string) string {
	match := pattern.FindStringSubmatch(body)
	if len(match) < 2 {
		return fallback
	}
	msg := strings.TrimSpace(match[1])
	if msg == "" {
		return fallback
	}
	return msg
}

// IsNotFound reports whether a Tally message says the object is missing.
func IsNotFound(text string) bool {
	lowered := strings.ToLower(text)
	return strings.Contains(lowered, "does not exist") || strings.Contains(lowered, "not found")
}
