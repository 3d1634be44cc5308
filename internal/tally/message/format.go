package message

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const tallyDateLayout = "2 Jan 2006"

var (
	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)

	lineBreakPattern  = regexp.MustCompile(`\r?\n|\r`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	separatorPattern  = regexp.MustCompile(`(\s*,\s*)+`)

	inputDateLayouts = []string{
		"2006-01-02",
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"02-01-2006",
		tallyDateLayout,
	}

	ErrInvalidDate = errors.New("invalid_date")
)

// Escape replaces the five XML special characters with their entities.
func Escape(value string) string {
	return escaper.Replace(value)
}

// CleanAddress flattens a multi-line address into one line. Line breaks
// become ", " and runs of separators collapse into one.
func CleanAddress(address string) string {
	if address == "" {
		return ""
	}
	out := lineBreakPattern.ReplaceAllString(address, ", ")
	out = whitespacePattern.ReplaceAllString(out, " ")
	out = separatorPattern.ReplaceAllString(out, ", ")
	return strings.Trim(out, ", ")
}

// FormatAmount renders an amount with exactly two decimals, e.g. "1250.50".
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

// BalanceType derives the Dr/Cr flag from the sign of an amount.
func BalanceType(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "Cr"
	}
	return "Dr"
}

// FormatDate renders a date the way Tally expects it, e.g. "5 Jan 2024".
func FormatDate(t time.Time) string {
	return t.Format(tallyDateLayout)
}

// ParseDate accepts the date shapes the API receives.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range inputDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, ErrInvalidDate
}
