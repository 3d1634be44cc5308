package format

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	seqPadRe = regexp.MustCompile(`\{SEQ(\d+)\}`)
)

// DefaultVoucherNumberTemplate renders e.g. INV050124042 for 5 Jan 2024.
const DefaultVoucherNumberTemplate = "INV{DD}{MM}{YY}{SEQ3}"

// FormatVoucherNumber formats a voucher number from a template, the voucher
// date and a sequence. It has no side effects.
func FormatVoucherNumber(
	template string,
	issuedAt time.Time,
	seq int64,
) (string, error) {

	if template == "" {
		return "", fmt.Errorf("voucher number template is empty")
	}

	if seq < 0 {
		return "", fmt.Errorf("invalid voucher sequence: %d", seq)
	}

	out := template

	// Date tokens
	out = strings.ReplaceAll(out, "{YYYY}", issuedAt.Format("2006"))
	out = strings.ReplaceAll(out, "{YY}", issuedAt.Format("06"))
	out = strings.ReplaceAll(out, "{MM}", issuedAt.Format("01"))
	out = strings.ReplaceAll(out, "{DD}", issuedAt.Format("02"))

	out = strings.ReplaceAll(out, "{SEQ}", strconv.FormatInt(seq, 10))

	out = seqPadRe.ReplaceAllStringFunc(out, func(m string) string {
		match := seqPadRe.FindStringSubmatch(m)
		if len(match) != 2 {
			return m
		}

		width, err := strconv.Atoi(match[1])
		if err != nil || width <= 0 {
			return m
		}

		return fmt.Sprintf("%0*d", width, seq)
	})

	if strings.Contains(out, "{") || strings.Contains(out, "}") {
		return "", fmt.Errorf("unresolved token in voucher format: %s", out)
	}

	return out, nil
}

// GenerateVoucherNumber renders the default template with a random
// three digit suffix.
func GenerateVoucherNumber(issuedAt time.Time, rnd *rand.Rand) string {
	var seq int64
	if rnd != nil {
		seq = rnd.Int64N(1000)
	} else {
		seq = rand.Int64N(1000)
	}
	out, _ := FormatVoucherNumber(DefaultVoucherNumberTemplate, issuedAt, seq)
	return out
}
