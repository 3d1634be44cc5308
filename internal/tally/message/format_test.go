package message

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeRoundTrip(t *testing.T) {
	unescape := strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
	inputs := []string{
		"plain",
		`& < > " '`,
		`Tom & Jerry's <"shop">`,
		"",
		"&&&<<<",
	}
	for _, in := range inputs {
		escaped := Escape(in)
		assert.NotContains(t, escaped, "<")
		assert.NotContains(t, escaped, `"`)
		assert.Equal(t, in, unescape.Replace(escaped))
	}
}

func TestCleanAddress(t *testing.T) {
	cases := map[string]string{
		"":                            "",
		"12 Main Road":                "12 Main Road",
		"12 Main Road\nPune":          "12 Main Road, Pune",
		"12 Main Road\r\n\r\nPune\r":  "12 Main Road, Pune",
		"  Shop 4,\n   Market   St  ": "Shop 4, Market St",
		"12 Main St\n\n\nPune":        "12 Main St, Pune",
		"12 Main St,\nPune":           "12 Main St, Pune",
		"\nFlat 2 , , Wing B,\n":      "Flat 2, Wing B",
		"Plot 7,Sector 3":             "Plot 7, Sector 3",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanAddress(in), "input %q", in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", FormatAmount(decimal.Zero))
	assert.Equal(t, "1250.50", FormatAmount(decimal.RequireFromString("1250.5")))
	assert.Equal(t, "-3.00", FormatAmount(decimal.NewFromInt(-3)))
	assert.Equal(t, "1000000.13", FormatAmount(decimal.RequireFromString("1000000.125")))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "5 Jan 2024", FormatDate(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "31 Dec 2023", FormatDate(time.Date(2023, 12, 31, 23, 0, 0, 0, time.UTC)))
}

func TestParseDate(t *testing.T) {
	for _, raw := range []string{"2024-01-05", "2024-01-05T00:00:00Z", "05-01-2024", "5 Jan 2024"} {
		got, err := ParseDate(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, "5 Jan 2024", FormatDate(got))
	}

	_, err := ParseDate("not a date")
	assert.ErrorIs(t, err, ErrInvalidDate)
	_, err = ParseDate("")
	assert.ErrorIs(t, err, ErrInvalidDate)
}
