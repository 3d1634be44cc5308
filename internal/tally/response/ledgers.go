package response

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const defaultParentGroup = "Sundry Debtors"

var (
	ledgerBlockPattern = regexp.MustCompile(`(?i)<LEDGER(?:\s[^>]*)?>([\s\S]*?)</LEDGER>`)
	namePattern        = regexp.MustCompile(`<NAME>([^<]+)</NAME>`)
	parentPattern      = regexp.MustCompile(`<PARENT[^>]*>([^<]+)</PARENT>`)
	openingPattern     = regexp.MustCompile(`<OPENINGBALANCE[^>]*>([^<]+)</OPENINGBALANCE>`)
	closingPattern     = regexp.MustCompile(`<CLOSINGBALANCE[^>]*>([^<]+)</CLOSINGBALANCE>`)
	noiseNameFragments = []string{"Tally", "Profit", "Loss"}
	xmlUnescaper       = strings.NewReplacer("&lt;", "<", "&gt;", ">", "&quot;", `"`, "&apos;", "'", "&amp;", "&")
)

// RemoteLedger is one ledger found in a Tally collection export.
type RemoteLedger struct {
	Name           string
	GUID           string
	Parent         string
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
}

// ParseLedgers extracts ledgers from a collection export. When no LEDGER
// blocks are present it falls back to bare NAME tags, skipping company and
// profit/loss noise that Tally emits alongside them.
func ParseLedgers(body string) []RemoteLedger {
	var out []RemoteLedger
	seen := map[string]bool{}

	for _, block := range ledgerBlockPattern.FindAllStringSubmatch(body, -1) {
		name := firstMatch(namePattern, block[0])
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		ledger := newRemoteLedger(name)
		if parent := firstMatch(parentPattern, block[1]); parent != "" {
			ledger.Parent = parent
		}
		ledger.OpeningBalance = parseAmount(firstMatch(openingPattern, block[1]))
		ledger.ClosingBalance = parseAmount(firstMatch(closingPattern, block[1]))
		out = append(out, ledger)
	}
	if len(out) > 0 {
		return out
	}

	for _, match := range namePattern.FindAllStringSubmatch(body, -1) {
		name := clean(match[1])
		if !plausibleName(name) || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, newRemoteLedger(name))
	}
	return out
}

// ContainsLedger reports whether a ledger lookup response mentions name.
func ContainsLedger(body, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if strings.Contains(body, "<LEDGERNAME>"+name+"</LEDGERNAME>") {
		return true
	}
	escaped := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(name)
	return strings.Contains(body, name) || strings.Contains(body, escaped)
}

func newRemoteLedger(name string) RemoteLedger {
	return RemoteLedger{
		Name:           name,
		GUID:           name,
		Parent:         defaultParentGroup,
		OpeningBalance: decimal.Zero,
		ClosingBalance: decimal.Zero,
	}
}

func plausibleName(name string) bool {
	if len(name) <= 1 {
		return false
	}
	for _, fragment := range noiseNameFragments {
		if strings.Contains(name, fragment) {
			return false
		}
	}
	return true
}

func firstMatch(pattern *regexp.Regexp, text string) string {
	match := pattern.FindStringSubmatch(text)
	if len(match) < 2 {
		return ""
	}
	return clean(match[1])
}

func clean(value string) string {
	return strings.TrimSpace(xmlUnescaper.Replace(value))
}

// parseAmount reads Tally balances, which may carry Dr/Cr suffixes or
// thousands separators. Unparseable values count as zero.
func parseAmount(raw string) decimal.Decimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero
	}
	negative := false
	upper := strings.ToUpper(raw)
	switch {
	case strings.HasSuffix(upper, "CR"):
		negative = true
		raw = strings.TrimSpace(raw[:len(raw)-2])
	case strings.HasSuffix(upper, "DR"):
		raw = strings.TrimSpace(raw[:len(raw)-2])
	}
	raw = strings.ReplaceAll(raw, ",", "")
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}
