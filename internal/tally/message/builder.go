package message

import (
	"bytes"
	"errors"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tallybridge/internal/clock"
)

const (
	DefaultParentGroup = "Sundry Debtors"
	DefaultVoucherType = "Sales"
	DefaultNarration   = "Sales Invoice"
	DefaultSalesLedger = "Sales"
)

var (
	ErrMissingLedgerName    = errors.New("missing_ledger_name")
	ErrMissingVoucherNumber = errors.New("missing_voucher_number")
	ErrMissingPartyLedger   = errors.New("missing_party_ledger")
)

// Ledger is the subset of a ledger record Tally needs. Empty strings are
// treated as absent and their blocks are left out of the envelope.
type Ledger struct {
	Name           string
	ParentGroup    string
	OpeningBalance decimal.Decimal
	Address        string
	State          string
	Pincode        string
	Mobile         string
	Email          string
	GSTNumber      string
	PANNumber      string
}

// Voucher is the subset of an invoice record Tally needs. A zero Date is
// replaced with the builder clock's current date.
type Voucher struct {
	VoucherType     string
	VoucherNumber   string
	Date            time.Time
	PartyLedgerName string
	TotalAmount     decimal.Decimal
	Narration       string
}

// Entry is one ALLLEDGERENTRIES.LIST line of a voucher.
type Entry struct {
	LedgerName     string
	DeemedPositive bool
	PartyLedger    bool
	Amount         decimal.Decimal
}

// Builder renders Tally request envelopes for one company.
type Builder struct {
	company      string
	salesAccount string
	clock        clock.Clock
	tpl          *template.Template
}

func NewBuilder(company, salesAccount string, clk clock.Clock) *Builder {
	if strings.TrimSpace(salesAccount) == "" {
		salesAccount = DefaultSalesLedger
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}

	funcs := template.FuncMap{
		"x":      Escape,
		"amount": FormatAmount,
		"yesNo":  yesNo,
	}
	tpl := template.New("tally").Funcs(funcs)
	for name, body := range map[string]string{
		"probe":          probeTemplate,
		"ledger_create":  ledgerCreateTemplate,
		"ledger_delete":  ledgerDeleteTemplate,
		"sales_ledger":   salesLedgerTemplate,
		"voucher_create": voucherCreateTemplate,
		"voucher_delete": voucherDeleteTemplate,
		"ledger_list":    ledgerListTemplate,
		"ledger_lookup":  ledgerLookupTemplate,
	} {
		template.Must(tpl.New(name).Parse(body))
	}

	return &Builder{
		company:      company,
		salesAccount: strings.TrimSpace(salesAccount),
		clock:        clk,
		tpl:          tpl,
	}
}

func (b *Builder) Company() string { return b.company }

func (b *Builder) SalesAccount() string { return b.salesAccount }

// Probe is the connectivity check envelope.
func (b *Builder) Probe() (string, error) {
	return b.render("probe", nil)
}

// LedgerCreate renders an All Masters import for one ledger.
func (b *Builder) LedgerCreate(l Ledger) (string, error) {
	name := strings.TrimSpace(l.Name)
	if name == "" {
		return "", ErrMissingLedgerName
	}
	parent := strings.TrimSpace(l.ParentGroup)
	if parent == "" {
		parent = DefaultParentGroup
	}

	return b.render("ledger_create", struct {
		Company        string
		Name           string
		Parent         string
		OpeningBalance string
		BalanceType    string
		Address        string
		State          string
		Pincode        string
		Mobile         string
		Email          string
		GSTNumber      string
		PANNumber      string
	}{
		Company:        b.company,
		Name:           name,
		Parent:         parent,
		OpeningBalance: FormatAmount(l.OpeningBalance.Abs()),
		BalanceType:    BalanceType(l.OpeningBalance),
		Address:        CleanAddress(l.Address),
		State:          strings.TrimSpace(l.State),
		Pincode:        strings.TrimSpace(l.Pincode),
		Mobile:         strings.TrimSpace(l.Mobile),
		Email:          strings.TrimSpace(l.Email),
		GSTNumber:      strings.TrimSpace(l.GSTNumber),
		PANNumber:      strings.TrimSpace(l.PANNumber),
	})
}

// LedgerDelete renders a delete action carrying only the ledger name.
func (b *Builder) LedgerDelete(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrMissingLedgerName
	}
	return b.render("ledger_delete", struct {
		Company string
		Name    string
	}{b.company, name})
}

// SalesLedger renders a ledger under the Sales Accounts group.
func (b *Builder) SalesLedger(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = b.salesAccount
	}
	return b.render("sales_ledger", struct {
		Company string
		Name    string
	}{b.company, name})
}

// Entries returns the two balanced lines of a voucher: the party is debited
// with the total and the sales account is credited with its negation.
func (b *Builder) Entries(v Voucher) []Entry {
	party := strings.TrimSpace(v.PartyLedgerName)
	return []Entry{
		{LedgerName: party, DeemedPositive: false, PartyLedger: true, Amount: v.TotalAmount},
		{LedgerName: b.salesAccount, DeemedPositive: true, PartyLedger: false, Amount: v.TotalAmount.Neg()},
	}
}

// VoucherCreate renders an accounting voucher import.
func (b *Builder) VoucherCreate(v Voucher) (string, error) {
	number := strings.TrimSpace(v.VoucherNumber)
	if number == "" {
		return "", ErrMissingVoucherNumber
	}
	party := strings.TrimSpace(v.PartyLedgerName)
	if party == "" {
		return "", ErrMissingPartyLedger
	}

	date := v.Date
	if date.IsZero() {
		date = b.clock.Now()
	}
	narration := strings.TrimSpace(v.Narration)
	if narration == "" {
		narration = DefaultNarration
	}

	return b.render("voucher_create", struct {
		Company         string
		VoucherType     string
		VoucherNumber   string
		Date            string
		Narration       string
		PartyLedgerName string
		Entries         []Entry
	}{
		Company:         b.company,
		VoucherType:     voucherType(v.VoucherType),
		VoucherNumber:   number,
		Date:            FormatDate(date),
		Narration:       narration,
		PartyLedgerName: party,
		Entries:         b.Entries(v),
	})
}

// VoucherDelete renders a delete action carrying only the voucher number.
func (b *Builder) VoucherDelete(voucherTypeName, number string) (string, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return "", ErrMissingVoucherNumber
	}
	return b.render("voucher_delete", struct {
		Company       string
		VoucherType   string
		VoucherNumber string
	}{b.company, voucherType(voucherTypeName), number})
}

// LedgerList requests every ledger of the company as a collection export.
func (b *Builder) LedgerList() (string, error) {
	return b.render("ledger_list", struct{ Company string }{b.company})
}

// LedgerLookup requests a single ledger by name.
func (b *Builder) LedgerLookup(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrMissingLedgerName
	}
	return b.render("ledger_lookup", struct {
		Company string
		Name    string
	}{b.company, name})
}

func (b *Builder) render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := b.tpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func voucherType(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultVoucherType
	}
	return value
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
