package response

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const collectionExport = `<ENVELOPE>
 <BODY><DATA><COLLECTION>
  <LEDGER NAME="Acme Corp" RESERVEDNAME="">
   <NAME>Acme Corp</NAME>
   <PARENT TYPE="String">Sundry Debtors</PARENT>
   <OPENINGBALANCE TYPE="Amount">-500.00</OPENINGBALANCE>
   <CLOSINGBALANCE TYPE="Amount">1,250.00 Dr</CLOSINGBALANCE>
  </LEDGER>
  <LEDGER NAME="Tom &amp; Jerry">
   <NAME>Tom &amp; Jerry</NAME>
   <PARENT TYPE="String">Sundry Creditors</PARENT>
   <CLOSINGBALANCE TYPE="Amount">300 Cr</CLOSINGBALANCE>
  </LEDGER>
  <LEDGER NAME="Cash">
   <NAME>Cash</NAME>
  </LEDGER>
 </COLLECTION></DATA></BODY>
</ENVELOPE>`

func TestParseLedgersFromBlocks(t *testing.T) {
	ledgers := ParseLedgers(collectionExport)
	require.Len(t, ledgers, 3)

	assert.Equal(t, "Acme Corp", ledgers[0].Name)
	assert.Equal(t, "Acme Corp", ledgers[0].GUID)
	assert.Equal(t, "Sundry Debtors", ledgers[0].Parent)
	assert.True(t, decimal.NewFromInt(-500).Equal(ledgers[0].OpeningBalance))
	assert.True(t, decimal.NewFromInt(1250).Equal(ledgers[0].ClosingBalance))

	assert.Equal(t, "Tom & Jerry", ledgers[1].Name)
	assert.Equal(t, "Sundry Creditors", ledgers[1].Parent)
	assert.True(t, decimal.NewFromInt(-300).Equal(ledgers[1].ClosingBalance))

	assert.Equal(t, "Cash", ledgers[2].Name)
	assert.Equal(t, "Sundry Debtors", ledgers[2].Parent)
	assert.True(t, ledgers[2].ClosingBalance.IsZero())
}

func TestParseLedgersFallsBackToNames(t *testing.T) {
	body := `<ENVELOPE>
  <NAME>TallyPrime</NAME>
  <NAME>Profit &amp; Loss A/c</NAME>
  <NAME>X</NAME>
  <NAME>Acme Corp</NAME>
  <NAME>Globex</NAME>
  <NAME>Acme Corp</NAME>
</ENVELOPE>`

	ledgers := ParseLedgers(body)
	require.Len(t, ledgers, 2)
	assert.Equal(t, "Acme Corp", ledgers[0].Name)
	assert.Equal(t, "Globex", ledgers[1].Name)
}

func TestParseLedgersIgnoresLedgerNameTags(t *testing.T) {
	body := `<ENVELOPE><LEDGERNAME>Sales</LEDGERNAME><NAME>Sales</NAME></ENVELOPE>`
	ledgers := ParseLedgers(body)
	require.Len(t, ledgers, 1)
	assert.Equal(t, "Sales", ledgers[0].Name)
}

func TestParseLedgersEmpty(t *testing.T) {
	assert.Empty(t, ParseLedgers(""))
	assert.Empty(t, ParseLedgers("<ENVELOPE></ENVELOPE>"))
}

func TestContainsLedger(t *testing.T) {
	assert.True(t, ContainsLedger("<LEDGERNAME>Sales A/c</LEDGERNAME>", "Sales A/c"))
	assert.True(t, ContainsLedger(`<LEDGER NAME="Tom &amp; Jerry">`, "Tom & Jerry"))
	assert.False(t, ContainsLedger("<ENVELOPE></ENVELOPE>", "Sales"))
	assert.False(t, ContainsLedger("<ENVELOPE></ENVELOPE>", ""))
}
