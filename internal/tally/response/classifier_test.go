package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkerClassifier(t *testing.T) {
	c := NewMarkerClassifier()
	long := strings.Repeat("x", 60)

	cases := []struct {
		name string
		body string
		want Result
	}{
		{"empty", "", Result{Error: MsgEmptyResponse}},
		{"created", "<RESPONSE><CREATED>1</CREATED><ERRORS>0</ERRORS></RESPONSE>", Result{Success: true}},
		{"altered", "<RESPONSE><ALTERED>1</ALTERED></RESPONSE>", Result{Success: true}},
		{"deleted", "<RESPONSE><DELETED>1</DELETED></RESPONSE>", Result{Success: true}},
		{"last voucher id", "<RESPONSE><LASTVCHID>42</LASTVCHID></RESPONSE>", Result{Success: true}},
		{"voucher word", "<ENVELOPE>VOUCHER</ENVELOPE>", Result{Success: true}},
		{"success wins over error", "<CREATED>1</CREATED><LINEERROR>ignored</LINEERROR>", Result{Success: true}},
		{"line error", "<RESPONSE><LINEERROR>  Ledger 'X' already exists  </LINEERROR></RESPONSE>", Result{Error: "Ledger 'X' already exists"}},
		{"line error without block", "<RESPONSE>LINEERROR</RESPONSE>" + long, Result{Error: MsgLineError}},
		{"line error before error", "<LINEERROR>first</LINEERROR><ERROR>second</ERROR>", Result{Error: "first"}},
		{"error block", "<RESPONSE><ERROR>Could not set 'SVCurrentCompany'</ERROR></RESPONSE>", Result{Error: "Could not set 'SVCurrentCompany'"}},
		{"empty error block", "<ERROR></ERROR>", Result{Error: MsgTallyError}},
		{"short", "<RESPONSE/>", Result{Error: MsgInvalidResponse}},
		{"unknown", "<RESPONSE>" + long + "</RESPONSE>", Result{Error: MsgUnknownResponse}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Classify(tc.body))
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound("Ledger 'Acme' does not exist!"))
	assert.True(t, IsNotFound("Voucher Not Found"))
	assert.False(t, IsNotFound("Ledger already exists"))
}
