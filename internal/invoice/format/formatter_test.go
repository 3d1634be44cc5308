package format

import (
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatVoucherNumber(t *testing.T) {
	day := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)

	out, err := FormatVoucherNumber(DefaultVoucherNumberTemplate, day, 42)
	require.NoError(t, err)
	assert.Equal(t, "INV050124042", out)

	out, err = FormatVoucherNumber("S-{YYYY}-{SEQ}", day, 0)
	require.NoError(t, err)
	assert.Equal(t, "S-2024-0", out)

	_, err = FormatVoucherNumber("", day, 1)
	assert.Error(t, err)
	_, err = FormatVoucherNumber(DefaultVoucherNumberTemplate, day, -1)
	assert.Error(t, err)
	_, err = FormatVoucherNumber("INV{HH}", day, 1)
	assert.Error(t, err)
}

func TestGenerateVoucherNumber(t *testing.T) {
	day := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	re := regexp.MustCompile(`^INV311224\d{3}$`)

	rnd := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 50; i++ {
		assert.Regexp(t, re, GenerateVoucherNumber(day, rnd))
	}
	assert.Regexp(t, re, GenerateVoucherNumber(day, nil))
}
