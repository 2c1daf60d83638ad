package utils

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func TestLineSubtotal(t *testing.T) {
	sub := LineSubtotal(dec(t, "3.50"), 2)
	assert.True(t, sub.Equal(dec(t, "7.00")), "got %s", sub)

	sub = LineSubtotal(dec(t, "1.99"), 3)
	assert.True(t, sub.Equal(dec(t, "5.97")), "got %s", sub)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, "2.35", Round2(dec(t, "2.345")).StringFixed(2))
	assert.Equal(t, "2.34", Round2(dec(t, "2.344")).StringFixed(2))
	assert.Equal(t, "5.00", Round2(dec(t, "5")).StringFixed(2))
}

func TestSumSubtotals(t *testing.T) {
	total := SumSubtotals([]decimal.Decimal{
		dec(t, "7.00"),
		dec(t, "5.97"),
		dec(t, "0.03"),
	})
	assert.Equal(t, "13.00", total.StringFixed(2))

	assert.True(t, SumSubtotals(nil).IsZero())
}
