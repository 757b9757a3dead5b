package calc

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeTotals_SingleItem(t *testing.T) {
	totals := ComputeTotals([]Item{{Quantity: 80, UnitPrice: 43.75}}, 21)

	assert.Equal(t, 3500.0, totals.Subtotal)
	assert.Equal(t, 735.0, totals.VATAmount)
	assert.Equal(t, 4235.0, totals.Total)
}

func TestComputeTotals_MultipleItems(t *testing.T) {
	items := []Item{
		{Quantity: 1, UnitPrice: 1250},
		{Quantity: 1, UnitPrice: 3500},
		{Quantity: 50, UnitPrice: 50},
	}

	totals := ComputeTotals(items, 21)

	assert.Equal(t, 7250.0, totals.Subtotal)
	assert.Equal(t, 1522.5, totals.VATAmount)
	assert.Equal(t, 8772.5, totals.Total)
}

func TestComputeTotals_Empty(t *testing.T) {
	for _, vat := range []float64{0, 9, 21, 100} {
		assert.Equal(t, Totals{}, ComputeTotals(nil, vat))
		assert.Equal(t, Totals{}, ComputeTotals([]Item{}, vat))
	}
}

func TestComputeTotals_ZeroVAT(t *testing.T) {
	totals := ComputeTotals([]Item{{Quantity: 3, UnitPrice: 12.5}}, 0)

	assert.Equal(t, 37.5, totals.Subtotal)
	assert.Equal(t, 0.0, totals.VATAmount)
	assert.Equal(t, totals.Subtotal, totals.Total)
}

func TestComputeTotals_NegativeVATIsHonored(t *testing.T) {
	totals := ComputeTotals([]Item{{Quantity: 1, UnitPrice: 100}}, -10)

	assert.Equal(t, -10.0, totals.VATAmount)
	assert.Equal(t, 90.0, totals.Total)
	assert.Less(t, totals.Total, totals.Subtotal)
}

func TestComputeTotals_MalformedItemsCoerceToZero(t *testing.T) {
	items := []Item{
		{Quantity: ParseAmount("abc"), UnitPrice: 10},
		{Quantity: -4, UnitPrice: 10},
		{Quantity: 2, UnitPrice: -5},
		{Quantity: Amount(math.NaN()), UnitPrice: 10},
		{Quantity: Amount(math.Inf(1)), UnitPrice: 10},
		{Quantity: 2, UnitPrice: 10},
	}

	totals := ComputeTotals(items, 21)

	assert.Equal(t, 20.0, totals.Subtotal)
	assert.Equal(t, 4.2, totals.VATAmount)
}

func TestComputeTotals_TotalIsSubtotalPlusVAT(t *testing.T) {
	items := []Item{
		{Quantity: 0.1, UnitPrice: 0.2},
		{Quantity: 3.3, UnitPrice: 19.99},
		{Quantity: 7, UnitPrice: 0.07},
	}
	for _, vat := range []float64{0, 6, 9, 19.5, 21} {
		totals := ComputeTotals(items, vat)
		assert.Equal(t, totals.Subtotal+totals.VATAmount, totals.Total)

		var expected float64
		for _, item := range items {
			expected += float64(item.Quantity) * float64(item.UnitPrice)
		}
		assert.InDelta(t, expected, totals.Subtotal, 1e-9)
	}
}

func TestComputeTotals_Idempotent(t *testing.T) {
	items := []Item{{Quantity: 1.1, UnitPrice: 2.2}, {Quantity: 3.3, UnitPrice: 4.4}}

	first := ComputeTotals(items, 21)
	second := ComputeTotals(items, 21)

	assert.Equal(t, math.Float64bits(first.Subtotal), math.Float64bits(second.Subtotal))
	assert.Equal(t, math.Float64bits(first.VATAmount), math.Float64bits(second.VATAmount))
	assert.Equal(t, math.Float64bits(first.Total), math.Float64bits(second.Total))
}

func TestParseAmount(t *testing.T) {
	cases := map[string]Amount{
		"":      0,
		"abc":   0,
		"-3":    0,
		"NaN":   0,
		"Inf":   0,
		"12":    12,
		" 7.5 ": 7.5,
		"7,5":   7.5,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseAmount(raw), "input %q", raw)
	}
}

func TestAmount_UnmarshalJSONNeverFails(t *testing.T) {
	var payload struct {
		Items []Item `json:"items"`
	}
	raw := `{"items":[
		{"quantity":"abc","unit_price":10},
		{"quantity":-2,"unit_price":"12.50"},
		{"quantity":null,"unit_price":true},
		{"quantity":"4","unit_price":25}
	]}`

	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	require.Len(t, payload.Items, 4)

	assert.Equal(t, Amount(0), payload.Items[0].Quantity)
	assert.Equal(t, Amount(0), payload.Items[1].Quantity)
	assert.Equal(t, Amount(12.5), payload.Items[1].UnitPrice)
	assert.Equal(t, Amount(0), payload.Items[2].UnitPrice)
	assert.Equal(t, 100.0, ComputeTotals(payload.Items, 0).Subtotal)
}

func TestStorable(t *testing.T) {
	items := []Item{{Quantity: 80, UnitPrice: 43.75}}
	assert.True(t, Storable(items, ComputeTotals(items, 21)))
	assert.True(t, Storable(nil, ComputeTotals(nil, 21)))

	huge := []Item{{Quantity: ParseAmount("1e200"), UnitPrice: ParseAmount("1e200")}}
	totals := ComputeTotals(huge, 21)
	assert.True(t, math.IsInf(totals.Total, 1))
	assert.False(t, Storable(huge, totals))

	tooManyUnits := []Item{{Quantity: 10_000_000_000, UnitPrice: 0}}
	assert.False(t, Storable(tooManyUnits, ComputeTotals(tooManyUnits, 21)))

	lineTooLarge := []Item{{Quantity: 1_000_000, UnitPrice: 1_000_000}}
	assert.False(t, Storable(lineTooLarge, ComputeTotals(lineTooLarge, 0)))

	atLimit := []Item{{Quantity: 1, UnitPrice: MaxAmount}}
	assert.True(t, Storable(atLimit, ComputeTotals(atLimit, 0)))
	assert.False(t, Storable(atLimit, ComputeTotals(atLimit, 21)))
}
