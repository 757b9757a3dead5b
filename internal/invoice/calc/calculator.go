// Package calc derives invoice totals from line items.
//
// Every function here is pure: no I/O, no shared state, and the same input
// always produces the same float64 output.
package calc

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Amount is a quantity or unit price as it arrives from a form or a stored
// row. Malformed values never fail decoding; they coerce to zero.
type Amount float64

// ParseAmount reads a decimal string. Empty, non-numeric, negative and
// non-finite inputs yield zero. A decimal comma is accepted.
func ParseAmount(raw string) Amount {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	if !strings.Contains(raw, ".") {
		raw = strings.Replace(raw, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return Amount(v).Coerce()
}

// Coerce returns the amount with NaN, infinities and negatives mapped to 0.
func (a Amount) Coerce() Amount {
	v := float64(a)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return a
}

// Float64 returns the coerced value.
func (a Amount) Float64() float64 {
	return float64(a.Coerce())
}

// UnmarshalJSON accepts numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			*a = 0
			return nil
		}
		*a = ParseAmount(s)
		return nil
	}
	v, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*a = 0
		return nil
	}
	*a = Amount(v).Coerce()
	return nil
}

// Item is the numeric part of a line item.
type Item struct {
	Quantity  Amount `json:"quantity"`
	UnitPrice Amount `json:"unit_price"`
}

// Totals are the derived invoice amounts.
type Totals struct {
	Subtotal  float64 `json:"total_excl_vat"`
	VATAmount float64 `json:"vat_amount"`
	Total     float64 `json:"total_incl_vat"`
}

// LineTotal is quantity × unit price after coercion. Any stored total is
// ignored.
func LineTotal(item Item) float64 {
	return item.Quantity.Float64() * item.UnitPrice.Float64()
}

// ComputeTotals sums the recomputed line totals in input order and applies
// the VAT percent. The percent is not clamped; a negative value lowers the
// total below the subtotal.
func ComputeTotals(items []Item, vatPercent float64) Totals {
	var subtotal float64
	for _, item := range items {
		subtotal += LineTotal(item)
	}

	vat := subtotal * vatPercent / 100
	return Totals{
		Subtotal:  subtotal,
		VATAmount: vat,
		Total:     subtotal + vat,
	}
}

// Largest values the storage columns hold: quantity is numeric(12,2), prices
// and every total numeric(14,2).
const (
	MaxQuantity = 9_999_999_999.99
	MaxAmount   = 999_999_999_999.99
)

// Storable reports whether items and the totals derived from them are finite
// and fit their columns. Callers persist or serialize only storable results.
func Storable(items []Item, t Totals) bool {
	for _, item := range items {
		if item.Quantity.Float64() > MaxQuantity || item.UnitPrice.Float64() > MaxAmount {
			return false
		}
		if !fits(LineTotal(item)) {
			return false
		}
	}
	return fits(t.Subtotal) && fits(t.VATAmount) && fits(t.Total)
}

func fits(v float64) bool {
	return !math.IsNaN(v) && math.Abs(v) <= MaxAmount
}
