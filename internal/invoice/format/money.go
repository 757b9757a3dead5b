package format

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	currencySymbol   = "€"
	thousandsSep     = "."
	decimalSep       = ","
	nonBreakingSpace = "\u00a0"
)

// Currency formats an amount the way nl-NL renders EUR: "€ 1.234,56".
// Two decimals are always shown; halves round away from zero. NaN and
// infinities render as zero.
func Currency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	d := decimal.NewFromFloat(amount).Round(2)
	negative := d.IsNegative()

	fixed := d.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(currencySymbol)
	b.WriteString(nonBreakingSpace)
	if negative {
		b.WriteByte('-')
	}
	b.WriteString(group(intPart))
	b.WriteString(decimalSep)
	b.WriteString(fracPart)
	return b.String()
}

// CurrencyPtr formats a nullable amount; nil renders as zero currency.
func CurrencyPtr(amount *float64) string {
	if amount == nil {
		return Currency(0)
	}
	return Currency(*amount)
}

// Number renders a plain number without locale grouping, e.g. 80 or 1.5.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// NumberPtr renders a nullable number; nil renders as 0.
func NumberPtr(v *float64) string {
	if v == nil {
		return "0"
	}
	return Number(*v)
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head := len(digits) % 3
	var b strings.Builder
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteString(thousandsSep)
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
