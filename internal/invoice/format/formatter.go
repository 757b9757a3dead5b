package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultInvoiceNumberTemplate yields numbers like FY2023-01-007.
const DefaultInvoiceNumberTemplate = "FY{YYYY}-{MM}-{SEQ3}"

var (
	ErrEmptyTemplate   = errors.New("invoice number template is empty")
	ErrInvalidSequence = errors.New("invoice sequence must be positive")
	ErrUnknownToken    = errors.New("unknown token in invoice number template")
)

// FormatInvoiceNumber expands template for the given invoice date and
// sequence value. Supported tokens are {YYYY}, {YY}, {MM}, {DD}, {SEQ} and
// {SEQn}, the last zero-padding the sequence to n digits. Text outside
// braces is copied as is.
func FormatInvoiceNumber(template string, invoiceDate time.Time, seq int64) (string, error) {
	if strings.TrimSpace(template) == "" {
		return "", ErrEmptyTemplate
	}
	if seq <= 0 {
		return "", fmt.Errorf("%w: %d", ErrInvalidSequence, seq)
	}

	var b strings.Builder
	rest := template
	for {
		open := strings.IndexByte(rest, '{')
		literal := rest
		if open >= 0 {
			literal = rest[:open]
		}
		if strings.IndexByte(literal, '}') >= 0 {
			return "", fmt.Errorf("%w: stray '}' in %q", ErrUnknownToken, template)
		}
		if open < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("%w: unclosed '{' in %q", ErrUnknownToken, template)
		}

		b.WriteString(rest[:open])
		value, err := expandToken(rest[open+1:open+end], invoiceDate, seq)
		if err != nil {
			return "", err
		}
		b.WriteString(value)
		rest = rest[open+end+1:]
	}
}

// ValidateTemplate reports whether template expands and carries a sequence
// token, so that generated numbers differ between invoices.
func ValidateTemplate(template string) error {
	if _, err := FormatInvoiceNumber(template, time.Now(), 1); err != nil {
		return err
	}
	if !strings.Contains(template, "{SEQ") {
		return errors.New("invoice number template needs a {SEQ} token")
	}
	return nil
}

func expandToken(token string, date time.Time, seq int64) (string, error) {
	switch token {
	case "YYYY":
		return date.Format("2006"), nil
	case "YY":
		return date.Format("06"), nil
	case "MM":
		return date.Format("01"), nil
	case "DD":
		return date.Format("02"), nil
	case "SEQ":
		return strconv.FormatInt(seq, 10), nil
	}
	if width, ok := strings.CutPrefix(token, "SEQ"); ok {
		n, err := strconv.Atoi(width)
		if err == nil && n > 0 && n <= 12 {
			return fmt.Sprintf("%0*d", n, seq), nil
		}
	}
	return "", fmt.Errorf("%w: {%s}", ErrUnknownToken, token)
}
