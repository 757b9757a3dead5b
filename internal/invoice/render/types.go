package render

import (
	"errors"
	"time"
)

var (
	ErrMissingInvoice = errors.New("render_missing_invoice")
	ErrMissingClient  = errors.New("render_missing_client")
)

// RenderInput is the deterministic input used for invoice rendering.
// Amounts are taken as given; the renderer never derives totals.
type RenderInput struct {
	Invoice *InvoiceView
	Client  *ClientView
	Company *CompanyView
	Items   []LineItemView
}

type InvoiceView struct {
	Number       string
	Date         time.Time
	VATPercent   float64
	IsPaid       bool
	TotalExclVAT *float64
	VATAmount    *float64
	TotalInclVAT *float64
}

type ClientView struct {
	Name      string
	Address   string
	KvKNumber string
	BTWNumber string
}

type CompanyView struct {
	CompanyName  string
	Address      string
	Phone        string
	Email        string
	KvKNumber    string
	BTWNumber    string
	IBAN         string
	VATDefault   float64
	PaymentTerms string
}

type LineItemView struct {
	ProjectNumber string
	Description   string
	Quantity      *float64
	UnitPrice     *float64
	Total         *float64
}

type Renderer interface {
	Compose(input RenderInput) (Document, error)
	RenderHTML(input RenderInput) (string, error)
}

// DefaultCompany is substituted when an owner has no company settings yet.
func DefaultCompany() CompanyView {
	return CompanyView{
		CompanyName:  "Your Company Name",
		Address:      "Your Company Address",
		Phone:        "Your Phone",
		Email:        "your.email@example.com",
		KvKNumber:    "KVK Number",
		BTWNumber:    "BTW Number",
		IBAN:         "NL00BANK0123456789",
		VATDefault:   21,
		PaymentTerms: "Betaling binnen 14 dagen na factuurdatum.",
	}
}
