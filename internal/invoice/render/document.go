package render

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/bizadmin/internal/invoice/format"
)

const (
	placeholder           = "-"
	fallbackCompanyName   = "Company Name"
	documentTitle         = "FACTUUR"
	metaHeading           = "FACTUURGEGEVENS"
	clientHeading         = "KLANTGEGEVENS"
	itemsHeading          = "FACTUURITEMS"
	paymentHeading        = "BETALINGSINFORMATIE"
	statusPaid            = "Betaald"
	statusOpen            = "Openstaand"
	defaultPaymentPattern = "Gelieve binnen %d dagen te voldoen op rekeningnummer %s onder vermelding van factuurnummer %s, ten name van %s."
)

// Columns of the line-item table, in output order.
var Columns = []string{"Project", "Omschrijving", "Uren", "Tarief", "Bedrag"}

// Document is the drawable page model of an invoice. Sections appear in
// field order; every string is already formatted.
type Document struct {
	Title   string
	Company Section
	Heading string
	Meta    Section
	Client  Section
	Items   ItemTable
	Totals  []TotalLine
	Payment Section
	Footer  string
}

type Section struct {
	Heading string
	Lines   []string
}

type ItemTable struct {
	Heading string
	Columns []string
	Rows    []ItemRow
}

type ItemRow struct {
	Project     string
	Description string
	Quantity    string
	UnitPrice   string
	Total       string
}

// Cells returns the row values in column order.
func (r ItemRow) Cells() []string {
	return []string{r.Project, r.Description, r.Quantity, r.UnitPrice, r.Total}
}

type TotalLine struct {
	Label    string
	Value    string
	Emphasis bool
}

// Compose builds the page model. A nil company is replaced by
// DefaultCompany; a nil invoice or client is a precondition violation.
func Compose(input RenderInput) (Document, error) {
	if input.Invoice == nil {
		return Document{}, ErrMissingInvoice
	}
	if input.Client == nil {
		return Document{}, ErrMissingClient
	}

	company := DefaultCompany()
	if input.Company != nil {
		company = *input.Company
	}
	inv := *input.Invoice
	companyName := strings.TrimSpace(company.CompanyName)
	if companyName == "" {
		companyName = fallbackCompanyName
	}

	doc := Document{
		Title:   "Factuur " + inv.Number,
		Company: companySection(companyName, company),
		Heading: documentTitle,
		Meta:    metaSection(inv),
		Client:  clientSection(*input.Client),
		Items: ItemTable{
			Heading: itemsHeading,
			Columns: Columns,
			Rows:    itemRows(input.Items),
		},
		Totals: []TotalLine{
			{Label: "Subtotaal:", Value: format.CurrencyPtr(inv.TotalExclVAT)},
			{Label: fmt.Sprintf("BTW (%s%%):", format.Number(inv.VATPercent)), Value: format.CurrencyPtr(inv.VATAmount)},
			{Label: "Totaal:", Value: format.CurrencyPtr(inv.TotalInclVAT), Emphasis: true},
		},
		Payment: Section{
			Heading: paymentHeading,
			Lines:   splitLines(paymentTerms(companyName, inv.Number, company)),
		},
		Footer: companyName,
	}
	return doc, nil
}

func companySection(name string, c CompanyView) Section {
	lines := splitLines(c.Address)
	lines = appendLabeled(lines, "Tel", c.Phone)
	lines = appendLabeled(lines, "Email", c.Email)
	lines = appendLabeled(lines, "KVK", c.KvKNumber)
	lines = appendLabeled(lines, "BTW", c.BTWNumber)
	lines = appendLabeled(lines, "IBAN", c.IBAN)
	return Section{Heading: name, Lines: lines}
}

func metaSection(inv InvoiceView) Section {
	status := statusOpen
	if inv.IsPaid {
		status = statusPaid
	}
	return Section{
		Heading: metaHeading,
		Lines: []string{
			"Factuurnummer: " + inv.Number,
			"Factuurdatum: " + format.Date(inv.Date),
			"Vervaldatum: " + format.Date(format.DueDate(inv.Date)),
			"Status: " + status,
		},
	}
}

func clientSection(c ClientView) Section {
	lines := []string{orPlaceholder(c.Name)}
	lines = append(lines, splitLines(c.Address)...)
	lines = appendLabeled(lines, "KVK", c.KvKNumber)
	lines = appendLabeled(lines, "BTW", c.BTWNumber)
	return Section{Heading: clientHeading, Lines: lines}
}

func itemRows(items []LineItemView) []ItemRow {
	rows := make([]ItemRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, ItemRow{
			Project:     orPlaceholder(item.ProjectNumber),
			Description: orPlaceholder(item.Description),
			Quantity:    format.NumberPtr(item.Quantity),
			UnitPrice:   format.CurrencyPtr(item.UnitPrice),
			Total:       format.CurrencyPtr(item.Total),
		})
	}
	return rows
}

func paymentTerms(companyName, invoiceNumber string, c CompanyView) string {
	if strings.TrimSpace(c.PaymentTerms) != "" {
		return c.PaymentTerms
	}
	return fmt.Sprintf(defaultPaymentPattern, format.PaymentTermDays, c.IBAN, invoiceNumber, companyName)
}

func appendLabeled(lines []string, label, value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return lines
	}
	return append(lines, label+": "+value)
}

func orPlaceholder(value string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

func splitLines(value string) []string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return strings.Split(value, "\n")
}
