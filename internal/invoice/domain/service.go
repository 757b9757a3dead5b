package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/invoice/calc"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
)

const DateLayout = "2006-01-02"

// LineItemInput is a line item as submitted by a form. Quantity and unit
// price decode leniently; any client-side total is ignored.
type LineItemInput struct {
	ProjectID   string      `json:"project_id"`
	Description string      `json:"description"`
	Quantity    calc.Amount `json:"quantity"`
	UnitPrice   calc.Amount `json:"unit_price"`
}

type CreateInvoiceRequest struct {
	ClientID string `json:"client_id"`
	// InvoiceNumber is generated from the configured template when blank.
	InvoiceNumber string `json:"invoice_number"`
	// InvoiceDate is YYYY-MM-DD; today when blank.
	InvoiceDate string `json:"invoice_date"`
	// VATPercent falls back to the company default, then 21.
	VATPercent *float64        `json:"vat_percent"`
	IsPaid     bool            `json:"is_paid"`
	Notes      string          `json:"notes"`
	Items      []LineItemInput `json:"items"`
}

// UpdateInvoiceRequest changes only the fields that are set. When Items is
// set the stored items are replaced wholesale.
type UpdateInvoiceRequest struct {
	ID            string           `json:"-"`
	ClientID      *string          `json:"client_id"`
	InvoiceNumber *string          `json:"invoice_number"`
	InvoiceDate   *string          `json:"invoice_date"`
	VATPercent    *float64         `json:"vat_percent"`
	IsPaid        *bool            `json:"is_paid"`
	Notes         *string          `json:"notes"`
	Items         *[]LineItemInput `json:"items"`
}

type ListInvoiceRequest struct {
	PageToken string
	PageSize  int32
	ClientID  string
	IsPaid    *bool
	DateFrom  *time.Time
	DateTo    *time.Time
}

type ListInvoiceFilter struct {
	ClientID snowflake.ID
	IsPaid   *bool
	DateFrom *time.Time
	DateTo   *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

type PreviewTotalsRequest struct {
	VATPercent float64     `json:"vat_percent"`
	Items      []calc.Item `json:"items"`
}

type PreviewTotalsResponse struct {
	calc.Totals
	LineTotals []float64 `json:"line_totals"`
}

type Service interface {
	Create(context.Context, CreateInvoiceRequest) (Invoice, error)
	Update(context.Context, UpdateInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (Invoice, error)
	List(context.Context, ListInvoiceRequest) (ListInvoiceResponse, error)
	MarkPaid(ctx context.Context, id string, paid bool) (Invoice, error)
	PreviewTotals(PreviewTotalsRequest) (PreviewTotalsResponse, error)
}

type DocumentFormat string

const (
	FormatPDF  DocumentFormat = "pdf"
	FormatHTML DocumentFormat = "html"
)

// ExportedDocument is a downloadable invoice document.
type ExportedDocument struct {
	Filename    string
	ContentType string
	Format      DocumentFormat
	Body        []byte
	// Fallback is set when a PDF was requested but HTML was produced.
	Fallback bool
}

type SendInvoiceRequest struct {
	ID      string `json:"-"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

type SendInvoiceResponse struct {
	To       string `json:"to"`
	Filename string `json:"filename"`
	Format   string `json:"format"`
}

type DocumentService interface {
	RenderHTML(ctx context.Context, id string) (string, error)
	Export(ctx context.Context, id string, format DocumentFormat) (ExportedDocument, error)
	Send(ctx context.Context, req SendInvoiceRequest) (SendInvoiceResponse, error)
}

var (
	ErrInvalidOwner         = errors.New("invalid_owner")
	ErrInvalidID            = errors.New("invalid_id")
	ErrInvalidClient        = errors.New("invalid_client")
	ErrClientNotFound       = errors.New("client_not_found")
	ErrInvalidProject       = errors.New("invalid_project")
	ErrInvalidInvoiceDate   = errors.New("invalid_invoice_date")
	ErrInvalidVATPercent    = errors.New("invalid_vat_percent")
	ErrInvalidInvoiceNumber = errors.New("invalid_invoice_number")
	ErrDuplicateNumber      = errors.New("duplicate_invoice_number")
	ErrInvalidFormat        = errors.New("invalid_format")
	ErrInvalidRecipient     = errors.New("invalid_recipient")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrSendInProgress       = errors.New("send_in_progress")
	ErrNotFound             = errors.New("not_found")
)
