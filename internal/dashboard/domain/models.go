package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RecentInvoiceLimit = 5
	UpcomingLimit      = 5
	TopClientLimit     = 5
	RevenueMonths      = 6
)

type Service interface {
	Summary(ctx context.Context) (Summary, error)
}

// Summary is the landing-page overview for one owner.
type Summary struct {
	ClientCount        int64   `json:"client_count"`
	ProjectCount       int64   `json:"project_count"`
	InvoiceCount       int64   `json:"invoice_count"`
	HasCompanySettings bool    `json:"has_company_settings"`
	TotalRevenue       float64 `json:"total_revenue"`
	OutstandingAmount  float64 `json:"outstanding_amount"`
	OverdueAmount      float64 `json:"overdue_amount"`

	RecentInvoices   []InvoiceSummary  `json:"recent_invoices"`
	UpcomingPayments []UpcomingPayment `json:"upcoming_payments"`
	MonthlyRevenue   []MonthRevenue    `json:"monthly_revenue"`
	TopClients       []ClientRevenue   `json:"top_clients"`
}

type InvoiceSummary struct {
	ID            snowflake.ID `json:"id"`
	InvoiceNumber string       `json:"invoice_number"`
	InvoiceDate   time.Time    `json:"invoice_date"`
	ClientID      snowflake.ID `json:"client_id"`
	ClientName    string       `json:"client_name"`
	TotalInclVAT  float64      `json:"total_incl_vat"`
	IsPaid        bool         `json:"is_paid"`
}

type UpcomingPayment struct {
	InvoiceSummary
	DueDate time.Time `json:"due_date"`
	// DaysUntilDue is negative once the invoice is overdue.
	DaysUntilDue int  `json:"days_until_due"`
	Overdue      bool `json:"overdue"`
}

type MonthRevenue struct {
	Month   string  `json:"month"`
	Revenue float64 `json:"revenue"`
}

type ClientRevenue struct {
	ClientID     snowflake.ID `json:"client_id"`
	Name         string       `json:"name"`
	Revenue      float64      `json:"revenue"`
	InvoiceCount int64        `json:"invoice_count"`
}

var ErrInvalidOwner = errors.New("invalid_owner")
