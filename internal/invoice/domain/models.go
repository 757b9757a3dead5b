package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Invoice totals are a materialized view of the line items: they are written
// in the same transaction as the items and always equal ComputeTotals over
// them at the stored VAT percent.
type Invoice struct {
	ID            snowflake.ID   `gorm:"primaryKey" json:"id"`
	OwnerID       snowflake.ID   `gorm:"not null;uniqueIndex:ux_invoices_owner_number,priority:1" json:"owner_id"`
	ClientID      snowflake.ID   `gorm:"not null;index" json:"client_id"`
	InvoiceNumber string         `gorm:"not null;uniqueIndex:ux_invoices_owner_number,priority:2" json:"invoice_number"`
	InvoiceDate   datatypes.Date `gorm:"not null" json:"invoice_date"`
	VATPercent    float64        `gorm:"column:vat_percent;not null" json:"vat_percent"`
	IsPaid        bool           `gorm:"not null" json:"is_paid"`
	TotalExclVAT  float64        `gorm:"column:total_excl_vat;not null" json:"total_excl_vat"`
	VATAmount     float64        `gorm:"column:vat_amount;not null" json:"vat_amount"`
	TotalInclVAT  float64        `gorm:"column:total_incl_vat;not null" json:"total_incl_vat"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time      `gorm:"not null" json:"updated_at"`

	Client *ClientRef `gorm:"-" json:"client,omitempty"`
	Items  []LineItem `gorm:"-" json:"items,omitempty"`
}

func (Invoice) TableName() string { return "invoices" }

// Date returns the invoice date as a UTC midnight time.
func (i Invoice) Date() time.Time {
	return time.Time(i.InvoiceDate).UTC()
}

// LineItem is one billed row. Total is derived from Quantity × UnitPrice
// whenever the invoice is saved; Position keeps the entry order.
type LineItem struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OwnerID     snowflake.ID  `gorm:"not null;index" json:"owner_id"`
	InvoiceID   snowflake.ID  `gorm:"not null;index" json:"invoice_id"`
	ProjectID   *snowflake.ID `gorm:"index" json:"project_id,omitempty"`
	Description string        `json:"description"`
	Quantity    float64       `gorm:"not null" json:"quantity"`
	UnitPrice   float64       `gorm:"column:unit_price;not null" json:"unit_price"`
	Total       float64       `gorm:"not null" json:"total"`
	Position    int           `gorm:"not null" json:"position"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`

	Project *ProjectRef `gorm:"-" json:"project,omitempty"`
}

func (LineItem) TableName() string { return "invoice_items" }

type ClientRef struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}

type ProjectRef struct {
	ID            snowflake.ID `json:"id"`
	ProjectNumber string       `json:"project_number,omitempty"`
	Title         string       `json:"title"`
}

// InvoiceSequence hands out per-owner numbers for the {SEQ} template token.
type InvoiceSequence struct {
	OwnerID   snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	NextValue int64        `gorm:"not null"`
	UpdatedAt time.Time    `gorm:"not null"`
}

func (InvoiceSequence) TableName() string { return "invoice_sequences" }
