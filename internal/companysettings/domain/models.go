package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// DefaultVATPercent applies when an owner has not chosen a VAT default.
const DefaultVATPercent = 21.0

// CompanySettings is the owner's own business identity printed on invoices.
// There is at most one row per owner.
type CompanySettings struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	OwnerID      snowflake.ID `gorm:"not null;uniqueIndex" json:"owner_id"`
	CompanyName  string       `json:"company_name"`
	Address      string       `json:"address,omitempty"`
	KvKNumber    string       `gorm:"column:kvk_number" json:"kvk_number,omitempty"`
	BTWNumber    string       `gorm:"column:btw_number" json:"btw_number,omitempty"`
	IBAN         string       `gorm:"column:iban" json:"iban,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Email        string       `json:"email,omitempty"`
	VATDefault   float64      `gorm:"column:vat_default;not null" json:"vat_default"`
	PaymentTerms string       `json:"payment_terms,omitempty"`
	CreatedAt    time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt    time.Time    `gorm:"not null" json:"updated_at"`
}

func (CompanySettings) TableName() string { return "company_settings" }
