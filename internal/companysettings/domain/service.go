package domain

import (
	"context"
	"errors"
)

type UpsertRequest struct {
	CompanyName  string   `json:"company_name"`
	Address      string   `json:"address"`
	KvKNumber    string   `json:"kvk_number"`
	BTWNumber    string   `json:"btw_number"`
	IBAN         string   `json:"iban"`
	Phone        string   `json:"phone"`
	Email        string   `json:"email"`
	VATDefault   *float64 `json:"vat_default"`
	PaymentTerms string   `json:"payment_terms"`
}

type Service interface {
	// Get returns ErrNotFound when the owner has not saved settings yet.
	Get(ctx context.Context) (CompanySettings, error)
	Upsert(ctx context.Context, req UpsertRequest) (CompanySettings, error)
}

var (
	ErrInvalidOwner       = errors.New("invalid_owner")
	ErrInvalidCompanyName = errors.New("invalid_company_name")
	ErrInvalidVATDefault  = errors.New("invalid_vat_default")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrNotFound           = errors.New("not_found")
)
