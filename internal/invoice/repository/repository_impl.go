package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/invoice/domain"
	"github.com/smallbiznis/bizadmin/pkg/db/option"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO invoices (
			id, owner_id, client_id, invoice_number, invoice_date, vat_percent, is_paid,
			total_excl_vat, vat_amount, total_incl_vat, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		invoice.ID,
		invoice.OwnerID,
		invoice.ClientID,
		invoice.InvoiceNumber,
		invoice.InvoiceDate,
		invoice.VATPercent,
		invoice.IsPaid,
		invoice.TotalExclVAT,
		invoice.VATAmount,
		invoice.TotalInclVAT,
		invoice.Notes,
		invoice.CreatedAt,
		invoice.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).Exec(
		`UPDATE invoices
		 SET client_id = ?, invoice_number = ?, invoice_date = ?, vat_percent = ?, is_paid = ?,
		     total_excl_vat = ?, vat_amount = ?, total_incl_vat = ?, notes = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		invoice.ClientID,
		invoice.InvoiceNumber,
		invoice.InvoiceDate,
		invoice.VATPercent,
		invoice.IsPaid,
		invoice.TotalExclVAT,
		invoice.VATAmount,
		invoice.TotalInclVAT,
		invoice.Notes,
		invoice.UpdatedAt,
		invoice.OwnerID,
		invoice.ID,
	).Error
}

func (r *repo) UpdatePaid(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, paid bool, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoices SET is_paid = ?, updated_at = ? WHERE owner_id = ? AND id = ?`,
		paid,
		at,
		ownerID,
		id,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (int64, error) {
	if err := db.WithContext(ctx).Exec(
		`DELETE FROM invoice_items WHERE owner_id = ? AND invoice_id = ?`,
		ownerID,
		id,
	).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(`DELETE FROM invoices WHERE owner_id = ? AND id = ?`, ownerID, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("owner_id = ? AND id = ?", ownerID, id).
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	return &invoice, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("owner_id = ?", ownerID)
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	if filter.IsPaid != nil {
		stmt = stmt.Where("is_paid = ?", *filter.IsPaid)
	}
	if filter.DateFrom != nil {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "invoice_date",
			Operator: option.GTE,
			Value:    datatypes.Date(*filter.DateFrom),
		}).Apply(stmt)
	}
	if filter.DateTo != nil {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "invoice_date",
			Operator: option.LTE,
			Value:    datatypes.Date(*filter.DateTo),
		}).Apply(stmt)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) NumberExists(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, number string, excludeID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM invoices WHERE owner_id = ? AND invoice_number = ? AND id <> ?`,
		ownerID,
		number,
		excludeID,
	).Scan(&count).Error
	return count > 0, err
}

// NextSequence increments the owner's counter in place so concurrent
// transactions serialize on the row, then reads the value it claimed.
func (r *repo) NextSequence(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE invoice_sequences SET next_value = next_value + 1, updated_at = ? WHERE owner_id = ?`,
		at,
		ownerID,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := db.WithContext(ctx).Exec(
			`INSERT INTO invoice_sequences (owner_id, next_value, updated_at) VALUES (?, ?, ?)`,
			ownerID,
			2,
			at,
		).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}

	var next int64
	if err := db.WithContext(ctx).Raw(
		`SELECT next_value FROM invoice_sequences WHERE owner_id = ?`,
		ownerID,
	).Scan(&next).Error; err != nil {
		return 0, err
	}
	return next - 1, nil
}

func (r *repo) ClientRefs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]domain.ClientRef, error) {
	out := make(map[snowflake.ID]domain.ClientRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.ClientRef
	err := db.WithContext(ctx).Raw(
		`SELECT id, name FROM clients WHERE owner_id = ? AND id IN ?`,
		ownerID,
		ids,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}

func (r *repo) ProjectRefs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]domain.ProjectRef, error) {
	out := make(map[snowflake.ID]domain.ProjectRef, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []domain.ProjectRef
	err := db.WithContext(ctx).Raw(
		`SELECT id, project_number, title FROM projects WHERE owner_id = ? AND id IN ?`,
		ownerID,
		ids,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.ID] = row
	}
	return out, nil
}
