package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/client/domain"
	"github.com/smallbiznis/bizadmin/pkg/db/option"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO clients (id, owner_id, name, email, phone, address, kvk_number, btw_number, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		client.ID,
		client.OwnerID,
		client.Name,
		client.Email,
		client.Phone,
		client.Address,
		client.KvKNumber,
		client.BTWNumber,
		client.CreatedAt,
		client.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, client *domain.Client) error {
	return db.WithContext(ctx).Exec(
		`UPDATE clients
		 SET name = ?, email = ?, phone = ?, address = ?, kvk_number = ?, btw_number = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		client.Name,
		client.Email,
		client.Phone,
		client.Address,
		client.KvKNumber,
		client.BTWNumber,
		client.UpdatedAt,
		client.OwnerID,
		client.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Client, error) {
	var client domain.Client
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, name, email, phone, address, kvk_number, btw_number, created_at, updated_at
		 FROM clients WHERE owner_id = ? AND id = ?`,
		ownerID,
		id,
	).Scan(&client).Error
	if err != nil {
		return nil, err
	}
	if client.ID == 0 {
		return nil, nil
	}
	return &client, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListClientFilter, page pagination.Pagination) ([]*domain.Client, error) {
	var clients []*domain.Client
	stmt := db.WithContext(ctx).
		Model(&domain.Client{}).
		Where("owner_id = ?", ownerID)
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Email != "" {
		stmt = stmt.Where("email = ?", filter.Email)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&clients).Error
	if err != nil {
		return nil, err
	}
	return clients, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Client{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

func (r *repo) DeleteCascade(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (int64, error) {
	stmts := []string{
		`DELETE FROM invoice_items
		 WHERE invoice_id IN (SELECT id FROM invoices WHERE owner_id = ? AND client_id = ?)`,
		`DELETE FROM invoices WHERE owner_id = ? AND client_id = ?`,
		`DELETE FROM projects WHERE owner_id = ? AND client_id = ?`,
	}
	for _, stmt := range stmts {
		if err := db.WithContext(ctx).Exec(stmt, ownerID, id).Error; err != nil {
			return 0, err
		}
	}
	res := db.WithContext(ctx).Exec(`DELETE FROM clients WHERE owner_id = ? AND id = ?`, ownerID, id)
	return res.RowsAffected, res.Error
}
