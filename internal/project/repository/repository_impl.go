package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/internal/project/domain"
	"github.com/smallbiznis/bizadmin/pkg/db/option"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO projects (id, owner_id, client_id, project_number, title, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.OwnerID,
		project.ClientID,
		project.ProjectNumber,
		project.Title,
		project.Description,
		project.CreatedAt,
		project.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, project *domain.Project) error {
	return db.WithContext(ctx).Exec(
		`UPDATE projects
		 SET client_id = ?, project_number = ?, title = ?, description = ?, updated_at = ?
		 WHERE owner_id = ? AND id = ?`,
		project.ClientID,
		project.ProjectNumber,
		project.Title,
		project.Description,
		project.UpdatedAt,
		project.OwnerID,
		project.ID,
	).Error
}

// Delete detaches line items from the project before removing it. Invoices
// that billed the project are touched at `at` so cached documents rebuild
// without the project number.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, at time.Time) (int64, error) {
	if err := db.WithContext(ctx).Exec(
		`UPDATE invoices SET updated_at = ?
		 WHERE owner_id = ? AND id IN (
		   SELECT invoice_id FROM invoice_items WHERE owner_id = ? AND project_id = ?
		 )`,
		at,
		ownerID,
		ownerID,
		id,
	).Error; err != nil {
		return 0, err
	}
	if err := db.WithContext(ctx).Exec(
		`UPDATE invoice_items SET project_id = NULL WHERE owner_id = ? AND project_id = ?`,
		ownerID,
		id,
	).Error; err != nil {
		return 0, err
	}
	res := db.WithContext(ctx).Exec(`DELETE FROM projects WHERE owner_id = ? AND id = ?`, ownerID, id)
	return res.RowsAffected, res.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*domain.Project, error) {
	var project domain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT id, owner_id, client_id, project_number, title, description, created_at, updated_at
		 FROM projects WHERE owner_id = ? AND id = ?`,
		ownerID,
		id,
	).Scan(&project).Error
	if err != nil {
		return nil, err
	}
	if project.ID == 0 {
		return nil, nil
	}
	return &project, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) ([]*domain.Project, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var projects []*domain.Project
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("owner_id = ?", ownerID).
		Where("id IN ?", ids).
		Find(&projects).Error
	return projects, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter domain.ListProjectFilter, page pagination.Pagination) ([]*domain.Project, error) {
	var projects []*domain.Project
	stmt := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("owner_id = ?", ownerID)
	if filter.ClientID != 0 {
		stmt = stmt.Where("client_id = ?", filter.ClientID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Project{}).Where("owner_id = ?", ownerID).Count(&count).Error
	return count, err
}

func (r *repo) ClientExists(ctx context.Context, db *gorm.DB, ownerID, clientID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM clients WHERE owner_id = ? AND id = ?`,
		ownerID,
		clientID,
	).Scan(&count).Error
	return count > 0, err
}
