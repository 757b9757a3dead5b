package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	// Update writes the header fields and all three totals.
	Update(ctx context.Context, db *gorm.DB, invoice *Invoice) error
	UpdatePaid(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, paid bool, at time.Time) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Invoice, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListInvoiceFilter, page pagination.Pagination) ([]*Invoice, error)
	NumberExists(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, number string, excludeID snowflake.ID) (bool, error)
	NextSequence(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, at time.Time) (int64, error)

	ClientRefs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]ClientRef, error)
	ProjectRefs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) (map[snowflake.ID]ProjectRef, error)
}
