package repository

import (
	"context"

	"github.com/smallbiznis/bizadmin/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a generic gorm-backed store for simple owner-scoped rows.
// Filters are struct values; zero fields are ignored by gorm.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, row *T) error
	Update(ctx context.Context, id string, fields any) error
	DeleteWhere(ctx context.Context, query *T) (int64, error)
	Count(ctx context.Context, query *T) (int64, error)
	BatchCreate(ctx context.Context, rows []*T) error
}
