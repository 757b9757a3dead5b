package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, client *Client) error
	Update(ctx context.Context, db *gorm.DB, client *Client) error
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Client, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListClientFilter, page pagination.Pagination) ([]*Client, error)
	Count(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error)
	// DeleteCascade removes the client with its projects, invoices and line items.
	DeleteCascade(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (int64, error)
}
