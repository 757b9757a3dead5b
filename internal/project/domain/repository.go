package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	Update(ctx context.Context, db *gorm.DB, project *Project) error
	Delete(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID, at time.Time) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, ownerID, id snowflake.ID) (*Project, error)
	FindByIDs(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, ids []snowflake.ID) ([]*Project, error)
	List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, filter ListProjectFilter, page pagination.Pagination) ([]*Project, error)
	Count(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error)
	ClientExists(ctx context.Context, db *gorm.DB, ownerID, clientID snowflake.ID) (bool, error)
}
