package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/bizadmin/internal/apikey/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() apikeydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).Create(key).Error
}

// Update rewrites the mutable columns of the key identified by
// (owner_id, key_id). Select forces zero values such as is_active=false.
func (r *repo) Update(ctx context.Context, db *gorm.DB, key *apikeydomain.APIKey) error {
	return db.WithContext(ctx).
		Model(&apikeydomain.APIKey{}).
		Where("owner_id = ? AND key_id = ?", key.OwnerID, key.KeyID).
		Select("name", "role", "scopes", "key_hash", "is_active", "updated_at", "last_used_at", "expires_at", "rotated_from_key_id").
		Updates(key).Error
}

func (r *repo) FindByKeyID(ctx context.Context, db *gorm.DB, ownerID snowflake.ID, keyID string) (*apikeydomain.APIKey, error) {
	return first(db.WithContext(ctx).Where("owner_id = ? AND key_id = ?", ownerID, keyID))
}

// FindByHash is the authentication lookup; it is not owner scoped because
// the owner is what the key resolves to.
func (r *repo) FindByHash(ctx context.Context, db *gorm.DB, hash string) (*apikeydomain.APIKey, error) {
	return first(db.WithContext(ctx).Where("key_hash = ?", hash))
}

func (r *repo) TouchLastUsed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&apikeydomain.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]apikeydomain.APIKey, error) {
	var keys []apikeydomain.APIKey
	err := db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at desc, id desc").
		Find(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func first(stmt *gorm.DB) (*apikeydomain.APIKey, error) {
	var key apikeydomain.APIKey
	err := stmt.Take(&key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}
