package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
)

// APIKey stores a hashed credential. The key resolves to the owner whose
// records it may touch and the role that bounds what it may do. Scopes are
// text[] on postgres and the array literal as text elsewhere.
type APIKey struct {
	ID               snowflake.ID   `gorm:"primaryKey"`
	OwnerID          snowflake.ID   `gorm:"column:owner_id;not null;uniqueIndex:ux_api_keys_owner_key_id,priority:1"`
	KeyID            string         `gorm:"column:key_id;type:text;not null;uniqueIndex:ux_api_keys_owner_key_id,priority:2"`
	Name             string         `gorm:"type:text;not null"`
	Role             string         `gorm:"type:text;not null"`
	Scopes           pq.StringArray `gorm:"type:text;not null"`
	KeyHash          string         `gorm:"column:key_hash;type:text;not null;uniqueIndex"`
	IsActive         bool           `gorm:"column:is_active;not null"`
	CreatedAt        time.Time      `gorm:"not null"`
	UpdatedAt        time.Time      `gorm:"not null"`
	LastUsedAt       *time.Time     `gorm:"column:last_used_at"`
	ExpiresAt        *time.Time     `gorm:"column:expires_at"`
	RotatedFromKeyID *string        `gorm:"column:rotated_from_key_id;type:text"`
}

// TableName sets the database table name.
func (APIKey) TableName() string { return "api_keys" }

// Usable reports whether the key may authenticate at the given time.
func (k *APIKey) Usable(now time.Time) bool {
	if k == nil || !k.IsActive {
		return false
	}
	return k.ExpiresAt == nil || now.Before(*k.ExpiresAt)
}
