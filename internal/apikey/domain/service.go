package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleAdmin      = "admin"
	RoleBookkeeper = "bookkeeper"
	RoleViewer     = "viewer"
)

// Roles lists the roles a key may carry, most privileged first.
var Roles = []string{RoleAdmin, RoleBookkeeper, RoleViewer}

func ValidRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}

type Service interface {
	List(ctx context.Context) ([]Response, error)
	Create(ctx context.Context, req CreateRequest) (*SecretResponse, error)
	Rotate(ctx context.Context, keyID string) (*SecretResponse, error)
	Revoke(ctx context.Context, keyID string) error

	// Authenticate resolves a raw key to its principal.
	Authenticate(ctx context.Context, raw string) (*Principal, error)
	// EnsureKey registers a caller-supplied key for an owner when its hash
	// is not stored yet.
	EnsureKey(ctx context.Context, ownerID snowflake.ID, raw, name, role string) error
}

type CreateRequest struct {
	Name   string   `json:"name"`
	Role   string   `json:"role"`
	Scopes []string `json:"scopes"`
}

type Principal struct {
	OwnerID snowflake.ID
	KeyID   string
	Role    string
	Scopes  []string
}

type Response struct {
	KeyID            string     `json:"key_id"`
	Name             string     `json:"name"`
	Role             string     `json:"role"`
	Scopes           []string   `json:"scopes"`
	IsActive         bool       `json:"is_active"`
	CreatedAt        time.Time  `json:"created_at"`
	LastUsedAt       *time.Time `json:"last_used_at"`
	ExpiresAt        *time.Time `json:"expires_at"`
	RotatedFromKeyID *string    `json:"rotated_from_key_id"`
}

type SecretResponse struct {
	KeyID  string `json:"key_id"`
	APIKey string `json:"api_key"`
}

var (
	ErrInvalidOwner = errors.New("invalid_owner")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidRole  = errors.New("invalid_role")
	ErrInvalidKeyID = errors.New("invalid_key_id")
	ErrInvalidKey   = errors.New("invalid_api_key")
	ErrNotFound     = errors.New("not_found")
)
