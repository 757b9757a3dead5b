// Package pagination implements keyset paging over (created_at, id).
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 250
)

var ErrInvalidToken = errors.New("invalid page token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
}

// Cursor identifies the last row of a page. Rows strictly older than it
// form the next page.
type Cursor struct {
	ID        string `json:"id"`
	CreatedAt string `json:"created_at"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

func NewCursor(id string, createdAt time.Time) Cursor {
	return Cursor{ID: id, CreatedAt: createdAt.UTC().Format(time.RFC3339Nano)}
}

// EncodeCursor renders c as a URL-safe token.
func EncodeCursor(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(token string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, ErrInvalidToken
	}
	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil || c.ID == "" {
		return nil, ErrInvalidToken
	}
	return &c, nil
}

// NormalizeSize clamps a requested page size to [1, MaxPageSize], using
// DefaultPageSize when none was asked for.
func NormalizeSize(size int32) int32 {
	switch {
	case size <= 0:
		return DefaultPageSize
	case size > MaxPageSize:
		return MaxPageSize
	default:
		return size
	}
}

// Page trims the lookahead row a repository fetched beyond size and builds
// the page info from the last row kept.
func Page[T any](items []*T, size int32, cursor func(*T) Cursor) ([]*T, PageInfo) {
	if len(items) <= int(size) {
		return items, PageInfo{}
	}
	items = items[:size]
	token, err := EncodeCursor(cursor(items[len(items)-1]))
	if err != nil {
		return items, PageInfo{}
	}
	return items, PageInfo{NextPageToken: token, HasMore: true}
}
