// Package option holds composable gorm query modifiers used by repositories.
package option

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"gorm.io/gorm"
)

type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryFunc func(*gorm.DB) *gorm.DB

func (f queryFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

type Operator string

const (
	EQ   Operator = "="
	NEQ  Operator = "<>"
	GT   Operator = ">"
	GTE  Operator = ">="
	LT   Operator = "<"
	LTE  Operator = "<="
	LIKE Operator = "LIKE"
	IN   Operator = "IN"
)

var fieldRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

type Condition struct {
	Field    string
	Operator Operator
	Value    any
}

// ApplyOperator adds a WHERE clause for the condition. Unknown operators
// and field names that are not plain identifiers are ignored.
func ApplyOperator(cond Condition) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		if !fieldRe.MatchString(cond.Field) {
			return db
		}
		switch cond.Operator {
		case EQ, NEQ, GT, GTE, LT, LTE, LIKE:
			return db.Where(fmt.Sprintf("%s %s ?", cond.Field, cond.Operator), cond.Value)
		case IN:
			return db.Where(fmt.Sprintf("%s IN ?", cond.Field), cond.Value)
		default:
			return db
		}
	})
}

type QuerySortBy struct {
	SortBy  string
	OrderBy string
	Allow   map[string]bool
}

func WithQuerySortBy(sortBy, orderBy string, allow map[string]bool) QuerySortBy {
	return QuerySortBy{SortBy: sortBy, OrderBy: orderBy, Allow: allow}
}

// WithSortBy orders by an allowed column, falling back to newest first.
func WithSortBy(q QuerySortBy) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		field := strings.ToLower(strings.TrimSpace(q.SortBy))
		if field == "" || !q.Allow[field] || !fieldRe.MatchString(field) {
			return db.Order("created_at desc, id desc")
		}
		dir := "asc"
		if strings.EqualFold(strings.TrimSpace(q.OrderBy), "desc") {
			dir = "desc"
		}
		return db.Order(fmt.Sprintf("%s %s, id %s", field, dir, dir))
	})
}

// ApplyPagination applies keyset pagination on (created_at, id) and fetches
// one extra row so the caller can tell whether another page exists.
func ApplyPagination(page pagination.Pagination) QueryOption {
	return queryFunc(func(db *gorm.DB) *gorm.DB {
		size := int(pagination.NormalizeSize(int32(page.PageSize)))
		if page.PageToken == "" {
			return db.Limit(size + 1)
		}
		// An unreadable token restarts from the first page.
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return db.Limit(size + 1)
		}
		id, idErr := strconv.ParseInt(cursor.ID, 10, 64)
		createdAt, tsErr := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if idErr == nil && tsErr == nil {
			db = db.Where("(created_at < ? OR (created_at = ? AND id < ?))", createdAt, createdAt, id)
		}
		return db.Limit(size + 1)
	})
}
