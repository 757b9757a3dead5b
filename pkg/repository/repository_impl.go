package repository

import (
	"context"
	"errors"
	"reflect"

	"github.com/smallbiznis/bizadmin/pkg/db/option"
	"gorm.io/gorm"
)

var ErrUnscopedDelete = errors.New("repository: refusing unscoped delete")

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var rows []*T
	if err := s.query(ctx, query, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOne returns nil, nil when nothing matches.
func (s *store[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	row := new(T)
	err := s.query(ctx, query, opts).Take(row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	return row, nil
}

func (s *store[T]) Create(ctx context.Context, row *T) error {
	return s.db.WithContext(ctx).Create(row).Error
}

// Update applies fields, a struct or a map, to the row with the given id.
// Pass a map to write zero values.
func (s *store[T]) Update(ctx context.Context, id string, fields any) error {
	return s.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields).Error
}

// DeleteWhere removes every row matching the non-zero fields of query. An
// all-zero query is refused so a missing filter never wipes a table.
func (s *store[T]) DeleteWhere(ctx context.Context, query *T) (int64, error) {
	if query == nil || reflect.ValueOf(query).Elem().IsZero() {
		return 0, ErrUnscopedDelete
	}
	res := s.db.WithContext(ctx).Where(query).Delete(new(T))
	return res.RowsAffected, res.Error
}

func (s *store[T]) Count(ctx context.Context, query *T) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(new(T)).Where(query).Count(&n).Error
	return n, err
}

func (s *store[T]) BatchCreate(ctx context.Context, rows []*T) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(rows).Error
}

func (s *store[T]) query(ctx context.Context, filter *T, opts []option.QueryOption) *gorm.DB {
	db := s.db.WithContext(ctx).Where(filter)
	for _, opt := range opts {
		db = opt.Apply(db)
	}
	return db
}
