package option

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/bizadmin/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type entry struct {
	ID        int64 `gorm:"primaryKey"`
	Amount    int
	CreatedAt time.Time
}

func setup(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:option_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entry{}))

	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, db.Create(&entry{ID: i, Amount: int(i) * 10, CreatedAt: base.Add(time.Duration(i) * time.Hour)}).Error)
	}
	return db
}

func TestApplyOperatorIgnoresUnsafeFields(t *testing.T) {
	db := setup(t)

	var rows []entry
	require.NoError(t, ApplyOperator(Condition{Field: "amount", Operator: GTE, Value: 30}).Apply(db.Model(&entry{})).Find(&rows).Error)
	assert.Len(t, rows, 3)

	rows = nil
	require.NoError(t, ApplyOperator(Condition{Field: "amount; DROP TABLE entries", Operator: EQ, Value: 1}).Apply(db.Model(&entry{})).Find(&rows).Error)
	assert.Len(t, rows, 5)
}

func TestApplyPaginationWalksPages(t *testing.T) {
	db := setup(t)

	page := func(token string) []entry {
		var rows []entry
		stmt := ApplyPagination(pagination.Pagination{PageToken: token, PageSize: 2}).Apply(db.Model(&entry{}))
		require.NoError(t, stmt.Order("created_at desc, id desc").Find(&rows).Error)
		return rows
	}

	first := page("")
	require.Len(t, first, 3)
	assert.Equal(t, int64(5), first[0].ID)

	token, err := pagination.EncodeCursor(pagination.NewCursor("4", first[1].CreatedAt))
	require.NoError(t, err)
	second := page(token)
	require.Len(t, second, 3)
	assert.Equal(t, int64(3), second[0].ID)

	assert.Len(t, page("not-a-token"), 3)
}
