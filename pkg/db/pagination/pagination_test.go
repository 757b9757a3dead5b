package pagination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	id      string
	created time.Time
}

func rowCursor(r *row) Cursor { return NewCursor(r.id, r.created) }

func TestPageTrimsLookahead(t *testing.T) {
	base := time.Date(2023, 5, 17, 9, 0, 0, 0, time.UTC)
	rows := []*row{{"3", base}, {"2", base.Add(-time.Minute)}, {"1", base.Add(-2 * time.Minute)}}

	items, info := Page(rows, 2, rowCursor)
	require.Len(t, items, 2)
	assert.True(t, info.HasMore)

	c, err := DecodeCursor(info.NextPageToken)
	require.NoError(t, err)
	assert.Equal(t, "2", c.ID)
	assert.Equal(t, "2023-05-17T08:59:00Z", c.CreatedAt)

	items, info = Page(rows, 3, rowCursor)
	assert.Len(t, items, 3)
	assert.Equal(t, PageInfo{}, info)
}

func TestDecodeCursorRejectsGarbage(t *testing.T) {
	_, err := DecodeCursor("%%%")
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err := EncodeCursor(Cursor{CreatedAt: "2023-01-01T00:00:00Z"})
	require.NoError(t, err)
	_, err = DecodeCursor(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNormalizeSize(t *testing.T) {
	assert.Equal(t, int32(DefaultPageSize), NormalizeSize(0))
	assert.Equal(t, int32(MaxPageSize), NormalizeSize(1000))
	assert.Equal(t, int32(7), NormalizeSize(7))
}
