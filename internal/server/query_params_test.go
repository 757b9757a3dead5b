package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryDate(t *testing.T) {
	from, err := queryDate("2023-05-01", false)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := queryDate(" 2023-05-31 ", true)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 5, 31, 23, 59, 59, 999999999, time.UTC), *to)

	exact, err := queryDate("2023-05-31T10:00:00Z", true)
	require.NoError(t, err)
	assert.Equal(t, 10, exact.Hour())

	unset, err := queryDate("", true)
	require.NoError(t, err)
	assert.Nil(t, unset)

	_, err = queryDate("31-05-2023", false)
	assert.ErrorIs(t, err, errInvalidDate)
}

func TestQueryBool(t *testing.T) {
	v, err := queryBool("true")
	require.NoError(t, err)
	assert.True(t, *v)

	v, err = queryBool("")
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = queryBool("maybe")
	assert.Error(t, err)
}
