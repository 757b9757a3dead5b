package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLimitIdleTTL(t *testing.T) {
	assert.Equal(t, 20*time.Second, Limit{Rate: 1, Burst: 10}.idleTTL())
	assert.Equal(t, time.Second, Limit{Rate: 100, Burst: 1}.idleTTL())
	assert.Equal(t, time.Second, Limit{Rate: 0, Burst: 10}.idleTTL())
}

func TestLimitResult(t *testing.T) {
	limit := Limit{Rate: 2, Burst: 10}

	allowed := limit.result(true, 4.6)
	assert.True(t, allowed.Allowed)
	assert.Equal(t, 4, allowed.Remaining)
	assert.Equal(t, 10, allowed.Limit)
	assert.Zero(t, allowed.RetryAfter)

	denied := limit.result(false, 0.5)
	assert.False(t, denied.Allowed)
	assert.Equal(t, 250*time.Millisecond, denied.RetryAfter)
}

func TestParseReply(t *testing.T) {
	ok, tokens, err := parseReply([]interface{}{int64(1), "2.5"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2.5, tokens)

	_, _, err = parseReply([]interface{}{int64(1)})
	assert.Error(t, err)
	_, _, err = parseReply([]interface{}{"1", "2"})
	assert.Error(t, err)
	_, _, err = parseReply([]interface{}{int64(0), "many"})
	assert.Error(t, err)
}

func TestTakeValidates(t *testing.T) {
	var b *TokenBucket
	_, err := b.Take(context.Background(), "k", Limit{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, errNoRedis)

	assert.Error(t, Limit{Rate: 1}.validate())
	assert.Error(t, Limit{Burst: 3}.validate())
}

func TestDisabledLimiterAllowsEverything(t *testing.T) {
	l := NewDocumentLimiter(nil, nil, zap.NewNop())
	require.Nil(t, l)
	assert.False(t, l.Enabled())

	assert.True(t, l.AllowExport(context.Background(), "1").Allowed)

	release, ok := l.AcquireSend(context.Background(), "1", "2")
	assert.True(t, ok)
	require.NotNil(t, release)
	release()
}

func TestLockerRequiresClient(t *testing.T) {
	var l *Locker
	lock, err := l.Acquire(context.Background(), "k", time.Second)
	assert.Nil(t, lock)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrLockHeld)
	assert.NoError(t, lock.Unlock(context.Background()))
}
