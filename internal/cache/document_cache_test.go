package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDocumentKeyChangesWithUpdatedAt(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	first := DocumentKey("42", "pdf", at)
	second := DocumentKey("42", "pdf", at.Add(time.Millisecond))

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, first, DocumentKey("42", "html", at))
	assert.Contains(t, first, "invoice:document:42:pdf:")
}

func TestNilDocumentCacheIsAMiss(t *testing.T) {
	c := NewDocumentCache(nil, zap.NewNop())
	assert.Nil(t, c)

	body, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Nil(t, body)

	assert.NotPanics(t, func() {
		c.Set(context.Background(), "k", []byte("x"), time.Minute)
	})
}
