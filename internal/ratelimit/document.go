package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/bizadmin/internal/config"
	"go.uber.org/zap"
)

const (
	keyDocumentExport = "invoice:export:owner:%s"
	keyDocumentSend   = "invoice:send:lock:%s:%s"

	sendLockTTL = 2 * time.Minute
)

// DocumentLimiter throttles document exports per owner and prevents the
// same invoice from being emailed twice concurrently. Without redis every
// call is allowed.
type DocumentLimiter struct {
	bucket *TokenBucket
	locker *Locker
	cfg    *config.InvoicingConfigHolder
	log    *zap.Logger
}

func NewDocumentLimiter(client *redis.Client, cfg *config.InvoicingConfigHolder, log *zap.Logger) *DocumentLimiter {
	if client == nil {
		return nil
	}
	return &DocumentLimiter{
		bucket: NewTokenBucket(client),
		locker: NewLocker(client),
		cfg:    cfg,
		log:    log.Named("ratelimit.document"),
	}
}

func (l *DocumentLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

// AllowExport takes one token from the owner's export bucket. Redis errors
// fail open.
func (l *DocumentLimiter) AllowExport(ctx context.Context, ownerID string) Result {
	if !l.Enabled() {
		return Result{Allowed: true}
	}

	exportCfg := config.DefaultInvoicingConfig().Export
	if l.cfg != nil {
		exportCfg = l.cfg.Get().Export
	}

	key := fmt.Sprintf(keyDocumentExport, strings.TrimSpace(ownerID))
	result, err := l.bucket.Take(ctx, key, Limit{Rate: exportCfg.RatePerSecond, Burst: exportCfg.Burst})
	if err != nil {
		l.log.Warn("export rate limit check failed", zap.String("owner_id", ownerID), zap.Error(err))
		return Result{Allowed: true, Limit: exportCfg.Burst}
	}
	return result
}

// AcquireSend locks an invoice for emailing. The returned release func is
// never nil.
func (l *DocumentLimiter) AcquireSend(ctx context.Context, ownerID, invoiceID string) (func(), bool) {
	noop := func() {}
	if l == nil || l.locker == nil {
		return noop, true
	}

	key := fmt.Sprintf(keyDocumentSend, strings.TrimSpace(ownerID), strings.TrimSpace(invoiceID))
	lock, err := l.locker.Acquire(ctx, key, sendLockTTL)
	switch {
	case errors.Is(err, ErrLockHeld):
		return noop, false
	case err != nil:
		l.log.Warn("send lock failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		return noop, true
	}

	return func() {
		if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
			l.log.Warn("send lock release failed", zap.String("invoice_id", invoiceID), zap.Error(err))
		}
	}, true
}
