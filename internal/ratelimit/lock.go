package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

// KEYS[1] lock key, ARGV[1] holder token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

var (
	// ErrLockHeld is returned when another holder owns the key.
	ErrLockHeld = errors.New("lock held")

	errNoLocker = errors.New("lock client not configured")
)

// Locker hands out single-instance redis locks.
type Locker struct {
	client *redis.Client
}

// Lock is a held key. Unlock is a no-op on a nil lock.
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// Acquire sets key to a fresh token for ttl unless it already exists.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (*Lock, error) {
	if l == nil || l.client == nil {
		return nil, errNoLocker
	}
	if key == "" || ttl <= 0 {
		return nil, errors.New("lock needs a key and a positive ttl")
	}

	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// Unlock deletes the key only while it still carries this lock's token, so an
// expired lock never removes a later holder's key.
func (k *Lock) Unlock(ctx context.Context) error {
	if k == nil || k.client == nil {
		return nil
	}
	return unlockScript.Run(ctx, k.client, []string{k.key}, k.token).Err()
}
