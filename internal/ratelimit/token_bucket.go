package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// The bucket state lives in one hash per key. Time comes from the redis
// server so every API instance refills against the same clock. Lua numbers
// are truncated in replies, hence the remaining tokens travel as a string.
const tokenBucketScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local t = redis.call("TIME")
local now = t[1] * 1000 + math.floor(t[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local last = tonumber(state[2]) or now
local elapsed = math.max(0, now - last)
tokens = math.min(burst, tokens + elapsed / 1000 * rate)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tokens, "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, tostring(tokens)}
`

// Limit refills Rate tokens per second up to Burst.
type Limit struct {
	Rate  float64
	Burst int
}

func (l Limit) validate() error {
	if l.Rate <= 0 || math.IsNaN(l.Rate) {
		return fmt.Errorf("rate limit: rate must be positive, got %v", l.Rate)
	}
	if l.Burst <= 0 {
		return fmt.Errorf("rate limit: burst must be positive, got %d", l.Burst)
	}
	return nil
}

// idleTTL keeps an untouched bucket for two full refills; after that it
// would be full anyway.
func (l Limit) idleTTL() time.Duration {
	if l.validate() != nil {
		return time.Second
	}
	return max(time.Second, time.Duration(math.Ceil(2*float64(l.Burst)/l.Rate))*time.Second)
}

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

var errNoRedis = errors.New("rate limit: redis client not configured")

type TokenBucket struct {
	client *redis.Client
	script *redis.Script
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client, script: redis.NewScript(tokenBucketScript)}
}

// Take removes one token from the bucket at key.
func (b *TokenBucket) Take(ctx context.Context, key string, limit Limit) (Result, error) {
	if b == nil || b.client == nil {
		return Result{}, errNoRedis
	}
	if key == "" {
		return Result{}, errors.New("rate limit: empty key")
	}
	if err := limit.validate(); err != nil {
		return Result{}, err
	}

	reply, err := b.script.Run(ctx, b.client, []string{key}, limit.Rate, limit.Burst, limit.idleTTL().Milliseconds()).Slice()
	if err != nil {
		return Result{}, err
	}
	allowed, remaining, err := parseReply(reply)
	if err != nil {
		return Result{}, err
	}
	return limit.result(allowed, remaining), nil
}

func (l Limit) result(allowed bool, remaining float64) Result {
	res := Result{
		Allowed:   allowed,
		Limit:     l.Burst,
		Remaining: int(math.Floor(remaining)),
	}
	if !allowed {
		if missing := 1 - remaining; missing > 0 {
			res.RetryAfter = time.Duration(missing / l.Rate * float64(time.Second))
		}
	}
	return res
}

func parseReply(reply []interface{}) (bool, float64, error) {
	if len(reply) != 2 {
		return false, 0, fmt.Errorf("rate limit: unexpected reply length %d", len(reply))
	}
	flag, ok := reply[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("rate limit: unexpected allowed flag %T", reply[0])
	}
	raw, ok := reply[1].(string)
	if !ok {
		return false, 0, fmt.Errorf("rate limit: unexpected token count %T", reply[1])
	}
	tokens, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return false, 0, fmt.Errorf("rate limit: token count: %w", err)
	}
	return flag == 1, tokens, nil
}
