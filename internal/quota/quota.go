// quota.go - atomic weekly per-client image quota, backed by Lua scripts and
// an ISO-week TTL rule.

package quota

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/toonslate/toonslate-backend/internal/store"
)

// ErrInvalidAmount is returned when n <= 0 is passed to Reserve or Refund.
var ErrInvalidAmount = errors.New("quota: amount must be positive")

// ErrQuotaExceeded is returned by Reserve when consuming n would exceed the
// weekly limit. The counter is left untouched.
var ErrQuotaExceeded = errors.New("quota: weekly limit exceeded")

const keyPrefix = "usage:images"

// consumeScript atomically checks current+n against limit, and only on
// success increments and (re)sets the TTL to the caller-supplied seconds.
// Returns -1 (without mutating anything) when the reservation would exceed
// the limit, otherwise the new counter value.
const consumeScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local n = tonumber(ARGV[1])
local limit = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])
if current + n > limit then
	return -1
end
local newval = redis.call('INCRBY', KEYS[1], n)
redis.call('EXPIRE', KEYS[1], ttl)
return newval
`

// refundScript atomically decrements by n, clamped at zero, preserving TTL.
const refundScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local n = tonumber(ARGV[1])
local newval = current - n
if newval < 0 then
	newval = 0
end
redis.call('SET', KEYS[1], newval, 'KEEPTTL')
return newval
`

// Engine enforces the weekly per-client-IP image quota.
type Engine struct {
	client *store.Client
	secret string
	limit  int
}

// New builds a quota Engine. secret salts the IP hash so that raw client IPs
// never appear in key names; limit is the weekly image ceiling.
func New(client *store.Client, secret string, limit int) *Engine {
	return &Engine{client: client, secret: secret, limit: limit}
}

// HashIP returns the first 16 hex characters of SHA-256(secret + ":" + ip).
func HashIP(secret, ip string) string {
	sum := sha256.Sum256([]byte(secret + ":" + ip))
	return hex.EncodeToString(sum[:])[:16]
}

func quotaKey(ipHash string, now time.Time) string {
	year, week := now.ISOWeek()
	return fmt.Sprintf("%s:%s:%d-W%02d", keyPrefix, ipHash, year, week)
}

// secondsUntilNextMonday returns seconds from now until next Monday 00:00 UTC.
func secondsUntilNextMonday(now time.Time) int64 {
	now = now.UTC()
	daysUntilMonday := (8 - int(now.Weekday())) % 7
	if daysUntilMonday == 0 {
		daysUntilMonday = 7
	}
	nextMonday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, daysUntilMonday)
	return int64(nextMonday.Sub(now).Seconds())
}

// Reserve atomically consumes n units of quota for ipHash. Returns the new
// counter value on success, or ErrQuotaExceeded if that would exceed the
// weekly limit. The counter and its TTL are left untouched on exceedance.
func (e *Engine) Reserve(ctx context.Context, ipHash string, n int) (int64, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	now := time.Now()
	key := quotaKey(ipHash, now)
	ttl := secondsUntilNextMonday(now)

	res, err := e.client.Eval(ctx, consumeScript, []string{key}, n, e.limit, ttl)
	if err != nil {
		return 0, fmt.Errorf("quota: reserve: %w", err)
	}
	newVal, ok := toInt64(res)
	if !ok {
		return 0, fmt.Errorf("quota: reserve: unexpected script reply %v", res)
	}
	if newVal == -1 {
		return 0, ErrQuotaExceeded
	}
	return newVal, nil
}

// Refund atomically returns n units of quota for ipHash, clamped at zero, and
// never fails due to the counter's current value. The TTL is preserved.
func (e *Engine) Refund(ctx context.Context, ipHash string, n int) error {
	if n <= 0 {
		return ErrInvalidAmount
	}
	key := quotaKey(ipHash, time.Now())
	if _, err := e.client.Eval(ctx, refundScript, []string{key}, n); err != nil {
		return fmt.Errorf("quota: refund: %w", err)
	}
	return nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}
