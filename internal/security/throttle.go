// Package security holds abuse protection for the authentication
// endpoints.
package security

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Throttle counts failed attempts per key in a sliding window.  With a
// Redis client the window is a sorted set shared by every replica;
// without one it lives in process memory.
type Throttle struct {
	rdb    *redis.Client
	max    int
	window time.Duration
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	mem map[string][]time.Time
}

func NewThrottle(rdb *redis.Client, maxAttempts int, window time.Duration) *Throttle {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Throttle{
		rdb:    rdb,
		max:    maxAttempts,
		window: window,
		prefix: "throttle:",
		now:    time.Now,
		mem:    map[string][]time.Time{},
	}
}

// LoginKey scopes a login throttle to the caller address and account.
func LoginKey(ip, email string) string { return "login:" + ip + "|" + email }

// PurchaseKey scopes the failed-purchase throttle to one passenger.
func PurchaseKey(passengerID uint64) string {
	return "purchase:" + strconv.FormatUint(passengerID, 10)
}

// Allow reports whether another attempt is permitted.  When it is not,
// retryAfter tells when the oldest failure leaves the window.
func (t *Throttle) Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error) {
	now := t.now()
	if t.rdb == nil {
		return t.allowMem(key, now)
	}
	k := t.prefix + key
	floor := strconv.FormatInt(now.Add(-t.window).UnixMilli(), 10)
	var card *redis.IntCmd
	var oldest *redis.ZSliceCmd
	_, err = t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZRemRangeByScore(ctx, k, "-inf", "("+floor)
		card = p.ZCard(ctx, k)
		oldest = p.ZRangeWithScores(ctx, k, 0, 0)
		return nil
	})
	if err != nil {
		return true, 0, err
	}
	if int(card.Val()) < t.max {
		return true, 0, nil
	}
	if zs := oldest.Val(); len(zs) > 0 {
		first := time.UnixMilli(int64(zs[0].Score))
		retryAfter = first.Add(t.window).Sub(now)
	}
	return false, retryAfter, nil
}

// Fail records one failed attempt.
func (t *Throttle) Fail(ctx context.Context, key string) error {
	now := t.now()
	if t.rdb == nil {
		t.mu.Lock()
		t.mem[key] = append(t.prune(key, now), now)
		t.mu.Unlock()
		return nil
	}
	k := t.prefix + key
	_, err := t.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.ZAdd(ctx, k, redis.Z{Score: float64(now.UnixMilli()), Member: uuid.NewString()})
		p.Expire(ctx, k, t.window)
		return nil
	})
	return err
}

// Reset clears the window after a successful attempt.
func (t *Throttle) Reset(ctx context.Context, key string) error {
	if t.rdb == nil {
		t.mu.Lock()
		delete(t.mem, key)
		t.mu.Unlock()
		return nil
	}
	return t.rdb.Del(ctx, t.prefix+key).Err()
}

func (t *Throttle) allowMem(key string, now time.Time) (bool, time.Duration, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	hits := t.prune(key, now)
	if len(hits) == 0 {
		delete(t.mem, key)
	} else {
		t.mem[key] = hits
	}
	if len(hits) < t.max {
		return true, 0, nil
	}
	return false, hits[0].Add(t.window).Sub(now), nil
}

// prune drops attempts older than the window.  mu must be held.
func (t *Throttle) prune(key string, now time.Time) []time.Time {
	hits := t.mem[key]
	cut := now.Add(-t.window)
	i := 0
	for i < len(hits) && !hits[i].After(cut) {
		i++
	}
	return hits[i:]
}
