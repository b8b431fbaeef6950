package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates the advisory lock is owned by another worker.
var ErrLockHeld = errors.New("shared: advisory lock already held")

// FinancialYearLockKey builds the redis key guarding year-close batches.
func FinancialYearLockKey(fyID int64) string {
	return fmt.Sprintf("ledger:fy:%d:close", fyID)
}

// releaseScript deletes the lock only when the caller still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AdvisoryLocker serializes long-running batches such as financial-year
// closing across processes. Locks expire after TTL so a crashed worker
// cannot wedge the year forever.
type AdvisoryLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewAdvisoryLocker constructs an AdvisoryLocker.
func NewAdvisoryLocker(client *redis.Client, ttl time.Duration) *AdvisoryLocker {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &AdvisoryLocker{client: client, ttl: ttl}
}

// Acquire takes the lock and returns a release function. ErrLockHeld is
// returned when another holder owns the key.
func (l *AdvisoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	if l == nil || l.client == nil {
		return func() {}, nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("shared: acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}
	release := func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{key}, token).Err()
	}
	return release, nil
}
