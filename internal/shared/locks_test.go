package shared

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func testLocker(t *testing.T) *AdvisoryLocker {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAdvisoryLocker(client, time.Minute)
}

func TestAdvisoryLockerSerializes(t *testing.T) {
	locker := testLocker(t)
	ctx := context.Background()
	key := FinancialYearLockKey(1)

	release, err := locker.Acquire(ctx, key)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, key)
	require.ErrorIs(t, err, ErrLockHeld)

	release()

	release2, err := locker.Acquire(ctx, key)
	require.NoError(t, err)
	release2()
}

func TestAdvisoryLockerIndependentKeys(t *testing.T) {
	locker := testLocker(t)
	ctx := context.Background()

	release1, err := locker.Acquire(ctx, FinancialYearLockKey(1))
	require.NoError(t, err)
	defer release1()

	release2, err := locker.Acquire(ctx, FinancialYearLockKey(2))
	require.NoError(t, err)
	defer release2()
}

func TestAdvisoryLockerNilClientNoops(t *testing.T) {
	var locker *AdvisoryLocker
	release, err := locker.Acquire(context.Background(), "any")
	require.NoError(t, err)
	release()
}
