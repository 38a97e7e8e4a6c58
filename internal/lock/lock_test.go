package lock

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rental-backend/internal/logger"
	"rental-backend/internal/metrics"
)

func TestKeyedMutex_Serialises(t *testing.T) {
	k := NewKeyedMutex()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := k.Acquire(ctx, ProductKey(1))
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, k.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	ctx := context.Background()

	releaseA, err := k.Acquire(ctx, ProductKey(1))
	require.NoError(t, err)
	defer releaseA()

	releaseB, err := k.Acquire(ctx, ProductKey(2))
	require.NoError(t, err)
	releaseB()
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	k := NewKeyedMutex()

	release, err := k.Acquire(context.Background(), OrderKey(5))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = k.Acquire(ctx, OrderKey(5))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release()
	assert.Zero(t, k.Len())
}

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLocker(client, time.Second, 10*time.Millisecond)
	release, err := l.Acquire(context.Background(), ProductKey(99))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, ProductKey(99))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	release()
	release2, err := l.Acquire(context.Background(), ProductKey(99))
	require.NoError(t, err)
	release2()
}

func TestRedisLocker_ReportRelease(t *testing.T) {
	var buf bytes.Buffer
	logger.InitializeWithWriter(&buf, "info", "text")
	defer logger.Initialize("info", "text")

	l := NewRedisLocker(nil, 0, 0)
	before := testutil.ToFloat64(metrics.LockExpired)

	l.reportRelease(ProductKey(1), 1, nil)
	assert.Empty(t, buf.String())
	assert.Equal(t, before, testutil.ToFloat64(metrics.LockExpired))

	l.reportRelease(ProductKey(1), 0, nil)
	assert.Contains(t, buf.String(), "Redis lock expired before release")
	assert.Contains(t, buf.String(), "ttl=10s")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LockExpired))

	buf.Reset()
	l.reportRelease(ProductKey(1), 0, errors.New("connection reset"))
	assert.Contains(t, buf.String(), "Failed to release redis lock")
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LockExpired))
}

func TestRedisLocker_ExpiredSection(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client, err := NewRedisClient(context.Background(), addr, os.Getenv("REDIS_PASSWORD"), 0)
	require.NoError(t, err)
	defer client.Close()

	l := NewRedisLocker(client, 50*time.Millisecond, 10*time.Millisecond)
	before := testutil.ToFloat64(metrics.LockExpired)

	release, err := l.Acquire(context.Background(), ProductKey(98))
	require.NoError(t, err)
	time.Sleep(100 * time.Millisecond)

	// the key is gone, so a second holder gets in and the late release must not evict it
	release2, err := l.Acquire(context.Background(), ProductKey(98))
	require.NoError(t, err)
	release()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.LockExpired))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, ProductKey(98))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	release2()
}
