package otp

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time { return c.now }

func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clk.Now)

	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "123456"), ErrCodeNotFound)

	require.NoError(t, store.Save(ctx, "6281234567890", "123456", 5*time.Minute))
	require.NoError(t, store.Save(ctx, "6281234567890", "654321", 5*time.Minute))
	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "123456"), ErrCodeMismatch, "saving replaces the pending code")
	require.NoError(t, store.Consume(ctx, "6281234567890", "654321"))
	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "654321"), ErrCodeNotFound, "a code is consumed once")

	require.NoError(t, store.Save(ctx, "6281234567890", "111111", 5*time.Minute))
	clk.Advance(5 * time.Minute)
	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "111111"), ErrCodeNotFound, "a code expires at exactly its ttl")
	assert.Zero(t, store.Len(), "expired entries are dropped on consume")

	require.NoError(t, store.Delete(ctx, "6281234567890"), "deleting a missing code is fine")
}

func TestMemoryStore_Cleanup(t *testing.T) {
	ctx := context.Background()
	clk := &clock{now: time.Date(2024, 6, 12, 8, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(clk.Now)

	require.NoError(t, store.Save(ctx, "a", "1111", time.Minute))
	require.NoError(t, store.Save(ctx, "b", "2222", 10*time.Minute))

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 1, store.Cleanup())
	assert.Equal(t, 1, store.Len())

	require.NoError(t, store.Consume(ctx, "b", "2222"))
}

// consumeConcurrently redeems the same code from many goroutines and returns
// how many calls succeeded.
func consumeConcurrently(t *testing.T, store Store, phone, code string) int {
	t.Helper()

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
		start     = make(chan struct{})
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			err := store.Consume(context.Background(), phone, code)
			if err == nil {
				successes.Add(1)
				return
			}
			assert.ErrorIs(t, err, ErrCodeNotFound)
		}()
	}
	close(start)
	wg.Wait()

	return int(successes.Load())
}

func TestMemoryStore_ConsumeIsSingleUse(t *testing.T) {
	store := NewMemoryStore(nil)
	require.NoError(t, store.Save(context.Background(), "6281234567890", "123456", time.Minute))

	assert.Equal(t, 1, consumeConcurrently(t, store, "6281234567890", "123456"))
}

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ""), mr
}

func TestRedisStore(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "123456"), ErrCodeNotFound)

	require.NoError(t, store.Save(ctx, "6281234567890", "123456", 5*time.Minute))
	assert.True(t, mr.Exists("otp:6281234567890"))
	assert.Equal(t, 5*time.Minute, mr.TTL("otp:6281234567890"))

	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "000000"), ErrCodeMismatch)
	assert.True(t, mr.Exists("otp:6281234567890"), "a wrong code leaves the pending one")

	require.NoError(t, store.Consume(ctx, "6281234567890", "123456"))
	assert.False(t, mr.Exists("otp:6281234567890"))
	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "123456"), ErrCodeNotFound)

	require.NoError(t, store.Save(ctx, "6281234567890", "123456", 5*time.Minute))
	require.NoError(t, store.Delete(ctx, "6281234567890"))
	assert.False(t, mr.Exists("otp:6281234567890"))
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	require.NoError(t, store.Save(ctx, "6281234567890", "123456", 5*time.Minute))
	mr.FastForward(5 * time.Minute)

	assert.ErrorIs(t, store.Consume(ctx, "6281234567890", "123456"), ErrCodeNotFound)
}

func TestRedisStore_ConsumeIsSingleUse(t *testing.T) {
	store, _ := newRedisStore(t)
	require.NoError(t, store.Save(context.Background(), "6281234567890", "123456", time.Minute))

	assert.Equal(t, 1, consumeConcurrently(t, store, "6281234567890", "123456"))
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)
	mr.Close()

	err := store.Save(ctx, "6281234567890", "123456", time.Minute)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCodeNotFound)

	err = store.Consume(ctx, "6281234567890", "123456")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCodeNotFound)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisStore(client, "simbok:otp:")
	require.NoError(t, store.Save(context.Background(), "628111", "4321", time.Minute))
	assert.True(t, mr.Exists("simbok:otp:628111"))
}
