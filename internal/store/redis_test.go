package store

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisSlot) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewRedisSlot(client)
}

func TestRedisSlot_LoadMiss(t *testing.T) {
	_, s := setupTestRedis(t)
	_, err := s.Load(context.Background(), "patients")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisSlot_UpdateWritesWholeValue(t *testing.T) {
	mr, s := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, "patients", func(cur []byte) ([]byte, error) {
		assert.Nil(t, cur)
		return []byte(`[{"identifier":"P000001"}]`), nil
	}))

	raw, err := mr.Get("patients")
	require.NoError(t, err)
	assert.Equal(t, `[{"identifier":"P000001"}]`, raw)

	got, err := s.Load(ctx, "patients")
	require.NoError(t, err)
	assert.Equal(t, raw, string(got))
}

func TestRedisSlot_ConcurrentUpdatesDoNotLoseWrites(t *testing.T) {
	_, s := setupTestRedis(t)
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Update(ctx, "counter", func(cur []byte) ([]byte, error) {
				n, _ := strconv.Atoi(string(cur))
				return []byte(strconv.Itoa(n + 1)), nil
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.Load(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(writers), string(got))
}
