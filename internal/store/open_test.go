package store

import (
	"context"
	"testing"

	"wisefido-patients/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpen_Memory(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = config.StoreMemory

	slot, closeFn, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &MemorySlot{}, slot)
}

func TestOpen_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Store.Backend = config.StoreRedis
	cfg.Redis.Addr = mr.Addr()

	slot, closeFn, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeFn()
	require.IsType(t, &RedisSlot{}, slot)

	require.NoError(t, slot.Update(context.Background(), "patients", func([]byte) ([]byte, error) {
		return []byte(`[]`), nil
	}))
	got, err := mr.Get("patients")
	require.NoError(t, err)
	assert.Equal(t, "[]", got)
}

func TestOpen_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Default()
	cfg.Store.Backend = config.StoreRedis
	cfg.Redis.Addr = addr

	cfg.Store.FallbackMemory = true
	slot, _, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &MemorySlot{}, slot)

	cfg.Store.FallbackMemory = false
	_, _, err = Open(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestOpen_UnknownBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Backend = "etcd"
	cfg.Store.FallbackMemory = false

	_, _, err := Open(context.Background(), cfg, zap.NewNop())
	assert.ErrorContains(t, err, "unknown store backend")
}
