package store

import (
	"context"
	"fmt"
	"time"

	"wisefido-patients/internal/config"
	"wisefido-patients/internal/database"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Open 按配置打开持久槽，返回的 close 函数释放底层连接
// cfg.Store.FallbackMemory 为 true 时，后端不可用会回退到内存槽
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Slot, func(), error) {
	nop := func() {}

	slot, closeFn, err := open(ctx, cfg, logger)
	if err == nil {
		return slot, closeFn, nil
	}
	if !cfg.Store.FallbackMemory || cfg.Store.Backend == config.StoreMemory {
		return nil, nop, err
	}
	logger.Warn("Record slot backend unavailable, falling back to memory",
		zap.String("backend", cfg.Store.Backend),
		zap.Error(err),
	)
	return NewMemorySlot(), nop, nil
}

func open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Slot, func(), error) {
	nop := func() {}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		logger.Info("Using in-memory record slot")
		return NewMemorySlot(), nop, nil

	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nop, fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("Using Redis record slot", zap.String("addr", cfg.Redis.Addr))
		return NewRedisSlot(client), func() { _ = client.Close() }, nil

	case config.StorePostgres:
		db, err := database.NewPostgresDB(ctx, &cfg.Database)
		if err != nil {
			return nil, nop, err
		}
		slot := NewPostgresSlot(db)
		if err := slot.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nop, err
		}
		logger.Info("Using PostgreSQL record slot",
			zap.String("host", cfg.Database.Host),
			zap.String("database", cfg.Database.Database),
		)
		return slot, func() { _ = db.Close() }, nil

	default:
		return nil, nop, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
