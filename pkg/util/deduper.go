package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewDeduper creates a deduper; logger may be nil.
func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func dedupKey(handler, key string) string {
	return fmt.Sprintf("dedup:%s:%s", handler, key)
}

// Seen reports whether handler already finished key.
// Redis 不可用时返回 false：下游操作本身是幂等的（重复删除只会删除 0 条）
func (d *Deduper) Seen(ctx context.Context, handler string, key string) bool {
	n, err := d.rdb.Exists(ctx, dedupKey(handler, key)).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("handler", handler),
				zap.String("key", key),
				zap.Error(err),
			)
		}
		return false
	}

	if n > 0 && d.logger != nil {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("dedup_key", dedupKey(handler, key)),
		)
	}
	return n > 0
}

// MarkDone records that handler finished key. Call it only after the work
// succeeded, so a crash before this point leads to a redelivery that runs
// the work again.
func (d *Deduper) MarkDone(ctx context.Context, handler string, key string) {
	if err := d.rdb.Set(ctx, dedupKey(handler, key), 1, d.ttl).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Failed to record dedup key",
			zap.String("handler", handler),
			zap.String("key", key),
			zap.Error(err),
		)
	}
}
