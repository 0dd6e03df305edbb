package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "habitrack/contracts/mq"
	"habitrack/internal/apperr"
	"habitrack/internal/streak"
	"habitrack/pkg/logger"
	"habitrack/pkg/metrics"
)

const habitDeletedHandlerName = "habit_deleted"

// Purger removes every completion of a habit.
type Purger interface {
	PurgeHabit(ctx context.Context, habitID uuid.UUID) (int64, error)
}

type Deduper interface {
	Seen(ctx context.Context, handler string, key string) bool
	MarkDone(ctx context.Context, handler string, key string)
}

// HabitDeletedHandler purges completions when the habit registry deletes a
// habit. Running it twice for the same habit deletes nothing the second time.
type HabitDeletedHandler struct {
	purger  Purger
	deduper Deduper
	timeout time.Duration
	logger  *zap.Logger
}

// NewHabitDeletedHandler bounds each purge by timeout (5s when not positive).
func NewHabitDeletedHandler(purger Purger, deduper Deduper, timeout time.Duration, logger *zap.Logger) *HabitDeletedHandler {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HabitDeletedHandler{purger: purger, deduper: deduper, timeout: timeout, logger: logger}
}

func (h *HabitDeletedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.HabitDeletedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		// JSON decode 错误 - 不可重试，交给 consumer 发送到 DLQ
		log.Error("Failed to unmarshal HabitDeletedPayload", zap.Error(err))
		return fmt.Errorf("decode habit deleted payload: %w", err)
	}

	habitID, err := streak.ParseID("hid", p.HabitID)
	if err != nil {
		log.Error("Invalid hid in habit deleted event", zap.String("hid", p.HabitID))
		return err
	}

	// Redis 去重：已成功处理过的事件直接跳过
	if h.deduper != nil && h.deduper.Seen(ctx, habitDeletedHandlerName, habitID.String()) {
		return nil
	}

	log.Info("Handling registry habit deleted event",
		zap.String("habit_id", habitID.String()),
		zap.String("owner_id", p.OwnerID),
	)

	n, err := h.purge(ctx, habitID)
	if err != nil {
		log.Error("Failed to purge completions", zap.String("habit_id", habitID.String()), zap.Error(err))
		return err
	}

	// 成功后才写去重键；在此之前崩溃会重投并再次执行（幂等）
	if h.deduper != nil {
		h.deduper.MarkDone(ctx, habitDeletedHandlerName, habitID.String())
	}

	metrics.AddCompletions("purged", n)
	log.Info("Completions purged for deleted habit",
		zap.String("habit_id", habitID.String()),
		zap.Int64("purged", n),
	)
	return nil
}

// purge runs the delete under the handler's deadline. A stalled store comes
// back as apperr.ErrStorageUnavailable, which the consumer retries.
func (h *HabitDeletedHandler) purge(ctx context.Context, habitID uuid.UUID) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	n, err := h.purger.PurgeHabit(ctx, habitID)
	if err != nil {
		return 0, apperr.FromStorage("purge completions", err)
	}
	return n, nil
}
