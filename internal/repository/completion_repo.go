package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "habitrack/contracts/mq"
	"habitrack/internal/apperr"
	"habitrack/internal/model"
	"habitrack/internal/streak"
	"habitrack/pkg/otel"
	"habitrack/pkg/outbox"
	"habitrack/pkg/trace"
)

type CompletionRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewCompletionRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *CompletionRepository {
	return &CompletionRepository{
		db:         db,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

var _ streak.Store = (*CompletionRepository)(nil)

// CompletionsInWindow 一次 LEFT JOIN 读出所有习惯及窗口内的完成记录
func (r *CompletionRepository) CompletionsInWindow(ctx context.Context, owner uuid.UUID, habitID *uuid.UUID, w streak.Window) ([]model.HabitCompletions, error) {
	r.logger.Debug("Querying completions in window",
		zap.String("owner_id", owner.String()),
		zap.Time("start", w.Start),
		zap.Time("end", w.End),
	)

	query := `
        SELECT h.id, h.title, h.owner_id, h.created_on, c.completed_on
        FROM habits h
        LEFT JOIN completions c
               ON c.habit_id = h.id
              AND c.owner_id = h.owner_id
              AND c.completed_on BETWEEN $2 AND $3
        WHERE h.owner_id = $1
          AND ($4::uuid IS NULL OR h.id = $4)
        ORDER BY h.created_on DESC, h.id, c.completed_on
    `

	var out []model.HabitCompletions
	err := otel.Observe(ctx, "select", "completions", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, owner, w.Start, w.End, habitID)
		if err != nil {
			return err
		}
		out, err = collectHabitCompletions(rows)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to query completions in window", zap.Error(err))
		return nil, err
	}

	r.logger.Debug("Queried completions in window",
		zap.String("owner_id", owner.String()),
		zap.Int("habits", len(out)),
	)
	return out, nil
}

// CompletionHistory returns every habit of owner with its full history.
func (r *CompletionRepository) CompletionHistory(ctx context.Context, owner uuid.UUID) ([]model.HabitCompletions, error) {
	r.logger.Debug("Querying completion history", zap.String("owner_id", owner.String()))

	query := `
        SELECT h.id, h.title, h.owner_id, h.created_on, c.completed_on
        FROM habits h
        LEFT JOIN completions c
               ON c.habit_id = h.id
              AND c.owner_id = h.owner_id
        WHERE h.owner_id = $1
        ORDER BY h.created_on DESC, h.id, c.completed_on
    `

	var out []model.HabitCompletions
	err := otel.Observe(ctx, "select", "completions", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, owner)
		if err != nil {
			return err
		}
		out, err = collectHabitCompletions(rows)
		return err
	})
	if err != nil {
		r.logger.Error("Failed to query completion history", zap.Error(err))
		return nil, err
	}
	return out, nil
}

// InsertCompletion 归属校验和插入是同一条语句；outbox 事件在同一事务中写入
func (r *CompletionRepository) InsertCompletion(ctx context.Context, owner, habitID uuid.UUID, completedOn time.Time) (model.Completion, error) {
	r.logger.Debug("Inserting completion",
		zap.String("owner_id", owner.String()),
		zap.String("habit_id", habitID.String()),
		zap.Time("completed_on", completedOn),
	)

	query := `
        INSERT INTO completions (habit_id, owner_id, completed_on)
        SELECT h.id, h.owner_id, $3
        FROM habits h
        WHERE h.id = $1 AND h.owner_id = $2
        RETURNING id, habit_id, owner_id, completed_on
    `

	var c model.Completion
	err := otel.Observe(ctx, "insert", "completions", func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		err = tx.QueryRow(ctx, query, habitID, owner, completedOn).
			Scan(&c.ID, &c.HabitID, &c.OwnerID, &c.CompletedOn)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.Constraint("insert completion", "habit %s does not belong to owner %s", habitID, owner)
		}
		if err != nil {
			return err
		}

		payload := mqcontracts.CompletionRecordedPayload{
			CompletionID: c.ID.String(),
			HabitID:      c.HabitID.String(),
			OwnerID:      c.OwnerID.String(),
			CompletedOn:  c.CompletedOn,
			TraceID:      trace.FromContext(ctx),
		}
		if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "completion", &c.ID, mqcontracts.RoutingCompletionRecorded, payload); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		r.logger.Error("Failed to insert completion",
			zap.String("habit_id", habitID.String()),
			zap.Error(err),
		)
		return model.Completion{}, err
	}

	r.logger.Info("Completion inserted successfully",
		zap.String("id", c.ID.String()),
		zap.String("habit_id", c.HabitID.String()),
	)
	return c, nil
}

// DeleteCompletions removes the habit's completions inside w. The outbox
// event is only written when something was deleted.
func (r *CompletionRepository) DeleteCompletions(ctx context.Context, owner, habitID uuid.UUID, w streak.Window) (int64, error) {
	r.logger.Debug("Deleting completions",
		zap.String("owner_id", owner.String()),
		zap.String("habit_id", habitID.String()),
		zap.Time("start", w.Start),
		zap.Time("end", w.End),
	)

	query := `
        DELETE FROM completions
        WHERE owner_id = $1 AND habit_id = $2
          AND completed_on BETWEEN $3 AND $4
    `

	var n int64
	err := otel.Observe(ctx, "delete", "completions", func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx, query, owner, habitID, w.Start, w.End)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		if n == 0 {
			return nil
		}

		payload := mqcontracts.CompletionsDeletedPayload{
			HabitID:   habitID.String(),
			OwnerID:   owner.String(),
			StartDate: w.Start,
			EndDate:   w.End,
			Deleted:   n,
			TraceID:   trace.FromContext(ctx),
		}
		if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "habit", &habitID, mqcontracts.RoutingCompletionsDeleted, payload); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		r.logger.Error("Failed to delete completions",
			zap.String("habit_id", habitID.String()),
			zap.Error(err),
		)
		return 0, err
	}

	r.logger.Info("Completions deleted",
		zap.String("habit_id", habitID.String()),
		zap.Int64("deleted", n),
	)
	return n, nil
}

// PurgeHabit removes every completion of habitID regardless of owner. It
// backs the registry.habit.deleted consumer; running it twice deletes 0.
func (r *CompletionRepository) PurgeHabit(ctx context.Context, habitID uuid.UUID) (int64, error) {
	r.logger.Debug("Purging completions for habit", zap.String("habit_id", habitID.String()))

	var n int64
	err := otel.Observe(ctx, "delete", "completions", func(ctx context.Context) error {
		tag, err := r.db.Exec(ctx, `DELETE FROM completions WHERE habit_id = $1`, habitID)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to purge completions", zap.String("habit_id", habitID.String()), zap.Error(err))
		return 0, apperr.FromStorage("purge completions", err)
	}

	r.logger.Info("Completions purged",
		zap.String("habit_id", habitID.String()),
		zap.Int64("purged", n),
	)
	return n, nil
}
