package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	mqcontracts "habitrack/contracts/mq"
	"habitrack/internal/apperr"
	"habitrack/internal/model"
	"habitrack/pkg/otel"
	"habitrack/pkg/outbox"
	"habitrack/pkg/trace"
)

type HabitRepository struct {
	db         *pgxpool.Pool
	outboxRepo *outbox.Repository
	logger     *zap.Logger
}

func NewHabitRepository(db *pgxpool.Pool, outboxRepo *outbox.Repository, logger *zap.Logger) *HabitRepository {
	return &HabitRepository{
		db:         db,
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

func (r *HabitRepository) Insert(ctx context.Context, owner uuid.UUID, title string) (model.Habit, error) {
	r.logger.Debug("Inserting habit",
		zap.String("owner_id", owner.String()),
		zap.String("title", title),
	)

	query := `
        INSERT INTO habits (title, owner_id)
        VALUES ($1, $2)
        RETURNING id, title, owner_id, created_on
    `
	var h model.Habit
	err := otel.Observe(ctx, "insert", "habits", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, title, owner).Scan(&h.ID, &h.Title, &h.OwnerID, &h.CreatedOn)
	})
	if err != nil {
		r.logger.Error("Failed to insert habit", zap.Error(err))
		return model.Habit{}, err
	}

	r.logger.Info("Habit inserted successfully",
		zap.String("id", h.ID.String()),
		zap.String("owner_id", owner.String()),
	)
	return h, nil
}

func (r *HabitRepository) Get(ctx context.Context, owner, id uuid.UUID) (model.Habit, error) {
	query := `
        SELECT id, title, owner_id, created_on
        FROM habits
        WHERE id = $1 AND owner_id = $2
    `
	var h model.Habit
	err := otel.Observe(ctx, "select", "habits", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, id, owner).Scan(&h.ID, &h.Title, &h.OwnerID, &h.CreatedOn)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Habit{}, apperr.NotFound("get habit", "habit %s", id)
	}
	if err != nil {
		r.logger.Error("Failed to get habit", zap.String("id", id.String()), zap.Error(err))
		return model.Habit{}, err
	}
	return h, nil
}

func (r *HabitRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]model.Habit, error) {
	r.logger.Debug("Listing habits for owner", zap.String("owner_id", owner.String()))

	query := `
        SELECT id, title, owner_id, created_on
        FROM habits
        WHERE owner_id = $1
        ORDER BY created_on DESC, id
    `

	habits := []model.Habit{}
	err := otel.Observe(ctx, "select", "habits", func(ctx context.Context) error {
		rows, err := r.db.Query(ctx, query, owner)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var h model.Habit
			if err := rows.Scan(&h.ID, &h.Title, &h.OwnerID, &h.CreatedOn); err != nil {
				return err
			}
			habits = append(habits, h)
		}
		return rows.Err()
	})
	if err != nil {
		r.logger.Error("Failed to list habits", zap.Error(err))
		return nil, err
	}

	r.logger.Debug("Listed habits",
		zap.String("owner_id", owner.String()),
		zap.Int("count", len(habits)),
	)
	return habits, nil
}

func (r *HabitRepository) UpdateTitle(ctx context.Context, owner, id uuid.UUID, title string) (model.Habit, error) {
	r.logger.Debug("Updating habit title",
		zap.String("id", id.String()),
		zap.String("title", title),
	)

	query := `
        UPDATE habits SET title = $3
        WHERE id = $1 AND owner_id = $2
        RETURNING id, title, owner_id, created_on
    `
	var h model.Habit
	err := otel.Observe(ctx, "update", "habits", func(ctx context.Context) error {
		return r.db.QueryRow(ctx, query, id, owner, title).Scan(&h.ID, &h.Title, &h.OwnerID, &h.CreatedOn)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Habit{}, apperr.NotFound("update habit", "habit %s", id)
	}
	if err != nil {
		r.logger.Error("Failed to update habit", zap.String("id", id.String()), zap.Error(err))
		return model.Habit{}, err
	}

	r.logger.Info("Habit updated successfully", zap.String("id", id.String()))
	return h, nil
}

// Delete 先删 completions 再删 habit（两条依赖语句），同一事务写 habit.deleted 事件。
// 重试是幂等的：第二次调用返回 NotFound。
func (r *HabitRepository) Delete(ctx context.Context, owner, id uuid.UUID) (int64, error) {
	r.logger.Debug("Deleting habit",
		zap.String("owner_id", owner.String()),
		zap.String("id", id.String()),
	)

	var purged int64
	err := otel.Observe(ctx, "delete", "habits", func(ctx context.Context) error {
		tx, err := r.db.Begin(ctx)
		if err != nil {
			return err
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx, `DELETE FROM completions WHERE habit_id = $1 AND owner_id = $2`, id, owner)
		if err != nil {
			return err
		}
		purged = tag.RowsAffected()

		tag, err = tx.Exec(ctx, `DELETE FROM habits WHERE id = $1 AND owner_id = $2`, id, owner)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return apperr.NotFound("delete habit", "habit %s", id)
		}

		payload := mqcontracts.HabitDeletedPayload{
			HabitID: id.String(),
			OwnerID: owner.String(),
			Purged:  purged,
			TraceID: trace.FromContext(ctx),
		}
		if err := outbox.InsertEventInTx(ctx, tx, r.outboxRepo, "habit", &id, mqcontracts.RoutingHabitDeleted, payload); err != nil {
			return err
		}
		return tx.Commit(ctx)
	})
	if err != nil {
		r.logger.Error("Failed to delete habit", zap.String("id", id.String()), zap.Error(err))
		return 0, err
	}

	r.logger.Info("Habit deleted successfully",
		zap.String("id", id.String()),
		zap.Int64("purged_completions", purged),
	)
	return purged, nil
}
