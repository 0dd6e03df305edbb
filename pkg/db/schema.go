package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// schema is applied in order; every statement is idempotent.
var schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS habits (
		id         uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		title      varchar NOT NULL UNIQUE,
		owner_id   uuid NOT NULL,
		created_on timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS habits_owner_created_idx ON habits (owner_id, created_on DESC)`,
	`CREATE TABLE IF NOT EXISTS completions (
		id           uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		habit_id     uuid NOT NULL REFERENCES habits (id),
		owner_id     uuid NOT NULL,
		completed_on timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS completions_owner_habit_idx ON completions (owner_id, habit_id, completed_on)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id             bigserial PRIMARY KEY,
		aggregate_type varchar NOT NULL,
		aggregate_id   uuid,
		routing_key    varchar NOT NULL,
		payload        jsonb NOT NULL,
		status         varchar NOT NULL DEFAULT 'pending',
		retry_count    integer NOT NULL DEFAULT 0,
		next_retry_at  timestamptz,
		created_at     timestamptz NOT NULL DEFAULT now(),
		updated_at     timestamptz NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS outbox_events_pending_idx ON outbox_events (status, next_retry_at)`,
}

// ApplySchema creates the habitrack tables when they are missing.
func ApplySchema(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	for i, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			logger.Error("Failed to apply schema statement", zap.Int("index", i), zap.Error(err))
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	logger.Info("Database schema is up to date", zap.Int("statements", len(schema)))
	return nil
}
