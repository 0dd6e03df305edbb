package repository

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitrack/internal/apperr"
	"habitrack/internal/streak"
	"habitrack/pkg/db"
	"habitrack/pkg/outbox"
)

// openTestPool connects to TEST_POSTGRES_DSN or skips.
func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.ApplySchema(ctx, pool, zap.NewNop()))
	return pool
}

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 9, 30, 0, 0, time.UTC)
}

func TestRepositoriesAgainstPostgres(t *testing.T) {
	pool := openTestPool(t)
	ctx := context.Background()
	log := zap.NewNop()
	outboxRepo := outbox.NewRepository(pool)
	habits := NewHabitRepository(pool, outboxRepo, log)
	completions := NewCompletionRepository(pool, outboxRepo, log)

	owner := uuid.New()
	stranger := uuid.New()

	first, err := habits.Insert(ctx, owner, "read-"+uuid.NewString())
	require.NoError(t, err)
	second, err := habits.Insert(ctx, owner, "run-"+uuid.NewString())
	require.NoError(t, err)

	renamed, err := habits.UpdateTitle(ctx, owner, second.ID, second.Title+"-2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, renamed.ID)
	_, err = habits.UpdateTitle(ctx, stranger, second.ID, "stolen-"+uuid.NewString())
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = habits.Insert(ctx, stranger, first.Title)
	assert.ErrorIs(t, apperr.FromStorage("create habit", err), apperr.ErrDuplicate)

	for _, d := range []int{1, 2, 3, 10} {
		_, err := completions.InsertCompletion(ctx, owner, first.ID, day(d))
		require.NoError(t, err)
	}

	_, err = completions.InsertCompletion(ctx, stranger, first.ID, day(4))
	assert.ErrorIs(t, err, apperr.ErrConstraintViolation)

	w := streak.Window{Start: day(1).Truncate(24 * time.Hour), End: day(5)}
	rows, err := completions.CompletionsInWindow(ctx, owner, nil, w)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first.ID, rows[1].Habit.ID)
	assert.Len(t, rows[1].CompletedOn, 3)
	assert.Empty(t, rows[0].CompletedOn)

	only, err := completions.CompletionsInWindow(ctx, owner, &second.ID, w)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, second.ID, only[0].Habit.ID)

	history, err := completions.CompletionHistory(ctx, owner)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Len(t, history[1].CompletedOn, 4)

	n, err := completions.DeleteCompletions(ctx, owner, first.ID, w)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = completions.DeleteCompletions(ctx, owner, first.ID, w)
	require.NoError(t, err)
	assert.Zero(t, n)

	purged, err := habits.Delete(ctx, owner, first.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = habits.Delete(ctx, owner, first.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = habits.Get(ctx, owner, first.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = habits.Delete(ctx, owner, second.ID)
	require.NoError(t, err)
}
