// Package habit is the minimal habit registry: create, read, list and a
// cascading delete. Metadata beyond the title is out of scope.
package habit

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitrack/internal/apperr"
	"habitrack/internal/model"
	"habitrack/internal/streak"
	"habitrack/pkg/circuitbreaker"
	"habitrack/pkg/logger"
	"habitrack/pkg/metrics"
)

const maxTitleLen = 200

type Store interface {
	Insert(ctx context.Context, owner uuid.UUID, title string) (model.Habit, error)
	Get(ctx context.Context, owner, id uuid.UUID) (model.Habit, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]model.Habit, error)
	UpdateTitle(ctx context.Context, owner, id uuid.UUID, title string) (model.Habit, error)
	// Delete removes the habit's completions and then the habit, returning
	// the number of completions removed.
	Delete(ctx context.Context, owner, id uuid.UUID) (int64, error)
}

type Service struct {
	store   Store
	logger  *zap.Logger
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

func NewService(store Store, log *zap.Logger, timeout time.Duration, breaker *circuitbreaker.CircuitBreaker) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if breaker == nil {
		breaker = streak.NewStorageBreaker()
	}
	return &Service{store: store, logger: log, timeout: timeout, breaker: breaker}
}

func (s *Service) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	err := s.breaker.Execute(func() error {
		return apperr.FromStorage(op, fn(ctx))
	})
	if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return apperr.Unavailable(op, err)
	}
	return err
}

func normalizeTitle(op, raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", apperr.Validation(op, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", apperr.Validation(op, "title longer than %d characters", maxTitleLen)
	}
	return title, nil
}

// Create registers a habit. Titles are unique across all owners; a
// collision fails with apperr.ErrConstraintViolation wrapping apperr.ErrDuplicate.
func (s *Service) Create(ctx context.Context, owner, title string) (model.Habit, error) {
	const op = "create habit"
	ownerID, err := streak.ParseID("uid", owner)
	if err != nil {
		return model.Habit{}, err
	}
	title, err = normalizeTitle(op, title)
	if err != nil {
		return model.Habit{}, err
	}

	var h model.Habit
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		h, err = s.store.Insert(ctx, ownerID, title)
		return err
	})
	if err != nil {
		return model.Habit{}, err
	}

	logger.WithTrace(ctx, s.logger).Info("Habit created",
		zap.String("habit_id", h.ID.String()),
		zap.String("owner_id", ownerID.String()),
	)
	return h, nil
}

func (s *Service) Get(ctx context.Context, owner, id string) (model.Habit, error) {
	ownerID, err := streak.ParseID("uid", owner)
	if err != nil {
		return model.Habit{}, err
	}
	hid, err := streak.ParseID("id", id)
	if err != nil {
		return model.Habit{}, err
	}

	var h model.Habit
	err = s.call(ctx, "get habit", func(ctx context.Context) error {
		var err error
		h, err = s.store.Get(ctx, ownerID, hid)
		return err
	})
	return h, err
}

// List returns the owner's habits, newest first.
func (s *Service) List(ctx context.Context, owner string) ([]model.Habit, error) {
	ownerID, err := streak.ParseID("uid", owner)
	if err != nil {
		return nil, err
	}

	var habits []model.Habit
	err = s.call(ctx, "list habits", func(ctx context.Context) error {
		var err error
		habits, err = s.store.ListByOwner(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return habits, nil
}

// Rename changes the title of one of owner's habits.
func (s *Service) Rename(ctx context.Context, owner, id, title string) (model.Habit, error) {
	const op = "rename habit"
	ownerID, err := streak.ParseID("uid", owner)
	if err != nil {
		return model.Habit{}, err
	}
	hid, err := streak.ParseID("id", id)
	if err != nil {
		return model.Habit{}, err
	}
	title, err = normalizeTitle(op, title)
	if err != nil {
		return model.Habit{}, err
	}

	var h model.Habit
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		h, err = s.store.UpdateTitle(ctx, ownerID, hid, title)
		return err
	})
	return h, err
}

// Delete removes a habit together with all its completions.
func (s *Service) Delete(ctx context.Context, owner, id string) (int64, error) {
	const op = "delete habit"
	ownerID, err := streak.ParseID("uid", owner)
	if err != nil {
		return 0, err
	}
	hid, err := streak.ParseID("id", id)
	if err != nil {
		return 0, err
	}

	var purged int64
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		purged, err = s.store.Delete(ctx, ownerID, hid)
		return err
	})
	if err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Failed to delete habit",
			zap.String("habit_id", hid.String()),
			zap.Error(err),
		)
		return 0, err
	}

	metrics.AddCompletions("purged", purged)
	logger.WithTrace(ctx, s.logger).Info("Habit deleted",
		zap.String("habit_id", hid.String()),
		zap.Int64("purged_completions", purged),
	)
	return purged, nil
}
