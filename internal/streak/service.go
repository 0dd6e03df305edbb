package streak

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"habitrack/internal/apperr"
	"habitrack/internal/model"
	"habitrack/pkg/circuitbreaker"
	"habitrack/pkg/logger"
	"habitrack/pkg/metrics"
)

// Store is the persistence the streak engine reads from and writes to.
type Store interface {
	// CompletionsInWindow returns every habit owned by owner (only habitID
	// when non-nil), newest habit first, each with its completions inside w.
	CompletionsInWindow(ctx context.Context, owner uuid.UUID, habitID *uuid.UUID, w Window) ([]model.HabitCompletions, error)
	// CompletionHistory returns every habit owned by owner, newest first,
	// each with its full completion history.
	CompletionHistory(ctx context.Context, owner uuid.UUID) ([]model.HabitCompletions, error)
	// InsertCompletion records a completion only if habitID belongs to
	// owner, in one atomic step. It fails with apperr.ErrConstraintViolation
	// otherwise.
	InsertCompletion(ctx context.Context, owner, habitID uuid.UUID, completedOn time.Time) (model.Completion, error)
	// DeleteCompletions removes the habit's completions inside w and
	// reports how many were removed.
	DeleteCompletions(ctx context.Context, owner, habitID uuid.UUID, w Window) (int64, error)
}

// Service answers completion listings and scoreboards and records
// completions. Every call re-reads the store; nothing is cached.
type Service struct {
	store   Store
	logger  *zap.Logger
	loc     *time.Location
	timeout time.Duration
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
}

type Option func(*Service)

// WithLocation sets the time zone whose calendar defines a "day".
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithQueryTimeout bounds each store call.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithBreaker replaces the default circuit breaker.
func WithBreaker(cb *circuitbreaker.CircuitBreaker) Option {
	return func(s *Service) { s.breaker = cb }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   store,
		logger:  log,
		loc:     time.UTC,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.breaker == nil {
		s.breaker = NewStorageBreaker()
	}
	return s
}

// NewStorageBreaker returns a breaker that only counts storage outages.
func NewStorageBreaker() *circuitbreaker.CircuitBreaker {
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsFailure = func(err error) bool {
		return errors.Is(err, apperr.ErrStorageUnavailable)
	}
	return circuitbreaker.NewCircuitBreaker(cfg)
}

// Location is the calendar time zone in use.
func (s *Service) Location() *time.Location {
	return s.loc
}

// call runs fn against the store under the query timeout and the breaker,
// and classifies whatever it returns.
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

// ListCompletions returns one row per habit of owner (or just habitID when
// it is non-empty) with the completions that fall inside w.
func (s *Service) ListCompletions(ctx context.Context, owner, habitID string, w Window) ([]model.RangeRow, error) {
	const op = "list completions"
	log := logger.WithTrace(ctx, s.logger)

	ownerID, err := ParseID("uid", owner)
	if err != nil {
		return nil, err
	}
	var habitFilter *uuid.UUID
	if habitID != "" {
		hid, err := ParseID("hid", habitID)
		if err != nil {
			return nil, err
		}
		habitFilter = &hid
	}
	w = w.truncated()
	if err := w.validate(op); err != nil {
		return nil, err
	}

	log.Debug("Listing completions",
		zap.String("owner_id", ownerID.String()),
		zap.String("habit_id", habitID),
		zap.Time("start", w.Start),
		zap.Time("end", w.End),
	)

	var habits []model.HabitCompletions
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		habits, err = s.store.CompletionsInWindow(ctx, ownerID, habitFilter, w)
		return err
	})
	if err != nil {
		return nil, err
	}

	rows := make([]model.RangeRow, 0, len(habits))
	for _, hc := range habits {
		if hc.Habit.OwnerID != ownerID {
			continue
		}
		if habitFilter != nil && hc.Habit.ID != *habitFilter {
			continue
		}
		dates := make([]time.Time, 0, len(hc.CompletedOn))
		for _, t := range hc.CompletedOn {
			if w.Contains(t) {
				dates = append(dates, t)
			}
		}
		sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
		rows = append(rows, model.RangeRow{
			ID:             hc.Habit.ID,
			Title:          hc.Habit.Title,
			CreatedOn:      hc.Habit.CreatedOn,
			CompletedDates: dates,
			Total:          len(dates),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedOn.Equal(rows[j].CreatedOn) {
			return rows[i].CreatedOn.After(rows[j].CreatedOn)
		}
		return rows[i].ID.String() < rows[j].ID.String()
	})

	log.Debug("Listed completions",
		zap.String("owner_id", ownerID.String()),
		zap.Int("habits", len(rows)),
	)
	return rows, nil
}

// Scoreboard ranks every habit of owner by its longest run of consecutive
// days, longest first. Habits without completions are listed with 0.
func (s *Service) Scoreboard(ctx context.Context, owner string) ([]model.ScoreRow, error) {
	const op = "scoreboard"
	log := logger.WithTrace(ctx, s.logger)

	ownerID, err := ParseID("uid", owner)
	if err != nil {
		return nil, err
	}

	var habits []model.HabitCompletions
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		habits, err = s.store.CompletionHistory(ctx, ownerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	// creation order first so equal streaks keep it after the stable sort
	sort.SliceStable(habits, func(i, j int) bool {
		return habits[i].Habit.CreatedOn.After(habits[j].Habit.CreatedOn)
	})

	now := s.now()
	rows := make([]model.ScoreRow, 0, len(habits))
	for _, hc := range habits {
		if hc.Habit.OwnerID != ownerID {
			continue
		}
		runs, err := BuildRuns(hc.CompletedOn, s.loc)
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.ScoreRow{
			ID:      hc.Habit.ID,
			Habit:   hc.Habit.Title,
			Streak:  LongestRun(runs),
			Current: CurrentRun(runs, now, s.loc),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Streak > rows[j].Streak })

	log.Debug("Built scoreboard",
		zap.String("owner_id", ownerID.String()),
		zap.Int("habits", len(rows)),
	)
	return rows, nil
}

// RecordCompletion marks habitID done at completedOn, or now when it is the
// zero time. The habit must belong to owner.
func (s *Service) RecordCompletion(ctx context.Context, owner, habitID string, completedOn time.Time) (model.Completion, error) {
	const op = "record completion"
	log := logger.WithTrace(ctx, s.logger)

	ownerID, err := ParseID("uid", owner)
	if err != nil {
		return model.Completion{}, err
	}
	hid, err := ParseID("hid", habitID)
	if err != nil {
		return model.Completion{}, err
	}
	if completedOn.IsZero() {
		completedOn = s.now()
	}

	var c model.Completion
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		c, err = s.store.InsertCompletion(ctx, ownerID, hid, completedOn)
		return err
	})
	if err != nil {
		log.Warn("Failed to record completion",
			zap.String("owner_id", ownerID.String()),
			zap.String("habit_id", hid.String()),
			zap.Error(err),
		)
		return model.Completion{}, err
	}

	metrics.AddCompletions("recorded", 1)
	log.Info("Completion recorded",
		zap.String("completion_id", c.ID.String()),
		zap.String("habit_id", hid.String()),
		zap.Time("completed_on", c.CompletedOn),
	)
	return c, nil
}

// DeleteCompletionsInRange removes the habit's completions inside w. A
// zero count with a nil error means nothing matched.
func (s *Service) DeleteCompletionsInRange(ctx context.Context, owner, habitID string, w Window) (int64, error) {
	const op = "delete completions"
	log := logger.WithTrace(ctx, s.logger)

	ownerID, err := ParseID("uid", owner)
	if err != nil {
		return 0, err
	}
	hid, err := ParseID("hid", habitID)
	if err != nil {
		return 0, err
	}
	w = w.truncated()
	if err := w.validate(op); err != nil {
		return 0, err
	}

	var n int64
	err = s.call(ctx, op, func(ctx context.Context) error {
		var err error
		n, err = s.store.DeleteCompletions(ctx, ownerID, hid, w)
		return err
	})
	if err != nil {
		return 0, err
	}

	metrics.AddCompletions("deleted", n)
	log.Info("Completions deleted",
		zap.String("owner_id", ownerID.String()),
		zap.String("habit_id", hid.String()),
		zap.Int64("deleted", n),
	)
	return n, nil
}
