package model

import (
	"time"

	"github.com/google/uuid"
)

// Completion is one "habit done" event.
type Completion struct {
	ID          uuid.UUID `json:"id"`
	HabitID     uuid.UUID `json:"hid"`
	OwnerID     uuid.UUID `json:"uid"`
	CompletedOn time.Time `json:"completed_on"`
}

// HabitCompletions pairs a habit with completion instants, ascending.
// Repositories return it for both windowed and full-history reads; a habit
// with no completions has an empty slice.
type HabitCompletions struct {
	Habit       Habit
	CompletedOn []time.Time
}

// RangeRow is one row of a windowed completion listing.
type RangeRow struct {
	ID             uuid.UUID   `json:"id"`
	Title          string      `json:"title"`
	CreatedOn      time.Time   `json:"created_on"`
	CompletedDates []time.Time `json:"completed_dates"`
	Total          int         `json:"total"`
}

// ScoreRow is one scoreboard entry.
type ScoreRow struct {
	ID    uuid.UUID `json:"id"`
	Habit string    `json:"habit"`
	// Streak is the longest run of consecutive days ever recorded.
	Streak int `json:"streak"`
	// Current is the run still alive today, 0 when broken.
	Current int `json:"current"`
}
