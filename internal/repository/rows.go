package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"habitrack/internal/model"
)

// collectHabitCompletions folds LEFT JOIN rows of
// (habit id, title, owner, created_on, completed_on?) into one entry per
// habit, keeping the row order the query produced.
func collectHabitCompletions(rows pgx.Rows) ([]model.HabitCompletions, error) {
	defer rows.Close()

	var out []model.HabitCompletions
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var (
			h           model.Habit
			completedOn *time.Time
		)
		if err := rows.Scan(&h.ID, &h.Title, &h.OwnerID, &h.CreatedOn, &completedOn); err != nil {
			return nil, err
		}
		i, ok := index[h.ID]
		if !ok {
			i = len(out)
			index[h.ID] = i
			out = append(out, model.HabitCompletions{Habit: h, CompletedOn: []time.Time{}})
		}
		if completedOn != nil {
			out[i].CompletedOn = append(out[i].CompletedOn, *completedOn)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
