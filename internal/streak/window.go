package streak

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"habitrack/internal/apperr"
)

const dateOnly = "2006-01-02"

var instantLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// Window is an inclusive [Start, End] range of instants.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// storagePrecision is the resolution timestamps keep once stored.
const storagePrecision = time.Microsecond

// truncated drops the bounds to storagePrecision so filtering in process and
// in SQL agree on which instants are inside.
func (w Window) truncated() Window {
	return Window{Start: w.Start.Truncate(storagePrecision), End: w.End.Truncate(storagePrecision)}
}

func (w Window) validate(op string) error {
	if w.Start.IsZero() || w.End.IsZero() {
		return apperr.Validation(op, "startDate and endDate are required")
	}
	if w.Start.After(w.End) {
		return apperr.Validation(op, "startDate %s is after endDate %s",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
	}
	return nil
}

// ParseWindow parses the two window bounds. Each accepts RFC 3339 or a bare
// YYYY-MM-DD date interpreted in loc; a bare end date covers that whole day.
func ParseWindow(startRaw, endRaw string, loc *time.Location) (Window, error) {
	start, _, err := parseInstant("startDate", startRaw, loc)
	if err != nil {
		return Window{}, err
	}
	end, dateOnlyEnd, err := parseInstant("endDate", endRaw, loc)
	if err != nil {
		return Window{}, err
	}
	if dateOnlyEnd {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	w := Window{Start: start, End: end}.truncated()
	if err := w.validate("parse window"); err != nil {
		return Window{}, err
	}
	return w, nil
}

// ParseInstant parses a single completion timestamp. An empty string yields
// the zero time so callers can fall back to "now".
func ParseInstant(name, raw string, loc *time.Location) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, nil
	}
	t, _, err := parseInstant(name, raw, loc)
	return t, err
}

func parseInstant(name, raw string, loc *time.Location) (time.Time, bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, apperr.Validation("parse "+name, "%s is required", name)
	}
	if t, err := time.ParseInLocation(dateOnly, raw, loc); err == nil {
		return t, true, nil
	}
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, apperr.Validation("parse "+name, "invalid %s %q", name, raw)
}

// ParseID parses an owner or habit identifier.
func ParseID(name, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, apperr.Validation("parse "+name, "malformed %s %q", name, raw)
	}
	if id == uuid.Nil {
		return uuid.Nil, apperr.Validation("parse "+name, "%s must not be the nil uuid", name)
	}
	return id, nil
}
