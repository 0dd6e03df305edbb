// Package streak groups completion events into runs of consecutive calendar
// days and derives the windowed listings and scoreboards served to callers.
package streak

import (
	"sort"
	"time"

	"habitrack/internal/apperr"
)

// Run is a maximal stretch of consecutive calendar days with at least one
// completion each.
type Run struct {
	// Start and End are midnight, in the builder's location, of the first
	// and last day of the run.
	Start time.Time
	End   time.Time
	// Days counts distinct calendar days. Several completions on one day
	// count once.
	Days int
	// Completions holds every input instant that fell inside the run,
	// ascending, duplicates included.
	Completions []time.Time
}

// dayNumber is the civil date of t in loc as a count of days since the
// Unix epoch. Comparing day numbers is immune to DST-length days.
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func midnight(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// BuildRuns partitions times into maximal runs of consecutive calendar days
// as observed in loc (UTC when nil). The input is not modified and need not
// be sorted. A zero instant is rejected.
func BuildRuns(times []time.Time, loc *time.Location) ([]Run, error) {
	if loc == nil {
		loc = time.UTC
	}
	if len(times) == 0 {
		return nil, nil
	}

	sorted := make([]time.Time, len(times))
	copy(sorted, times)
	for i, t := range sorted {
		if t.IsZero() {
			return nil, apperr.Validation("build runs", "completion %d has no timestamp", i)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var runs []Run
	var cur *Run
	var lastDay int64
	for _, t := range sorted {
		day := dayNumber(t, loc)
		switch {
		case cur != nil && day == lastDay:
			// same day: joins the run, does not lengthen it
		case cur != nil && day == lastDay+1:
			cur.Days++
			cur.End = midnight(t, loc)
		default:
			runs = append(runs, Run{Start: midnight(t, loc), End: midnight(t, loc), Days: 1})
			cur = &runs[len(runs)-1]
		}
		cur.Completions = append(cur.Completions, t)
		lastDay = day
	}
	return runs, nil
}

// LongestRun returns the largest Days across runs, 0 for none.
func LongestRun(runs []Run) int {
	longest := 0
	for _, r := range runs {
		if r.Days > longest {
			longest = r.Days
		}
	}
	return longest
}

// CurrentRun returns the length of the run that is still unbroken at now:
// one whose last day is today or yesterday in loc. Runs must be in the order
// BuildRuns returns them.
func CurrentRun(runs []Run, now time.Time, loc *time.Location) int {
	if len(runs) == 0 {
		return 0
	}
	if loc == nil {
		loc = time.UTC
	}
	last := runs[len(runs)-1]
	gap := dayNumber(now, loc) - dayNumber(last.End, loc)
	if gap == 0 || gap == 1 {
		return last.Days
	}
	return 0
}
