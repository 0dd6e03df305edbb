package streak

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitrack/internal/apperr"
)

var day0 = time.Date(2024, time.March, 1, 9, 30, 0, 0, time.UTC)

func onDay(n int) time.Time {
	return day0.AddDate(0, 0, n)
}

func runDays(runs []Run) []int {
	out := make([]int, 0, len(runs))
	for _, r := range runs {
		out = append(out, r.Days)
	}
	return out
}

func TestBuildRunsEmpty(t *testing.T) {
	runs, err := BuildRuns(nil, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestBuildRunsSingle(t *testing.T) {
	runs, err := BuildRuns([]time.Time{day0}, time.UTC)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 1, runs[0].Days)
	assert.Equal(t, []time.Time{day0}, runs[0].Completions)
}

func TestBuildRunsSplitsOnGap(t *testing.T) {
	runs, err := BuildRuns([]time.Time{onDay(0), onDay(1), onDay(2), onDay(5)}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, runDays(runs))

	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), runs[0].Start)
	assert.Equal(t, time.Date(2024, time.March, 3, 0, 0, 0, 0, time.UTC), runs[0].End)
	assert.Equal(t, runs[1].Start, runs[1].End)
}

func TestBuildRunsSortsInput(t *testing.T) {
	in := []time.Time{onDay(5), onDay(1), onDay(0), onDay(2)}
	runs, err := BuildRuns(in, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1}, runDays(runs))
	// caller's slice is left alone
	assert.Equal(t, onDay(5), in[0])
}

func TestBuildRunsCollapsesSameDay(t *testing.T) {
	in := []time.Time{
		onDay(0),
		onDay(0).Add(2 * time.Hour),
		onDay(1),
		onDay(1).Add(time.Hour),
		onDay(1).Add(3 * time.Hour),
	}
	runs, err := BuildRuns(in, time.UTC)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Days)
	assert.Len(t, runs[0].Completions, 5)
}

func TestBuildRunsDuplicateDoesNotBridgeGap(t *testing.T) {
	in := []time.Time{onDay(0), onDay(0).Add(time.Hour), onDay(2)}
	runs, err := BuildRuns(in, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, runDays(runs))
}

func TestBuildRunsUsesLocationCalendar(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 23:00 UTC on Mar 1 is Mar 2 in Tokyo; 01:00 UTC on Mar 3 is Mar 3.
	a := time.Date(2024, time.March, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, time.March, 3, 1, 0, 0, 0, time.UTC)

	utcRuns, err := BuildRuns([]time.Time{a, b}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, runDays(utcRuns))

	jstRuns, err := BuildRuns([]time.Time{a, b}, tokyo)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, runDays(jstRuns))
}

func TestBuildRunsAcrossDSTChange(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	// 2024-03-10 is 23 hours long in New York.
	in := []time.Time{
		time.Date(2024, time.March, 9, 12, 0, 0, 0, ny),
		time.Date(2024, time.March, 10, 12, 0, 0, 0, ny),
		time.Date(2024, time.March, 11, 12, 0, 0, 0, ny),
	}
	runs, err := BuildRuns(in, ny)
	require.NoError(t, err)
	assert.Equal(t, []int{3}, runDays(runs))
}

func TestBuildRunsRejectsZeroInstant(t *testing.T) {
	_, err := BuildRuns([]time.Time{day0, {}}, time.UTC)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestBuildRunsPartitionProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for iter := 0; iter < 200; iter++ {
		n := rng.Intn(40)
		in := make([]time.Time, n)
		for i := range in {
			in[i] = day0.AddDate(0, 0, rng.Intn(30)).Add(time.Duration(rng.Intn(20)) * time.Hour)
		}

		runs, err := BuildRuns(in, time.UTC)
		require.NoError(t, err)

		seen := map[time.Time]int{}
		for ri, r := range runs {
			for i := 1; i < len(r.Completions); i++ {
				gap := dayNumber(r.Completions[i], time.UTC) - dayNumber(r.Completions[i-1], time.UTC)
				assert.True(t, gap == 0 || gap == 1, "gap %d inside run", gap)
			}
			for _, c := range r.Completions {
				seen[c]++
			}
			days := map[int64]bool{}
			for _, c := range r.Completions {
				days[dayNumber(c, time.UTC)] = true
			}
			assert.Equal(t, len(days), r.Days)
			if ri > 0 {
				prev := runs[ri-1]
				assert.Greater(t, dayNumber(r.Start, time.UTC)-dayNumber(prev.End, time.UTC), int64(1), "runs %d and %d could merge", ri-1, ri)
			}
		}

		want := map[time.Time]int{}
		for _, c := range in {
			want[c]++
		}
		assert.Equal(t, want, seen)
	}
}

func TestLongestRun(t *testing.T) {
	assert.Equal(t, 0, LongestRun(nil))

	runs, err := BuildRuns([]time.Time{onDay(0), onDay(1), onDay(2), onDay(10)}, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 3, LongestRun(runs))
}

func TestCurrentRun(t *testing.T) {
	runs, err := BuildRuns([]time.Time{onDay(0), onDay(3), onDay(4)}, time.UTC)
	require.NoError(t, err)

	assert.Equal(t, 2, CurrentRun(runs, onDay(4), time.UTC))
	assert.Equal(t, 2, CurrentRun(runs, onDay(5).Add(10*time.Hour), time.UTC))
	assert.Equal(t, 0, CurrentRun(runs, onDay(6), time.UTC))
	assert.Equal(t, 0, CurrentRun(nil, onDay(6), time.UTC))
}
