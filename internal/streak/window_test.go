package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitrack/internal/apperr"
)

func TestParseWindowDateOnlyEndCoversDay(t *testing.T) {
	w, err := ParseWindow("2024-03-01", "2024-03-03", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), w.Start)
	assert.True(t, w.Contains(time.Date(2024, 3, 3, 23, 59, 59, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)))
}

func TestParseWindowRFC3339(t *testing.T) {
	w, err := ParseWindow("2024-03-01T10:00:00Z", "2024-03-01T12:00:00+02:00", time.UTC)
	require.NoError(t, err)
	assert.True(t, w.Contains(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 3, 1, 10, 0, 1, 0, time.UTC)))
}

func TestParseWindowKeepsMicrosecondPrecision(t *testing.T) {
	w, err := ParseWindow("2024-03-01T10:00:00.0000005Z", "2024-03-01", time.UTC)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 999999000, time.UTC), w.End)
	assert.True(t, w.Contains(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
}

func TestParseWindowErrors(t *testing.T) {
	tests := []struct {
		name       string
		start, end string
	}{
		{"start after end", "2024-03-05", "2024-03-01"},
		{"garbage start", "yesterday", "2024-03-01"},
		{"missing end", "2024-03-01", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseWindow(tt.start, tt.end, time.UTC)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestParseInstantEmptyMeansNow(t *testing.T) {
	ts, err := ParseInstant("completed_on", "  ", time.UTC)
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}

func TestParseID(t *testing.T) {
	_, err := ParseID("uid", "not-a-uuid")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ParseID("uid", "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	id, err := ParseID("uid", "6f1c2a38-6b0f-4b53-9c56-3f0e5b0a8a11")
	require.NoError(t, err)
	assert.Equal(t, "6f1c2a38-6b0f-4b53-9c56-3f0e5b0a8a11", id.String())
}
