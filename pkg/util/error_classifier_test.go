package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"habitrack/internal/apperr"
)

func TestIsRetryableError(t *testing.T) {
	var payload struct{ A int }
	jsonErr := json.Unmarshal([]byte("{"), &payload)

	tests := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"nil", nil, false, ""},
		{"json", fmt.Errorf("decode: %w", jsonErr), false, "json_decode_error"},
		{"validation", apperr.Validation("op", "bad"), false, "validation_error"},
		{"constraint", apperr.Constraint("op", "dup"), false, "constraint_violation"},
		{"storage", apperr.Unavailable("op", errors.New("conn reset")), true, "storage_unavailable"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"other", errors.New("?"), false, "unknown_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(tt.err)
			assert.Equal(t, tt.retryable, retryable)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(1, 3, true))
	assert.True(t, ShouldRetry(3, 3, true))
	assert.False(t, ShouldRetry(4, 3, true))
	assert.False(t, ShouldRetry(1, 3, false))
}
