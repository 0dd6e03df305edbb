package mq

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"habitrack/internal/apperr"
)

func TestDecide(t *testing.T) {
	outage := apperr.Unavailable("purge", errors.New("connection refused"))
	invalid := apperr.Validation("purge", "bad habit id")
	var syntaxErr error = &json.SyntaxError{}

	tests := []struct {
		name       string
		err        error
		attempts   int64
		deadLetter bool
		want       deliveryAction
	}{
		{"success", nil, 1, true, actionAck},
		{"no dlq always requeues", invalid, 10, false, actionRequeue},
		{"outage within budget", outage, 3, true, actionRequeue},
		{"outage over budget", outage, 4, true, actionDeadLetter},
		{"validation goes straight to dlq", invalid, 1, true, actionDeadLetter},
		{"bad json goes straight to dlq", syntaxErr, 1, true, actionDeadLetter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decide(tt.err, tt.attempts, 3, tt.deadLetter))
		})
	}
}
