package otel

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObservePassesThroughResult(t *testing.T) {
	called := false
	err := Observe(context.Background(), "select", "habits", func(ctx context.Context) error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)

	boom := errors.New("boom")
	err = Observe(context.Background(), "select", "habits", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}
