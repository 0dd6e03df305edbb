package mqhandler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"habitrack/internal/apperr"
	"habitrack/pkg/util"
)

type fakePurger struct {
	calls []uuid.UUID
	err   error
	block bool
}

func (f *fakePurger) PurgeHabit(ctx context.Context, habitID uuid.UUID) (int64, error) {
	f.calls = append(f.calls, habitID)
	if f.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 2, f.err
}

type memDeduper struct {
	done map[string]bool
}

func (d *memDeduper) Seen(ctx context.Context, handler, key string) bool {
	return d.done[handler+":"+key]
}

func (d *memDeduper) MarkDone(ctx context.Context, handler, key string) {
	d.done[handler+":"+key] = true
}

func payloadFor(hid uuid.UUID) json.RawMessage {
	return json.RawMessage(`{"hid":"` + hid.String() + `","uid":"` + uuid.NewString() + `"}`)
}

func TestHabitDeletedPurgesOnce(t *testing.T) {
	purger := &fakePurger{}
	dedup := &memDeduper{done: map[string]bool{}}
	h := NewHabitDeletedHandler(purger, dedup, time.Second, zap.NewNop())
	hid := uuid.New()
	raw := payloadFor(hid)

	require.NoError(t, h.Handle(context.Background(), raw))
	require.NoError(t, h.Handle(context.Background(), raw))
	assert.Equal(t, []uuid.UUID{hid}, purger.calls)
}

func TestHabitDeletedFailureLeavesNoDedupKey(t *testing.T) {
	purger := &fakePurger{err: apperr.Unavailable("purge", errors.New("down"))}
	dedup := &memDeduper{done: map[string]bool{}}
	h := NewHabitDeletedHandler(purger, dedup, time.Second, zap.NewNop())
	raw := payloadFor(uuid.New())

	err := h.Handle(context.Background(), raw)
	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.Empty(t, dedup.done)

	retryable, _ := util.IsRetryableError(err)
	assert.True(t, retryable)

	// redelivery is processed again and succeeds
	purger.err = nil
	require.NoError(t, h.Handle(context.Background(), raw))
	assert.Len(t, purger.calls, 2)
	assert.Len(t, dedup.done, 1)
}

func TestHabitDeletedStalledStoreTimesOut(t *testing.T) {
	purger := &fakePurger{block: true}
	dedup := &memDeduper{done: map[string]bool{}}
	h := NewHabitDeletedHandler(purger, dedup, 20*time.Millisecond, zap.NewNop())

	start := time.Now()
	err := h.Handle(context.Background(), payloadFor(uuid.New()))
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	retryable, _ := util.IsRetryableError(err)
	assert.True(t, retryable)
	assert.Empty(t, dedup.done)
}

func TestHabitDeletedRejectsBadPayload(t *testing.T) {
	h := NewHabitDeletedHandler(&fakePurger{}, nil, 0, zap.NewNop())

	err := h.Handle(context.Background(), json.RawMessage(`{`))
	retryable, kind := util.IsRetryableError(err)
	assert.False(t, retryable)
	assert.Equal(t, "json_decode_error", kind)

	err = h.Handle(context.Background(), json.RawMessage(`{"hid":"nope"}`))
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
