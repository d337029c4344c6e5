package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rainfield/internal/rainfield"
)

type recordingRefresher struct {
	mu    sync.Mutex
	calls []rainfield.FieldParams
	err   error
}

func (r *recordingRefresher) Refresh(ctx context.Context, params rainfield.FieldParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, params)
	return r.err
}

func (r *recordingRefresher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestSchedulerRunsImmediately(t *testing.T) {
	ref := &recordingRefresher{}
	fields := []rainfield.FieldParams{{GridSize: 15, Density: 50}, {GridSize: 5, Density: 10}}

	s := New(fields, time.Hour, ref, zerolog.Nop())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return ref.count() == 2 }, 2*time.Second, 10*time.Millisecond)

	ref.mu.Lock()
	assert.Equal(t, fields, ref.calls)
	ref.mu.Unlock()
}

func TestSchedulerDisabled(t *testing.T) {
	ref := &recordingRefresher{}

	s := New([]rainfield.FieldParams{{GridSize: 2, Density: 2}}, 0, ref, zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop()

	s = New(nil, time.Minute, ref, zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop()

	assert.Zero(t, ref.count())
}

func TestSchedulerContinuesAfterFailure(t *testing.T) {
	ref := &recordingRefresher{err: errors.New("upstream down")}
	fields := []rainfield.FieldParams{{GridSize: 3, Density: 3}, {GridSize: 4, Density: 4}}

	s := New(fields, time.Hour, ref, zerolog.Nop())
	s.run()

	assert.Equal(t, 2, ref.count())
}
