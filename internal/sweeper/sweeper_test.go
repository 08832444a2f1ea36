package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remindly/remindly-server/internal/model"
)

type sweepMemories struct {
	mu        sync.Mutex
	gotCutoff time.Time
	deleted   int64
	err       error
	calls     int
}

func (s *sweepMemories) Reserve(ctx context.Context, m *model.Memory) (*model.Memory, error) {
	return nil, nil
}
func (s *sweepMemories) Finalize(ctx context.Context, m *model.Memory) (*model.Memory, error) {
	return nil, nil
}
func (s *sweepMemories) Release(ctx context.Context, ownerID, memoryID string) error { return nil }
func (s *sweepMemories) Get(ctx context.Context, ownerID, memoryID string) (*model.Memory, error) {
	return nil, model.ErrNotFound
}
func (s *sweepMemories) List(ctx context.Context, ownerID string) ([]*model.Memory, error) {
	return nil, nil
}
func (s *sweepMemories) Candidates(ctx context.Context, ownerID string) ([]*model.Memory, error) {
	return nil, nil
}
func (s *sweepMemories) UpdateComment(ctx context.Context, ownerID, memoryID, comment string) (*model.Memory, error) {
	return nil, model.ErrNotFound
}

func (s *sweepMemories) DeleteExpiredReservations(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotCutoff = cutoff
	return s.deleted, s.err
}

func TestSweepOnceUsesTTLCutoff(t *testing.T) {
	mem := &sweepMemories{deleted: 3}
	s := New(mem, Config{TTL: time.Hour, Interval: time.Minute}, zerolog.Nop())

	before := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.SweepOnce(context.Background()))
	after := time.Now().UTC().Add(-time.Hour)

	assert.False(t, mem.gotCutoff.Before(before))
	assert.False(t, mem.gotCutoff.After(after))
}

func TestSweepOnceError(t *testing.T) {
	mem := &sweepMemories{err: errors.New("db down")}
	s := New(mem, Config{TTL: time.Hour, Interval: time.Minute}, zerolog.Nop())
	assert.Error(t, s.SweepOnce(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	mem := &sweepMemories{}
	s := New(mem, Config{TTL: time.Hour, Interval: 10 * time.Millisecond}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}

	mem.mu.Lock()
	defer mem.mu.Unlock()
	assert.Greater(t, mem.calls, 0)
}
