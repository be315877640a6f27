package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okdriver/backend/internal/logger"
)

type countingSweeper struct {
	calls atomic.Int64
	n     int64
	err   error
}

func (c *countingSweeper) SweepExpired(context.Context) (int64, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func TestRunOnce_RecordsStats(t *testing.T) {
	sw := &countingSweeper{n: 3}
	s := NewScheduler(sw, time.Minute, logger.Discard())

	s.RunOnce(context.Background())
	s.RunOnce(context.Background())

	stats := s.GetStats()
	assert.Equal(t, int64(2), stats.RunCount)
	assert.Equal(t, int64(3), stats.LastExpired)
	assert.Equal(t, int64(6), stats.TotalExpired)
	assert.Zero(t, stats.ErrorCount)
	assert.False(t, stats.LastRun.IsZero())
}

func TestRunOnce_CountsErrors(t *testing.T) {
	s := NewScheduler(&countingSweeper{err: errors.New("db down")}, time.Minute, logger.Discard())

	s.RunOnce(context.Background())

	stats := s.GetStats()
	assert.Equal(t, int64(1), stats.ErrorCount)
	assert.Zero(t, stats.TotalExpired)
}

func TestStart_SweepsImmediatelyAndOnTick(t *testing.T) {
	sw := &countingSweeper{}
	s := NewScheduler(sw, 10*time.Millisecond, logger.Discard())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return sw.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	assert.True(t, s.IsRunning())

	s.Stop()
	<-done
	assert.False(t, s.IsRunning())
}

func TestStart_StopsOnContextCancel(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, time.Hour, logger.Discard())
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	require.Eventually(t, s.IsRunning, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}

func TestNewScheduler_DefaultInterval(t *testing.T) {
	s := NewScheduler(&countingSweeper{}, 0, logger.Discard())
	assert.Equal(t, DefaultInterval, s.GetStats().Interval)
}
