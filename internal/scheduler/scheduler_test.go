package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNextRunAlignsToBoundary(t *testing.T) {
	interval := 15 * time.Minute
	skew := 20 * time.Second

	now := time.Date(2024, 6, 3, 12, 7, 0, 0, time.UTC)
	assert.Equal(t,
		time.Date(2024, 6, 3, 12, 15, 20, 0, time.UTC),
		NextRun(now, interval, skew))

	// Inside the skew window the current boundary is still usable.
	now = time.Date(2024, 6, 3, 12, 15, 5, 0, time.UTC)
	assert.Equal(t,
		time.Date(2024, 6, 3, 12, 15, 20, 0, time.UTC),
		NextRun(now, interval, skew))

	// Just past the skew window, move to the next boundary.
	now = time.Date(2024, 6, 3, 12, 15, 25, 0, time.UTC)
	assert.Equal(t,
		time.Date(2024, 6, 3, 12, 30, 20, 0, time.UTC),
		NextRun(now, interval, skew))
}

func TestNextRunIsAlwaysInTheFuture(t *testing.T) {
	now := time.Now()
	next := NextRun(now, time.Minute, 10*time.Second)
	assert.True(t, next.After(now))
}

func TestRunExecutesCyclesUntilCancelled(t *testing.T) {
	var cycles int32
	sched := New(50*time.Millisecond, 0, false, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 180*time.Millisecond)
	defer cancel()

	err := sched.Run(ctx, func(context.Context) {
		atomic.AddInt32(&cycles, 1)
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&cycles), int32(2))
}

func TestRunImmediatelyFiresStartupCycle(t *testing.T) {
	var cycles int32
	sched := New(time.Hour, 0, true, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_ = sched.Run(ctx, func(context.Context) {
		atomic.AddInt32(&cycles, 1)
	})
	assert.Equal(t, int32(1), atomic.LoadInt32(&cycles))
}
