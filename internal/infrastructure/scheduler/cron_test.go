package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronSchedulerLifecycle(t *testing.T) {
	s := NewCronScheduler(time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()

	assert.False(t, s.Running())
	assert.True(t, s.NextRun().IsZero())

	require.NoError(t, s.Start(ctx, func() {}))
	assert.True(t, s.Running())
	assert.False(t, s.NextRun().IsZero())

	// starting twice is a no-op
	require.NoError(t, s.Start(ctx, func() {}))

	require.NoError(t, s.Stop(ctx))
	assert.False(t, s.Running())
	assert.True(t, s.NextRun().IsZero())

	// stopping twice is a no-op
	require.NoError(t, s.Stop(ctx))
}

func TestCronSchedulerRejectsNilJob(t *testing.T) {
	s := NewCronScheduler(time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, s.Start(context.Background(), nil))
}

func TestCronSchedulerRunsJob(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	var runs atomic.Int32
	s := NewCronScheduler(time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Start(context.Background(), func() { runs.Add(1) }))
	defer s.Stop(context.Background())

	time.Sleep(1500 * time.Millisecond)
	assert.GreaterOrEqual(t, runs.Load(), int32(1))
}

func TestCronSchedulerSkipsOverlappingTicks(t *testing.T) {
	if testing.Short() {
		t.Skip("timing-sensitive")
	}

	var runs atomic.Int32
	s := NewCronScheduler(time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, s.Start(context.Background(), func() {
		runs.Add(1)
		time.Sleep(2500 * time.Millisecond)
	}))
	defer s.Stop(context.Background())

	// three ticks elapse while the first run is still sleeping
	time.Sleep(3600 * time.Millisecond)
	assert.Equal(t, int32(1), runs.Load(), "overlapping ticks must be dropped, not queued")
}
