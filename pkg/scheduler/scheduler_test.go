package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"admin-dashboard/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryFires(t *testing.T) {
	s := New(logger.Discard())
	var n int32
	require.NoError(t, s.Every("tick", time.Second, func(context.Context) { atomic.AddInt32(&n, 1) }))

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return atomic.LoadInt32(&n) >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestRunAll(t *testing.T) {
	s := New(logger.Discard())
	var a, b int32
	require.NoError(t, s.Every("a", time.Hour, func(context.Context) { atomic.AddInt32(&a, 1) }))
	require.NoError(t, s.Every("b", 24*time.Hour, func(context.Context) { atomic.AddInt32(&b, 1) }))

	s.RunAll()
	assert.EqualValues(t, 1, atomic.LoadInt32(&a))
	assert.EqualValues(t, 1, atomic.LoadInt32(&b))
}

func TestEveryRejectsNonPositiveInterval(t *testing.T) {
	s := New(logger.Discard())
	var n int32
	job := func(context.Context) { atomic.AddInt32(&n, 1) }
	assert.Error(t, s.Every("zero", 0, job))
	assert.Error(t, s.Every("negative", -time.Minute, job))

	s.RunAll()
	assert.Zero(t, atomic.LoadInt32(&n))
}

func TestStopCancelsJobContext(t *testing.T) {
	s := New(logger.Discard())
	started := make(chan struct{})
	var cancelled int32
	require.NoError(t, s.Every("long", time.Second, func(ctx context.Context) {
		close(started)
		<-ctx.Done()
		atomic.StoreInt32(&cancelled, 1)
	}))
	s.Start()

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.EqualValues(t, 1, atomic.LoadInt32(&cancelled))
}

func TestPanickingJobIsRecovered(t *testing.T) {
	s := New(logger.Discard())
	var after int32
	require.NoError(t, s.Every("panics", time.Second, func(context.Context) { panic("boom") }))
	require.NoError(t, s.Every("fine", time.Second, func(context.Context) { atomic.AddInt32(&after, 1) }))

	s.Start()
	defer s.Stop(context.Background())

	require.Eventually(t, func() bool { return atomic.LoadInt32(&after) >= 1 }, 3*time.Second, 50*time.Millisecond)
}
