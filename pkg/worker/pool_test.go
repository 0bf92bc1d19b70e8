package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falaki/spark/metric"
)

func TestPool_ProcessesAllItems(t *testing.T) {
	var processed int64
	var wg sync.WaitGroup

	pool := NewPool(4, 32, func(ctx context.Context, n int) error {
		defer wg.Done()
		atomic.AddInt64(&processed, int64(n))
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	total := 0
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(i))
		total += i
	}
	wg.Wait()

	require.NoError(t, pool.Stop(time.Second))
	assert.Equal(t, int64(total), atomic.LoadInt64(&processed))
	assert.Equal(t, int64(10), pool.Stats().Processed)
}

func TestPool_SubmitBeforeStart(t *testing.T) {
	pool := NewPool(1, 1, func(ctx context.Context, _ int) error { return nil })
	assert.ErrorIs(t, pool.Submit(1), ErrPoolNotStarted)
}

func TestPool_QueueFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	pool := NewPool(1, 1, func(ctx context.Context, _ int) error {
		started <- struct{}{}
		<-block
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	// First item occupies the worker, second fills the queue.
	require.NoError(t, pool.Submit(1))
	<-started
	require.NoError(t, pool.Submit(2))

	err := pool.Submit(3)
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), pool.Stats().Dropped)

	close(block)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_FailedItemsCounted(t *testing.T) {
	var wg sync.WaitGroup
	pool := NewPool(2, 8, func(ctx context.Context, fail bool) error {
		defer wg.Done()
		if fail {
			return errors.New("boom")
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	for _, fail := range []bool{true, false, true} {
		wg.Add(1)
		require.NoError(t, pool.Submit(fail))
	}
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	stats := pool.Stats()
	assert.Equal(t, int64(3), stats.Processed)
	assert.Equal(t, int64(2), stats.Failed)
}

func TestPool_DoubleStart(t *testing.T) {
	pool := NewPool(1, 1, func(ctx context.Context, _ int) error { return nil })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))
	assert.ErrorIs(t, pool.Start(ctx), ErrPoolAlreadyStarted)
	require.NoError(t, pool.Stop(time.Second))
}

func TestPool_WithMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	var wg sync.WaitGroup

	pool := NewPool(2, 8,
		func(ctx context.Context, _ int) error {
			defer wg.Done()
			return nil
		},
		WithMetricsRegistry[int](registry, "partition_pool"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, pool.Start(ctx))

	wg.Add(1)
	require.NoError(t, pool.Submit(1))
	wg.Wait()
	require.NoError(t, pool.Stop(time.Second))

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "partition_pool_processed_total" {
			found = true
		}
	}
	assert.True(t, found, "pool metrics should be registered")
}

func TestPool_DrainsQueueAfterCancellation(t *testing.T) {
	const items = 20
	var seen int64
	var wg sync.WaitGroup

	pool := NewPool(1, items, func(ctx context.Context, _ int) error {
		defer wg.Done()
		atomic.AddInt64(&seen, 1)
		if err := ctx.Err(); err != nil {
			return err
		}
		time.Sleep(5 * time.Millisecond)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, pool.Start(ctx))

	for i := 0; i < items; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(i))
	}

	time.Sleep(20 * time.Millisecond)
	cancel()

	// Every accepted item still reaches the processor, so callers keyed to
	// per-item completion are released instead of waiting forever.
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("queued items were not handed to the processor after cancellation")
	}

	require.NoError(t, pool.Stop(time.Second))
	assert.Equal(t, int64(items), atomic.LoadInt64(&seen))
	assert.Equal(t, int64(items), pool.Stats().Processed)
}

func TestNewPool_NilProcessorPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewPool[int](1, 1, nil)
	})
}
