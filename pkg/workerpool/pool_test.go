package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/pkg/workerpool"
)

func TestPoolRunsEveryTask(t *testing.T) {
	pool := workerpool.New(4)

	var count atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.SubmitWait(context.Background(), func(context.Context) {
			count.Add(1)
		}))
	}
	pool.Shutdown()

	assert.EqualValues(t, 100, count.Load())
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := workerpool.New(3)

	var running, peak atomic.Int32
	for i := 0; i < 30; i++ {
		_ = pool.SubmitWait(context.Background(), func(context.Context) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			running.Add(-1)
		})
	}
	pool.Shutdown()

	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestSubmitReportsFullQueue(t *testing.T) {
	pool := workerpool.New(1)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	_ = pool.SubmitWait(context.Background(), func(context.Context) {
		close(started)
		<-blocker
	})
	<-started

	_ = pool.Submit(context.Background(), func(context.Context) {})
	_ = pool.Submit(context.Background(), func(context.Context) {})

	err := pool.Submit(context.Background(), func(context.Context) {})
	assert.True(t, errors.Is(err, workerpool.ErrPoolFull))
	close(blocker)
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := workerpool.New(2)
	pool.Shutdown()
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(context.Background(), func(context.Context) {}), workerpool.ErrPoolClosed)
	assert.ErrorIs(t, pool.SubmitWait(context.Background(), func(context.Context) {}), workerpool.ErrPoolClosed)
}

func TestSubmitWaitHonoursContext(t *testing.T) {
	pool := workerpool.New(1)
	blocker := make(chan struct{})
	defer func() {
		close(blocker)
		pool.Shutdown()
	}()

	started := make(chan struct{})
	_ = pool.SubmitWait(context.Background(), func(context.Context) {
		close(started)
		<-blocker
	})
	<-started
	for i := 0; i < 2; i++ {
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) { <-blocker }))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.SubmitWait(ctx, func(context.Context) {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPanickingTaskDoesNotStopWorker(t *testing.T) {
	pool := workerpool.New(1)

	var wg sync.WaitGroup
	wg.Add(1)
	_ = pool.SubmitWait(context.Background(), func(context.Context) {
		defer wg.Done()
		panic("boom")
	})
	wg.Wait()

	done := make(chan struct{})
	_ = pool.SubmitWait(context.Background(), func(context.Context) { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive the panic")
	}
	pool.Shutdown()
}
