package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecutor_RunsEverySubmittedTask(t *testing.T) {
	e := NewExecutor(4, -1)
	defer e.Close()

	const n = 10000
	var wg sync.WaitGroup
	var sum atomic.Int64
	wg.Add(n)
	for i := 1; i <= n; i++ {
		v := int64(i)
		require.NoError(t, e.Submit(func() {
			sum.Add(v)
			wg.Done()
		}))
	}
	wg.Wait()
	assert.Equal(t, int64(n*(n+1)/2), sum.Load())
}

func TestExecutor_OverflowNeverDrops(t *testing.T) {
	e := NewExecutor(1, -1, WithLocalQueueSize(2))
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, e.Submit(func() {
		close(started)
		<-block
	}))
	<-started

	const n = 64
	var done atomic.Int64
	for i := 0; i < n; i++ {
		require.NoError(t, e.Submit(func() { done.Add(1) }))
	}
	assert.Positive(t, e.Stats()["overflow_tasks"])

	close(block)
	e.Close()
	assert.Equal(t, int64(n), done.Load())
}

func TestExecutor_SurvivesPanics(t *testing.T) {
	e := NewExecutor(2, -1)
	var wg sync.WaitGroup
	wg.Add(2)
	require.NoError(t, e.Submit(func() {
		defer wg.Done()
		panic("boom")
	}))
	require.NoError(t, e.Submit(func() { wg.Done() }))
	wg.Wait()
	e.Close()

	stats := e.Stats()
	assert.Equal(t, int64(1), stats["panics"])
	assert.Equal(t, int64(2), stats["completed_tasks"])
}

func TestExecutor_Resize(t *testing.T) {
	e := NewExecutor(2, -1)
	defer e.Close()

	e.Resize(6)
	assert.Equal(t, 6, e.NumWorkers())
	e.Resize(1)
	assert.Equal(t, 1, e.NumWorkers())
	e.Resize(0)
	assert.Equal(t, 1, e.NumWorkers())

	var wg sync.WaitGroup
	wg.Add(100)
	for i := 0; i < 100; i++ {
		require.NoError(t, e.Submit(wg.Done))
	}
	wg.Wait()
}

func TestExecutor_SubmitAfterClose(t *testing.T) {
	e := NewExecutor(1, -1)
	e.Close()
	e.Close()
	assert.ErrorIs(t, e.Submit(func() {}), ErrExecutorClosed)
}
