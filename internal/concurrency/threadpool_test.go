package concurrency

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadPool_DrainsOnClose(t *testing.T) {
	tp := NewThreadPool(3, 2, -1)
	require.Equal(t, 3, tp.NumWorkers())

	var n atomic.Int64
	for i := 0; i < 500; i++ {
		require.NoError(t, tp.Submit(func() { n.Add(1) }))
	}
	tp.Close()
	assert.Equal(t, int64(500), n.Load())
	assert.Equal(t, int64(500), tp.Stats()["completed_tasks"])
}

func TestThreadPool_PanicDoesNotKillWorker(t *testing.T) {
	tp := NewThreadPool(1, 0, -1)
	var ran atomic.Bool
	require.NoError(t, tp.Submit(func() { panic("x") }))
	require.NoError(t, tp.Submit(func() { ran.Store(true) }))
	tp.Close()
	assert.True(t, ran.Load())
	assert.Equal(t, int64(1), tp.Stats()["panics"])
}

func TestThreadPool_SubmitAfterClose(t *testing.T) {
	tp := NewThreadPool(1, 1, -1)
	tp.Close()
	tp.Close()
	assert.ErrorIs(t, tp.Submit(func() {}), ErrPoolClosed)
}

func TestThreadPool_TrySubmitFullQueue(t *testing.T) {
	tp := NewThreadPool(1, 1, -1)
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, tp.Submit(func() { close(started); <-block }))
	<-started

	ok, err := tp.TrySubmit(func() {})
	require.NoError(t, err)
	assert.True(t, ok, "one free queue slot")
	ok, err = tp.TrySubmit(func() {})
	require.NoError(t, err)
	assert.False(t, ok, "queue full")

	close(block)
	tp.Close()
	_, err = tp.TrySubmit(func() {})
	assert.ErrorIs(t, err, ErrPoolClosed)
}
