package stagequeue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytsubs/core/internal/cancel"
)

func TestQueueProcessesAllItems(t *testing.T) {
	var processed int64
	q := New(4, 2, func(item int) error {
		atomic.AddInt64(&processed, int64(item))
		return nil
	}, cancel.New())
	q.Start()

	for i := 1; i <= 10; i++ {
		require.True(t, q.Submit(i))
	}
	q.CloseInput()
	q.Wait()

	assert.Equal(t, int64(55), atomic.LoadInt64(&processed))
	stats := q.Stats()
	assert.EqualValues(t, 10, stats.Submitted)
	assert.EqualValues(t, 10, stats.Succeeded)
	assert.EqualValues(t, 0, stats.Failed)
}

func TestQueueCountsFailures(t *testing.T) {
	q := New(4, 2, func(item int) error {
		if item%2 == 0 {
			return assertErr
		}
		return nil
	}, cancel.New())
	q.Start()
	for i := 1; i <= 6; i++ {
		q.Submit(i)
	}
	q.CloseInput()
	q.Wait()

	stats := q.Stats()
	assert.EqualValues(t, 3, stats.Succeeded)
	assert.EqualValues(t, 3, stats.Failed)
}

var assertErr = assertError("boom")

type assertError string

func (e assertError) Error() string { return string(e) }

func TestQueueDrainsOnCancellation(t *testing.T) {
	tok := cancel.New()
	started := make(chan struct{})
	block := make(chan struct{})

	q := New(10, 1, func(item int) error {
		if item == 0 {
			close(started)
			<-block
		}
		return nil
	}, tok)
	q.Start()

	q.Submit(0)
	<-started

	for i := 1; i < 10; i++ {
		q.Submit(i)
	}

	tok.Cancel("test cancellation")
	close(block)
	q.CloseInput()

	done := make(chan struct{})
	go func() {
		q.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not drain within bound after cancellation")
	}
}

func TestQueueSubmitUnblocksOnCancel(t *testing.T) {
	tok := cancel.New()
	// Worker pool is never started, so the buffered channel fills and stays
	// full: the second Submit is guaranteed to block on the channel send
	// until the cancel branch becomes ready.
	q := New(1, 1, func(item int) error { return nil }, tok)

	require.True(t, q.Submit(1))

	done := make(chan bool, 1)
	go func() { done <- q.Submit(2) }()

	// Give the second Submit time to start blocking on the full channel
	// before firing cancel, so a bug that resolves the select the other
	// way on the first attempt isn't masked by timing luck.
	time.Sleep(20 * time.Millisecond)
	tok.Cancel("stop")

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("submit did not return after cancel")
	}
}
