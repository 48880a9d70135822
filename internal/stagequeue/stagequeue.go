// Package stagequeue implements the bounded FIFO + worker-pool building
// block every pipeline stage is built from (spec §4.6 Stage queue): a
// fixed-capacity channel feeding N worker goroutines, draining cooperatively
// on cancellation rather than abandoning in-flight items mid-step.
package stagequeue

import (
	"sync"
	"sync/atomic"

	"github.com/ytsubs/core/internal/cancel"
)

// Handler processes one item. A non-nil error does not stop the queue;
// the caller-supplied handler is responsible for its own error routing
// (classification, failure logging, manifest updates) per §4.8 — the
// queue itself only counts successes vs. failures for Stats.
type Handler[T any] func(item T) error

// Stats summarizes a queue's lifetime processing counts.
type Stats struct {
	Submitted int64
	Succeeded int64
	Failed    int64
}

// Queue is a bounded FIFO of items of type T, drained by a fixed pool of
// worker goroutines running Handler concurrently.
type Queue[T any] struct {
	items   chan T
	workers int
	handler Handler[T]
	token   *cancel.Token

	wg sync.WaitGroup

	submitted int64
	succeeded int64
	failed    int64

	closeOnce sync.Once
}

// New creates a Queue with the given buffer capacity and worker count. The
// queue does not start processing until Start is called.
func New[T any](capacity, workers int, handler Handler[T], token *cancel.Token) *Queue[T] {
	if capacity < 1 {
		capacity = 1
	}
	if workers < 1 {
		workers = 1
	}
	return &Queue[T]{
		items:   make(chan T, capacity),
		workers: workers,
		handler: handler,
		token:   token,
	}
}

// Start launches the worker pool. Each worker pulls items until the input
// channel is closed (via CloseInput) or the cancel token fires, in which
// case it finishes the item currently in hand (the handler itself is
// responsible for checking the token between its own sub-steps), then runs
// every item still buffered through the handler (drainAsCancelled) and
// exits once the input channel is closed.
func (q *Queue[T]) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *Queue[T]) worker() {
	defer q.wg.Done()
	for {
		select {
		case item, ok := <-q.items:
			if !ok {
				return
			}
			q.process(item)
		case <-q.token.Done():
			q.drainAsCancelled()
			return
		}
	}
}

// drainAsCancelled pulls any remaining buffered items off the channel and
// still runs them through the handler, so CloseInput + Wait terminates once
// the token has fired mid-run (§5: cancellation drains queues rather than
// hanging on a full buffer) without silently dropping items that never got
// a worker. The handler's own s.cancelled() check at the top of each stage
// routes these through failItem with error_type=CANCELLED (§4.6) instead of
// doing real work.
func (q *Queue[T]) drainAsCancelled() {
	for item := range q.items {
		q.process(item)
	}
}

func (q *Queue[T]) process(item T) {
	err := q.handler(item)
	if err != nil {
		atomic.AddInt64(&q.failed, 1)
	} else {
		atomic.AddInt64(&q.succeeded, 1)
	}
}

// Submit enqueues an item, blocking if the queue is at capacity. Returns
// false without blocking forever if the cancel token fires first.
func (q *Queue[T]) Submit(item T) bool {
	select {
	case q.items <- item:
		atomic.AddInt64(&q.submitted, 1)
		return true
	case <-q.token.Done():
		return false
	}
}

// CloseInput closes the input channel, signaling workers to exit once
// drained. Safe to call multiple times. Callers must call CloseInput even
// on the cancellation path — a worker that has taken the cancel branch
// waits for the input channel to close before Wait can return.
func (q *Queue[T]) CloseInput() {
	q.closeOnce.Do(func() { close(q.items) })
}

// Wait blocks until every worker goroutine has exited.
func (q *Queue[T]) Wait() {
	q.wg.Wait()
}

// Stats returns a snapshot of this queue's lifetime counters.
func (q *Queue[T]) Stats() Stats {
	return Stats{
		Submitted: atomic.LoadInt64(&q.submitted),
		Succeeded: atomic.LoadInt64(&q.succeeded),
		Failed:    atomic.LoadInt64(&q.failed),
	}
}
