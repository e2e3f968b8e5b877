package session

import (
	"context"
	"sync"
)

// dispatchQueue is the unbounded FIFO of pre-serialized messages bound
// for the upstream socket. Multiple producers (downstream audio, tool
// results) enqueue concurrently; the sender loop is the single
// consumer. Unbounded by design: blocking audio capture is worse than
// growing memory over a short call.
type dispatchQueue struct {
	mu     sync.Mutex
	items  [][]byte
	closed bool
	wake   chan struct{}
}

func newDispatchQueue() *dispatchQueue {
	return &dispatchQueue{wake: make(chan struct{}, 1)}
}

// Enqueue appends the given messages as one atomic batch. Messages in a
// batch are never interleaved with other producers' messages.
func (q *dispatchQueue) Enqueue(msgs ...[]byte) {
	if len(msgs) == 0 {
		return
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, msgs...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Close makes Dequeue return false; queued but unsent messages are
// discarded with the session.
func (q *dispatchQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.items = nil
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// Dequeue blocks until a message is available, the queue is closed, or
// the context is canceled.
func (q *dispatchQueue) Dequeue(ctx context.Context) ([]byte, bool) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			msg := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return msg, true
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, false
		}

		select {
		case <-ctx.Done():
			return nil, false
		case <-q.wake:
		}
	}
}
