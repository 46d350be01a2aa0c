package sink

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrQueueFull is returned by Queue.Write when the queue is at capacity.
var ErrQueueFull = errors.New("sink: queue full")

// DefaultQueueCapacity is used when NewQueue is given a capacity <= 0.
const DefaultQueueCapacity = 1024

// Queue keeps every write, in order, for a consumer goroutine. A full queue
// rejects the write, which ends the recording: Queue never drops silently.
type Queue struct {
	mu     sync.Mutex
	items  chan []byte
	closed bool
}

// NewQueue creates a queue holding at most capacity writes.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{items: make(chan []byte, capacity)}
}

// Write implements io.Writer. p is queued without copying.
func (q *Queue) Write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return 0, io.ErrClosedPipe
	}
	select {
	case q.items <- p:
		return len(p), nil
	default:
		return 0, ErrQueueFull
	}
}

// Read blocks until an item is available. After Close it drains the
// remaining items and then returns io.EOF.
func (q *Queue) Read(ctx context.Context) ([]byte, error) {
	select {
	case p, ok := <-q.items:
		if !ok {
			return nil, io.EOF
		}
		return p, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// TryRead returns the next item without blocking.
func (q *Queue) TryRead() ([]byte, bool) {
	select {
	case p, ok := <-q.items:
		return p, ok
	default:
		return nil, false
	}
}

// Len returns the number of queued items.
func (q *Queue) Len() int {
	return len(q.items)
}

// Close stops accepting writes. Idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.items)
	}
	return nil
}
