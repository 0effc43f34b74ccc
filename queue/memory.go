package queue

import (
	"context"
	"sync"
)

// MemoryQueue is a buffered channel.
type MemoryQueue struct {
	mu     sync.RWMutex
	ch     chan string
	closed bool
}

// NewMemoryQueue creates a queue holding up to size pending ids.
func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}

	return &MemoryQueue{ch: make(chan string, size)}
}

// Publish implements Queue. It blocks while the buffer is full.
func (q *MemoryQueue) Publish(ctx context.Context, id string) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case q.ch <- id:
		return nil
	}
}

// Consume implements Queue. It returns when ctx is done or the queue is
// closed and drained.
func (q *MemoryQueue) Consume(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}

	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				case id, ok := <-q.ch:
					if !ok {
						return
					}

					_ = handler(ctx, id)
				}
			}
		}()
	}

	wg.Wait()

	return ctx.Err()
}

// Close implements Queue.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}

	return nil
}

var _ Queue = (*MemoryQueue)(nil)
