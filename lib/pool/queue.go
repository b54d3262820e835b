package pool

import "sync"

// pendingQueue is an unbounded multi-producer/multi-consumer FIFO of
// requests awaiting a connection. The mutex guards only the queue itself,
// never any pool I/O, so contention stays short.
type pendingQueue struct {
	mu    sync.Mutex
	items []*Request
	head  int
}

func newPendingQueue() *pendingQueue {
	return &pendingQueue{}
}

// push appends a request to the tail.
func (q *pendingQueue) push(r *Request) {
	q.mu.Lock()
	q.items = append(q.items, r)
	q.mu.Unlock()
}

// pop removes and returns the oldest request, or nil when the queue is
// empty.
func (q *pendingQueue) pop() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return nil
	}

	r := q.items[q.head]
	q.items[q.head] = nil
	q.head++

	// Reclaim the drained prefix once it dominates the backing array.
	if q.head > 64 && q.head > len(q.items)/2 {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return r
}

// depth returns the number of queued requests.
func (q *pendingQueue) depth() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
