package pool

import (
	"sync/atomic"
	"time"
)

// Request is one outgoing unit of work. The payload is opaque to the pool;
// serialization and framing happen in the layer that created the request.
//
// A request is terminated at most once: either its payload is handed to a
// connection's write (after which only that write may fail it), or the pool
// fails it directly because it aged out in the pending queue. Success has no
// explicit signal; only failures reach the sink.
type Request struct {
	payload   []byte
	createdAt time.Time
	onError   func(error)
	failed    int32
}

// NewRequest creates a request carrying payload. onError is the failure
// sink; it may be nil if the caller does not care about failures, and is
// invoked at most once, from whichever goroutine detects the failure.
func NewRequest(payload []byte, onError func(error)) *Request {
	return &Request{
		payload:   payload,
		createdAt: time.Now(),
		onError:   onError,
	}
}

// Payload returns the opaque request payload.
func (r *Request) Payload() []byte {
	return r.payload
}

// CreatedAt returns when the request was created. Pending-queue timeouts are
// measured from this instant.
func (r *Request) CreatedAt() time.Time {
	return r.createdAt
}

// fail delivers err to the failure sink, at most once.
func (r *Request) fail(err error) {
	if !atomic.CompareAndSwapInt32(&r.failed, 0, 1) {
		return
	}
	if r.onError != nil {
		r.onError(err)
	}
}

// expired reports whether the request has been waiting longer than timeout.
func (r *Request) expired(timeout time.Duration) bool {
	return time.Since(r.createdAt) >= timeout
}
