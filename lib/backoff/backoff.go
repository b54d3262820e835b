// Package backoff provides exponential-backoff admission control for remote
// endpoints. Each endpoint owns one Strategy; the pool reports write failures
// into it and a load balancer asks it whether the endpoint is currently fit
// to serve requests.
//
// The strategy is lock-free: lastError and backoff are independent atomic
// scalars updated with compare-and-swap. A lost CAS means a concurrent caller
// already advanced (or reset) the value, which at worst leaves a slightly
// smaller backoff in place. It never corrupts pool state.
package backoff

import (
	"sync/atomic"
	"time"

	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// Backoff bounds. The backoff duration doubles on each reported error,
// clamped to [MinBackoff, MaxBackoff], and resets to zero once the endpoint
// has been error-free for more than 2*MaxBackoff.
const (
	MinBackoff = 100 * time.Millisecond
	MaxBackoff = 3200 * time.Millisecond
)

// AdmissionPolicy is the capability consumed by a load balancer: whether an
// endpoint should currently receive requests.
type AdmissionPolicy interface {
	CanServe() bool
}

// Strategy derives endpoint admission decisions from a stream of reported
// errors. The zero value is not usable; use NewStrategy.
type Strategy struct {
	// lastError is the unix-nano timestamp of the most recent reported
	// error, 0 when no error has been reported.
	lastError int64
	// backoff is the current backoff in nanoseconds, 0 or within
	// [MinBackoff, MaxBackoff].
	backoff int64

	now func() time.Time
}

// NewStrategy creates a Strategy with no error history.
func NewStrategy() *Strategy {
	return &Strategy{now: time.Now}
}

// ReportError records an error against the endpoint, stamping the error time
// and doubling the backoff up to MaxBackoff.
func (s *Strategy) ReportError() {
	atomic.StoreInt64(&s.lastError, s.now().UnixNano())

	cur := atomic.LoadInt64(&s.backoff)
	next := cur * 2
	if next < int64(MinBackoff) {
		next = int64(MinBackoff)
	}
	if next > int64(MaxBackoff) {
		next = int64(MaxBackoff)
	}

	// A lost CAS means a concurrent reporter already moved backoff forward.
	if atomic.CompareAndSwapInt64(&s.backoff, cur, next) {
		log.WithField("backoff", time.Duration(next)).Debug("endpoint backoff increased")
	}
}

// CanServe reports whether the endpoint is currently fit to serve requests.
// An endpoint serves when more time than the current backoff has elapsed
// since its last error. After more than 2*MaxBackoff without errors the
// backoff self-heals back to zero; a lost reset race just means another
// caller already reset it.
func (s *Strategy) CanServe() bool {
	b := atomic.LoadInt64(&s.backoff)
	elapsed := s.now().UnixNano() - atomic.LoadInt64(&s.lastError)

	if b != 0 && elapsed > 2*int64(MaxBackoff) {
		atomic.CompareAndSwapInt64(&s.backoff, b, 0)
		b = 0
	}

	return elapsed > b
}

// Backoff returns the current backoff duration.
func (s *Strategy) Backoff() time.Duration {
	return time.Duration(atomic.LoadInt64(&s.backoff))
}

// LastError returns the time of the most recent reported error, or the zero
// time if no error has been reported.
func (s *Strategy) LastError() time.Time {
	ns := atomic.LoadInt64(&s.lastError)
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
