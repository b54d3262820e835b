package pool

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-i2p/logger"

	"github.com/go-i2p/meshrpc/lib/backoff"
	apperrors "github.com/go-i2p/meshrpc/lib/errors"
	"github.com/go-i2p/meshrpc/lib/transport"
)

var log = logger.GetGoI2PLogger()

// Config configures a connection pool.
type Config struct {
	// MaxConnections is the upper bound on concurrently owned connections
	// per endpoint (idle, connecting or draining).
	// Default: 4
	MaxConnections int
	// WriteTimeout is the maximum age of a pending request before it is
	// failed instead of written. The timeout is evaluated lazily when a
	// connection drains the queue, not by a timer.
	// Default: 5 seconds
	WriteTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxConnections: 4,
		WriteTimeout:   5 * time.Second,
	}
}

// Pool manages the connections to a single remote endpoint. All methods are
// safe for concurrent use; Submit never blocks on connection establishment
// or write completion.
type Pool struct {
	addr     string
	cfg      Config
	dialer   transport.Dialer
	group    *transport.Group
	strategy *backoff.Strategy

	// idle holds available, presumed-connected connections. Its capacity
	// is MaxConnections, so a checkin never blocks.
	idle chan transport.Conn

	// pending holds requests waiting for a connection.
	pending *pendingQueue

	openCount int32
	sentCount uint64
	closed    int32

	onClose func(*Pool)
}

// New creates a pool for addr. Connections are established through dialer
// and registered in group for bulk shutdown; dialer and group are typically
// shared across pools by a Factory.
func New(addr string, dialer transport.Dialer, group *transport.Group, cfg Config) *Pool {
	if cfg.MaxConnections <= 0 {
		cfg.MaxConnections = DefaultConfig().MaxConnections
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultConfig().WriteTimeout
	}

	p := &Pool{
		addr:     addr,
		cfg:      cfg,
		dialer:   dialer,
		group:    group,
		strategy: backoff.NewStrategy(),
		idle:     make(chan transport.Conn, cfg.MaxConnections),
		pending:  newPendingQueue(),
	}
	RegisterStatsSource(addr, p)

	log.WithField("endpoint", addr).WithField("maxConnections", cfg.MaxConnections).Debug("pool created")
	return p
}

// Submit hands a request to the pool. If an idle connection is available the
// request is written through it before Submit returns (the write completes
// asynchronously); otherwise the request joins the pending queue and a
// connection open is triggered in the background.
//
// Submit returns ErrPoolClosed after Close; in that case the request's
// failure sink is not invoked.
func (p *Pool) Submit(req *Request) error {
	if p.isClosed() {
		return apperrors.ErrPoolClosed
	}

	if c := p.checkout(); c != nil {
		p.write(req, c)
		p.checkin(c)
		return nil
	}

	p.openConnection()
	p.pending.push(req)
	return nil
}

// checkout pops idle connections until it finds a live one, discarding any
// that disconnected while idle. Scavenged connections are not replaced
// eagerly; replenishment happens on the next Submit that finds no idle
// connection.
func (p *Pool) checkout() transport.Conn {
	for {
		select {
		case c := <-p.idle:
			if c.IsConnected() {
				return c
			}
			atomic.AddInt32(&p.openCount, -1)
			p.group.Remove(c)
			c.Close()
			ConnectionsScavenged.Inc()
			log.WithField("endpoint", p.addr).Debug("discarded stale idle connection")
		default:
			return nil
		}
	}
}

// checkin drains the pending queue through c, then returns c to the idle
// set. The drain is best-effort: requests pushed concurrently are picked up
// by whichever checkin runs next. Requests older than WriteTimeout are
// failed instead of written.
func (p *Pool) checkin(c transport.Conn) {
	for {
		req := p.pending.pop()
		if req == nil {
			break
		}
		if req.expired(p.cfg.WriteTimeout) {
			Timeouts.Inc()
			req.fail(fmt.Errorf("%w: queued longer than %v", apperrors.ErrTimeout, p.cfg.WriteTimeout))
			continue
		}
		p.write(req, c)
	}

	select {
	case p.idle <- c:
	default:
		// idle is sized to MaxConnections; overflow means the connection
		// count raced past the limit, so give this one up.
		atomic.AddInt32(&p.openCount, -1)
		p.group.Remove(c)
		c.Close()
	}
}

// openConnection starts an asynchronous connection attempt, unless the pool
// already owns MaxConnections. Both outcomes are absorbed here: a refused
// open and a failed connect only log, and the requests that wanted the
// connection stay queued until a future checkin drains them or they age out.
func (p *Pool) openConnection() {
	if p.isClosed() {
		return
	}

	if n := atomic.AddInt32(&p.openCount, 1); int(n) > p.cfg.MaxConnections {
		atomic.AddInt32(&p.openCount, -1)
		OpensRejected.Inc()
		log.WithField("endpoint", p.addr).Debug("connection limit reached, request queued")
		return
	}

	go func() {
		res := <-p.dialer.Dial(p.addr)
		if res.Err != nil {
			atomic.AddInt32(&p.openCount, -1)
			ConnectFailures.Inc()
			log.WithField("endpoint", p.addr).WithError(res.Err).Warn("connection open failed")
			return
		}

		if p.isClosed() {
			// Lost the race with Close; never hand a closed pool a
			// fresh connection.
			atomic.AddInt32(&p.openCount, -1)
			res.Conn.Close()
			return
		}

		ConnectsTotal.Inc()
		p.group.Add(res.Conn)
		p.checkin(res.Conn)
	}()
}

// write hands the request's payload to c. The attempted-write counter is
// incremented before the outcome is known. A failed write reaches both the
// request's failure sink and the endpoint's backoff strategy.
func (p *Pool) write(req *Request, c transport.Conn) {
	atomic.AddUint64(&p.sentCount, 1)
	WritesAttempted.Inc()

	result := c.Write(req.Payload())
	go func() {
		if err := <-result; err != nil {
			WriteFailures.Inc()
			p.strategy.ReportError()
			log.WithField("endpoint", p.addr).WithError(err).Debug("write failed")
			req.fail(err)
		}
	}()
}

// CanServe reports whether the endpoint behind this pool is currently fit to
// receive requests, according to its backoff strategy.
func (p *Pool) CanServe() bool {
	return p.strategy.CanServe()
}

// Strategy exposes the pool's admission strategy to the load balancer.
func (p *Pool) Strategy() *backoff.Strategy {
	return p.strategy
}

// Addr returns the endpoint address this pool serves.
func (p *Pool) Addr() string {
	return p.addr
}

func (p *Pool) isClosed() bool {
	return atomic.LoadInt32(&p.closed) == 1
}

// Close shuts the pool down: no further connections are opened, no further
// writes are issued, the pool's observability handle is dropped, and every
// connection in the shared group is closed. Close is idempotent.
//
// Requests still sitting in the pending queue are neither flushed nor
// failed; they become unreachable. Callers that need drain-on-close must
// stop submitting and wait for the queue to empty before calling Close.
func (p *Pool) Close() error {
	if !atomic.CompareAndSwapInt32(&p.closed, 0, 1) {
		return nil
	}

	UnregisterStatsSource(p.addr)
	if p.onClose != nil {
		p.onClose(p)
	}

	log.WithField("endpoint", p.addr).WithField("pending", p.pending.depth()).Debug("pool closing")
	return p.group.CloseAll()
}

// Stats returns an eventually consistent snapshot of the pool's counters.
func (p *Pool) Stats() Stats {
	return Stats{
		Endpoint:       p.addr,
		OpenCount:      int(atomic.LoadInt32(&p.openCount)),
		MaxConnections: p.cfg.MaxConnections,
		PendingWrites:  p.pending.depth(),
		SentCount:      atomic.LoadUint64(&p.sentCount),
	}
}
