// Package transport provides the connection primitives consumed by the
// meshrpc connection pool: an asynchronous dial capability, an asynchronous
// write capability, and a shared group of live connections for bulk shutdown.
//
// Payloads are opaque byte slices. Framing, serialization and
// request-response correlation belong to the layers above.
package transport

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/go-i2p/logger"

	apperrors "github.com/go-i2p/meshrpc/lib/errors"
)

var log = logger.GetGoI2PLogger()

// Conn is an established bidirectional transport connection.
type Conn interface {
	// RemoteAddr returns the remote endpoint address.
	RemoteAddr() string

	// IsConnected reports whether the connection is still usable.
	IsConnected() bool

	// Write queues payload for sending and returns a channel that receives
	// the write result exactly once. The call itself does not wait for
	// network I/O to complete.
	Write(payload []byte) <-chan error

	// Close tears the connection down. Pending queued writes fail with
	// ErrNotConnected.
	Close() error
}

// sendQueueDepth bounds how many writes may be in flight per connection
// before Write exerts back-pressure on the caller.
const sendQueueDepth = 256

type writeOp struct {
	payload []byte
	done    chan error
}

// netConn adapts a net.Conn to the Conn contract. A single writer goroutine
// drains the send queue, so writes issued through one connection complete in
// the order they were queued.
type netConn struct {
	nc   net.Conn
	addr string

	sendq     chan writeOp
	connected int32
	done      chan struct{}
	closeOnce sync.Once
}

// NewConn wraps an established net.Conn. addr is the endpoint address the
// connection was dialed for.
func NewConn(nc net.Conn, addr string) Conn {
	c := &netConn{
		nc:        nc,
		addr:      addr,
		sendq:     make(chan writeOp, sendQueueDepth),
		connected: 1,
		done:      make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

func (c *netConn) RemoteAddr() string {
	return c.addr
}

func (c *netConn) IsConnected() bool {
	return atomic.LoadInt32(&c.connected) == 1
}

func (c *netConn) Write(payload []byte) <-chan error {
	done := make(chan error, 1)

	if !c.IsConnected() {
		done <- apperrors.ErrNotConnected
		return done
	}

	select {
	case c.sendq <- writeOp{payload: payload, done: done}:
		// The writer may have torn down between the connected check and
		// the enqueue; fail anything it left behind.
		select {
		case <-c.done:
			c.failQueued()
		default:
		}
	case <-c.done:
		done <- apperrors.ErrNotConnected
	}
	return done
}

// writeLoop is the single writer for this connection. The first I/O error
// disconnects the connection and fails everything still queued.
func (c *netConn) writeLoop() {
	for {
		select {
		case op := <-c.sendq:
			if _, err := c.nc.Write(op.payload); err != nil {
				log.WithField("addr", c.addr).WithError(err).Debug("connection write failed")
				c.Close()
				op.done <- fmt.Errorf("%w: %v", apperrors.ErrWriteFailed, err)
				c.failQueued()
				return
			}
			op.done <- nil
		case <-c.done:
			c.failQueued()
			return
		}
	}
}

// failQueued delivers ErrNotConnected to writes queued behind a dead
// connection.
func (c *netConn) failQueued() {
	for {
		select {
		case op := <-c.sendq:
			op.done <- apperrors.ErrNotConnected
		default:
			return
		}
	}
}

func (c *netConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		atomic.StoreInt32(&c.connected, 0)
		close(c.done)
		err = c.nc.Close()
		log.WithField("addr", c.addr).Debug("connection closed")
	})
	return err
}
