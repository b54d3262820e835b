package transport

import (
	"fmt"
	"sync"

	apperrors "github.com/go-i2p/meshrpc/lib/errors"
)

// Group is a shared registry of live connections used for bulk shutdown.
// All pools created by one factory register their connections here, so a
// single CloseAll tears down every connection the client owns.
type Group struct {
	mu     sync.Mutex
	conns  map[Conn]struct{}
	closed bool
}

// NewGroup creates an empty connection group.
func NewGroup() *Group {
	return &Group{conns: make(map[Conn]struct{})}
}

// Add registers a connection with the group. If the group has already been
// closed the connection is closed immediately instead of leaking past the
// shutdown.
func (g *Group) Add(c Conn) {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		c.Close()
		return
	}
	g.conns[c] = struct{}{}
	g.mu.Unlock()
}

// Remove drops a connection from the group without closing it.
func (g *Group) Remove(c Conn) {
	g.mu.Lock()
	delete(g.conns, c)
	g.mu.Unlock()
}

// Len returns the number of registered connections.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// CloseAll closes every registered connection and waits for each close to
// complete. The group is terminal afterwards: connections added later are
// closed on arrival. CloseAll is idempotent.
func (g *Group) CloseAll() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	conns := make([]Conn, 0, len(g.conns))
	for c := range g.conns {
		conns = append(conns, c)
	}
	g.conns = make(map[Conn]struct{})
	g.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s: %w", c.RemoteAddr(), err))
		}
	}

	log.WithField("count", len(conns)).Debug("connection group closed")
	return apperrors.Join(errs...)
}

// Closed reports whether CloseAll has run.
func (g *Group) Closed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}
