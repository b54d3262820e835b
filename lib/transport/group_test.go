package transport

import (
	"errors"
	"sync"
	"testing"
)

// stubConn is a minimal Conn for group tests.
type stubConn struct {
	mu     sync.Mutex
	addr   string
	closed bool
	err    error
}

func (s *stubConn) RemoteAddr() string { return s.addr }

func (s *stubConn) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

func (s *stubConn) Write(payload []byte) <-chan error {
	ch := make(chan error, 1)
	ch <- nil
	return ch
}

func (s *stubConn) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return s.err
}

func (s *stubConn) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func TestGroupAddRemove(t *testing.T) {
	g := NewGroup()

	c1 := &stubConn{addr: "a:1"}
	c2 := &stubConn{addr: "b:2"}
	g.Add(c1)
	g.Add(c2)
	if g.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", g.Len())
	}

	g.Remove(c1)
	if g.Len() != 1 {
		t.Fatalf("Len() after Remove = %d, want 1", g.Len())
	}
	if c1.isClosed() {
		t.Error("Remove must not close the connection")
	}
}

func TestGroupCloseAll(t *testing.T) {
	g := NewGroup()

	conns := []*stubConn{{addr: "a:1"}, {addr: "b:2"}, {addr: "c:3"}}
	for _, c := range conns {
		g.Add(c)
	}

	if err := g.CloseAll(); err != nil {
		t.Fatalf("CloseAll() = %v", err)
	}
	for _, c := range conns {
		if !c.isClosed() {
			t.Errorf("connection %s not closed", c.addr)
		}
	}
	if g.Len() != 0 {
		t.Errorf("Len() after CloseAll = %d, want 0", g.Len())
	}
	if !g.Closed() {
		t.Error("group should report closed")
	}

	// Idempotent.
	if err := g.CloseAll(); err != nil {
		t.Errorf("second CloseAll() = %v", err)
	}
}

func TestGroupCloseAllCollectsErrors(t *testing.T) {
	g := NewGroup()

	boom := errors.New("boom")
	g.Add(&stubConn{addr: "a:1", err: boom})
	g.Add(&stubConn{addr: "b:2"})

	err := g.CloseAll()
	if !errors.Is(err, boom) {
		t.Errorf("CloseAll() = %v, want wrapped close error", err)
	}
}

func TestGroupAddAfterClose(t *testing.T) {
	g := NewGroup()
	g.CloseAll()

	c := &stubConn{addr: "late:1"}
	g.Add(c)

	if !c.isClosed() {
		t.Error("connection added after CloseAll should be closed immediately")
	}
	if g.Len() != 0 {
		t.Errorf("Len() = %d, want 0", g.Len())
	}
}
