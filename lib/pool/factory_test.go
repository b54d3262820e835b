package pool

import (
	"testing"
	"time"
)

func TestFactorySharesDialerAndGroup(t *testing.T) {
	d := newMockDialer()
	f := NewFactory(d, Config{MaxConnections: 1, WriteTimeout: time.Second})

	p1 := f.NewPool("peer-a.test:7000")
	p2 := f.NewPool("peer-b.test:7000")
	defer p1.Close()
	defer p2.Close()

	p1.Submit(NewRequest([]byte("a"), nil))
	p2.Submit(NewRequest([]byte("b"), nil))

	c1 := newMockConn()
	c2 := newMockConn()
	d.complete(t, c1)
	d.complete(t, c2)

	waitFor(t, "connections not registered in shared group", func() bool {
		return f.Group().Len() == 2
	})
}

func TestFactoryShutdownAll(t *testing.T) {
	d := newMockDialer()
	f := NewFactory(d, Config{MaxConnections: 1, WriteTimeout: time.Second})

	p := f.NewPool("peer.test:7000")
	p.Submit(NewRequest([]byte("a"), nil))
	conn := newMockConn()
	d.complete(t, conn)
	waitIdle(t, p, 1)

	if err := f.ShutdownAll(); err != nil {
		t.Fatalf("ShutdownAll() = %v", err)
	}
	if conn.closes() == 0 {
		t.Error("shared group did not close the pooled connection")
	}
	if !d.isClosed() {
		t.Error("dialer not released")
	}
}

func TestFactoryAppliesDefaults(t *testing.T) {
	f := NewFactory(newMockDialer(), Config{})
	p := f.NewPool("peer.test:7000")
	defer p.Close()

	s := p.Stats()
	if s.MaxConnections != DefaultConfig().MaxConnections {
		t.Errorf("MaxConnections = %d, want default %d", s.MaxConnections, DefaultConfig().MaxConnections)
	}
}
