package pool

import (
	"github.com/go-i2p/meshrpc/lib/errors"
	"github.com/go-i2p/meshrpc/lib/metrics"
	"github.com/go-i2p/meshrpc/lib/transport"
)

// Factory constructs per-endpoint pools that share one dialer and one
// connection group. It holds configuration only; the pools it hands out are
// owned by their callers.
type Factory struct {
	cfg    Config
	dialer transport.Dialer
	group  *transport.Group
}

// NewFactory creates a factory. Every pool it creates dials through dialer
// and registers its connections in one shared group, so ShutdownAll can tear
// down the whole client at once.
func NewFactory(dialer transport.Dialer, cfg Config) *Factory {
	return &Factory{
		cfg:    cfg,
		dialer: dialer,
		group:  transport.NewGroup(),
	}
}

// NewPool creates a pool for the given endpoint address.
func (f *Factory) NewPool(addr string) *Pool {
	p := New(addr, f.dialer, f.group, f.cfg)
	p.onClose = func(*Pool) {
		metrics.EndpointsTotal.Dec()
	}
	metrics.EndpointsTotal.Inc()
	return p
}

// Group returns the shared connection group.
func (f *Factory) Group() *transport.Group {
	return f.group
}

// ShutdownAll closes every connection in the shared group and releases the
// shared dialer. Pools created by this factory reject further submissions
// once their connections are gone and their opens race with the closed
// group.
func (f *Factory) ShutdownAll() error {
	return errors.Join(f.group.CloseAll(), f.dialer.Close())
}
