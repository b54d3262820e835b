package transport

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/go-i2p/i2pkeys"
	"github.com/go-i2p/onramp"

	apperrors "github.com/go-i2p/meshrpc/lib/errors"
)

// DefaultDialTimeout bounds how long a single connect attempt may take.
const DefaultDialTimeout = 10 * time.Second

// DialResult is the outcome of an asynchronous connect.
type DialResult struct {
	Conn Conn
	Err  error
}

// Dialer establishes connections to remote endpoints. Dial starts the
// connect in the background and returns a channel that receives the result
// exactly once; the call itself never waits on network I/O.
type Dialer interface {
	Dial(addr string) <-chan DialResult

	// Close releases resources shared by the dialer's connections.
	Close() error
}

// NetDialer dials endpoints over the clearnet.
type NetDialer struct {
	// Network is the network to dial, "tcp" if empty.
	Network string
	// Timeout bounds each connect attempt, DefaultDialTimeout if zero.
	Timeout time.Duration
}

// Dial connects to a host:port address asynchronously.
func (d *NetDialer) Dial(addr string) <-chan DialResult {
	network := d.Network
	if network == "" {
		network = "tcp"
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	ch := make(chan DialResult, 1)
	go func() {
		nc, err := net.DialTimeout(network, addr, timeout)
		if err != nil {
			ch <- DialResult{Err: fmt.Errorf("%w: %v", apperrors.ErrConnectFailed, err)}
			return
		}
		ch <- DialResult{Conn: NewConn(nc, addr)}
	}()
	return ch
}

// Close implements Dialer. NetDialer holds no shared resources.
func (d *NetDialer) Close() error {
	return nil
}

// I2PDialer dials I2P destinations through a shared onramp Garlic session.
// The session is created lazily on first dial and reused for every
// connection; Close tears it down.
type I2PDialer struct {
	mu      sync.Mutex
	name    string
	samAddr string
	options []string
	garlic  *onramp.Garlic
	closed  bool
}

// NewI2PDialer creates an I2P dialer. name is the tunnel name used to persist
// the local destination keys; samAddr is the SAM bridge address. options are
// SAM session options, onramp.OPT_DEFAULTS when empty.
func NewI2PDialer(name, samAddr string, options []string) *I2PDialer {
	return &I2PDialer{
		name:    name,
		samAddr: samAddr,
		options: options,
	}
}

// session returns the shared Garlic session, creating it on first use.
func (d *I2PDialer) session() (*onramp.Garlic, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, fmt.Errorf("i2p dialer: %w", apperrors.ErrClosed)
	}
	if d.garlic != nil {
		return d.garlic, nil
	}

	options := d.options
	if len(options) == 0 {
		options = onramp.OPT_DEFAULTS
	}

	garlic, err := onramp.NewGarlic(d.name, d.samAddr, options)
	if err != nil {
		return nil, fmt.Errorf("creating garlic session: %w", err)
	}
	d.garlic = garlic

	log.WithField("name", d.name).WithField("samAddr", d.samAddr).Debug("I2P session established")
	return garlic, nil
}

// Dial connects to an I2P destination asynchronously. addr is either a full
// base64 destination or a hostname ending in .i2p.
func (d *I2PDialer) Dial(addr string) <-chan DialResult {
	ch := make(chan DialResult, 1)
	go func() {
		// Hostnames are resolved by the router; raw destinations must parse.
		if !strings.HasSuffix(addr, ".i2p") {
			if _, err := i2pkeys.NewI2PAddrFromString(addr); err != nil {
				ch <- DialResult{Err: fmt.Errorf("%w: invalid destination: %v", apperrors.ErrConnectFailed, err)}
				return
			}
		}

		garlic, err := d.session()
		if err != nil {
			ch <- DialResult{Err: fmt.Errorf("%w: %v", apperrors.ErrConnectFailed, err)}
			return
		}

		nc, err := garlic.Dial("tcp", addr)
		if err != nil {
			ch <- DialResult{Err: fmt.Errorf("%w: %v", apperrors.ErrConnectFailed, err)}
			return
		}
		ch <- DialResult{Conn: NewConn(nc, addr)}
	}()
	return ch
}

// Close releases the shared Garlic session. Connections already established
// remain usable until closed individually.
func (d *I2PDialer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.garlic != nil {
		err := d.garlic.Close()
		d.garlic = nil
		return err
	}
	return nil
}
