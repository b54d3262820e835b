package transport

import (
	"net"
	"testing"
	"time"

	apperrors "github.com/go-i2p/meshrpc/lib/errors"
)

func waitDial(t *testing.T, ch <-chan DialResult) DialResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for dial result")
		return DialResult{}
	}
}

func TestNetDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	d := &NetDialer{}
	res := waitDial(t, d.Dial(ln.Addr().String()))
	if res.Err != nil {
		t.Fatalf("Dial() = %v", res.Err)
	}
	defer res.Conn.Close()

	if !res.Conn.IsConnected() {
		t.Error("dialed connection should be connected")
	}
	if res.Conn.RemoteAddr() != ln.Addr().String() {
		t.Errorf("RemoteAddr() = %q, want %q", res.Conn.RemoteAddr(), ln.Addr().String())
	}

	d.Close()
}

func TestNetDialerRefused(t *testing.T) {
	// Grab a port and close the listener so the connect is refused.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	d := &NetDialer{Timeout: 2 * time.Second}
	res := waitDial(t, d.Dial(addr))
	if !apperrors.IsConnectFailure(res.Err) {
		t.Errorf("Dial() = %v, want ErrConnectFailed", res.Err)
	}
	if res.Conn != nil {
		t.Error("failed dial returned a connection")
	}
}

func TestNetDialerDoesNotBlock(t *testing.T) {
	d := &NetDialer{Timeout: 5 * time.Second}

	start := time.Now()
	// Reserved TEST-NET address; the connect attempt will hang until timeout.
	ch := d.Dial("192.0.2.1:9")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Dial blocked for %v", elapsed)
	}
	_ = ch
}

func TestI2PDialerInvalidDestination(t *testing.T) {
	d := NewI2PDialer("meshrpc-test", "127.0.0.1:7656", nil)
	defer d.Close()

	res := waitDial(t, d.Dial("not a destination"))
	if !apperrors.IsConnectFailure(res.Err) {
		t.Errorf("Dial() = %v, want ErrConnectFailed", res.Err)
	}
}

func TestI2PDialerClosed(t *testing.T) {
	d := NewI2PDialer("meshrpc-test", "127.0.0.1:7656", nil)
	if err := d.Close(); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	// Idempotent.
	if err := d.Close(); err != nil {
		t.Errorf("second Close() = %v", err)
	}

	res := waitDial(t, d.Dial("example.i2p"))
	if !apperrors.IsConnectFailure(res.Err) {
		t.Errorf("Dial() after Close = %v, want ErrConnectFailed", res.Err)
	}
}
