package transport

import (
	"bytes"
	"io"
	"net"
	"testing"
	"time"

	apperrors "github.com/go-i2p/meshrpc/lib/errors"
)

// pipeConn returns a Conn backed by net.Pipe plus the peer end and a channel
// of everything the peer reads.
func pipeConn(t *testing.T) (Conn, net.Conn, <-chan []byte) {
	t.Helper()

	local, remote := net.Pipe()
	reads := make(chan []byte, 16)
	go func() {
		for {
			buf := make([]byte, 1024)
			n, err := remote.Read(buf)
			if err != nil {
				close(reads)
				return
			}
			reads <- buf[:n]
		}
	}()

	return NewConn(local, "peer.example:9000"), remote, reads
}

func waitErr(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for write result")
		return nil
	}
}

func TestConnWrite(t *testing.T) {
	c, remote, reads := pipeConn(t)
	defer c.Close()
	defer remote.Close()

	if c.RemoteAddr() != "peer.example:9000" {
		t.Errorf("RemoteAddr() = %q", c.RemoteAddr())
	}
	if !c.IsConnected() {
		t.Fatal("new connection should be connected")
	}

	if err := waitErr(t, c.Write([]byte("hello"))); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := <-reads
	if !bytes.Equal(got, []byte("hello")) {
		t.Errorf("peer read %q, want %q", got, "hello")
	}
}

func TestConnWriteOrder(t *testing.T) {
	c, remote, reads := pipeConn(t)
	defer c.Close()
	defer remote.Close()

	payloads := [][]byte{[]byte("one"), []byte("two"), []byte("three")}
	results := make([]<-chan error, 0, len(payloads))
	for _, p := range payloads {
		results = append(results, c.Write(p))
	}
	for i, ch := range results {
		if err := waitErr(t, ch); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	var got []byte
	for range payloads {
		got = append(got, <-reads...)
	}
	if string(got) != "onetwothree" {
		t.Errorf("peer read %q, want writes in order", got)
	}
}

func TestConnWriteAfterClose(t *testing.T) {
	c, remote, _ := pipeConn(t)
	defer remote.Close()

	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if c.IsConnected() {
		t.Error("closed connection reports connected")
	}

	err := waitErr(t, c.Write([]byte("late")))
	if !apperrors.Is(err, apperrors.ErrNotConnected) {
		t.Errorf("Write after close = %v, want ErrNotConnected", err)
	}

	// Close is idempotent.
	if err := c.Close(); err != nil {
		t.Errorf("second Close = %v", err)
	}
}

func TestConnWriteFailureDisconnects(t *testing.T) {
	local, remote := net.Pipe()
	c := NewConn(local, "peer.example:9000")
	defer c.Close()

	// Peer goes away; the next write must fail and disconnect.
	remote.Close()

	err := waitErr(t, c.Write([]byte("doomed")))
	if !apperrors.IsWriteFailure(err) {
		t.Fatalf("Write = %v, want ErrWriteFailed", err)
	}

	if c.IsConnected() {
		t.Error("connection still connected after write failure")
	}

	// Subsequent writes fail fast without touching the socket.
	err = waitErr(t, c.Write([]byte("more")))
	if !apperrors.Is(err, apperrors.ErrNotConnected) {
		t.Errorf("Write after failure = %v, want ErrNotConnected", err)
	}
}

func TestConnQueuedWritesFailOnClose(t *testing.T) {
	// No reader on the remote side, so queued writes sit in the send queue.
	local, remote := net.Pipe()
	defer remote.Close()
	c := NewConn(local, "peer.example:9000")

	first := c.Write([]byte("stuck"))
	second := c.Write([]byte("queued"))

	c.Close()

	for _, ch := range []<-chan error{first, second} {
		err := waitErr(t, ch)
		if err == nil {
			t.Error("queued write reported success after close")
		}
	}
}

func TestConnReaderEOFIgnoredUntilWrite(t *testing.T) {
	// The contract detects disconnection at write time, not by watching
	// the read side.
	local, remote := net.Pipe()
	c := NewConn(local, "peer.example:9000")
	defer c.Close()

	go io.Copy(io.Discard, remote)

	if !c.IsConnected() {
		t.Error("connection should be connected")
	}
	if err := waitErr(t, c.Write([]byte("ping"))); err != nil {
		t.Errorf("Write = %v", err)
	}
}
