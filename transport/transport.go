// Package transport provides the byte-level connections a DL/T645
// client or server sends and receives frames over: TCP and RTU
// (serial). It knows nothing about frame structure or data
// identifiers — it deals purely in request/response byte slices —
// so it has no dependency on the root dlt645 package.
package transport

import (
	"errors"
	"os"
	"time"
)

// DeadlineReadWriter is the minimum a deadline-driven connection must
// support: reads and writes with per-call deadlines, the shape a
// net.Conn already satisfies. The serial port behind RTU has no
// per-call deadlines, so RTU reads through readWithin instead.
type DeadlineReadWriter interface {
	Read(b []byte) (int, error)
	Write(b []byte) (int, error)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Conn is a request/response transport: one goroutine owns it at a
// time (the service engine above serializes calls with its own
// mutex), but IsConnected and SetTimeout are safe to call
// concurrently with SendRequest.
type Conn interface {
	// Connect establishes the underlying connection. It is a no-op
	// if already connected.
	Connect() error
	// Disconnect closes the underlying connection. It is a no-op if
	// not connected.
	Disconnect() error
	// IsConnected reports whether the underlying connection is open.
	IsConnected() bool
	// SetTimeout changes the deadline SendRequest applies to future
	// calls.
	SetTimeout(d time.Duration)
	// SendRequest writes req and returns the bytes read back before
	// the configured timeout elapses. A frame boundary is not
	// enforced here; callers re-synchronize at the dlt645 frame
	// layer, which tolerates leading noise and trailing garbage.
	SendRequest(req []byte) ([]byte, error)
}

// ServerConn is the server-side half of a transport connection: it
// receives requests and sends responses, rather than originating
// requests the way Conn does.
type ServerConn interface {
	Disconnect() error
	IsConnected() bool
	SetTimeout(d time.Duration)
	// Receive blocks for the next inbound request, honoring the
	// configured timeout as an idle timeout.
	Receive() ([]byte, error)
	// Respond writes resp back to the peer that sent the last
	// request Receive returned.
	Respond(resp []byte) error
}

// readBufSize is the scratch buffer size used by implementations
// that read the response in a single Read call; DL/T645 frames never
// approach this size.
const readBufSize = 512

// raceRead runs a single blocked Read against conn, racing it against
// timeout via a buffered result channel, so a read that never
// returns (a wedged driver) cannot leak past SendRequest's timeout.
// The goroutine it starts always completes (Read either returns or
// the read deadline raceRead sets on conn unblocks it), so it never
// leaks even though nothing waits for it after timeout. A read that
// hits that deadline is reported as ErrTimeout.
type readResult struct {
	n   int
	err error
}

func raceRead(conn DeadlineReadWriter, buf []byte, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	if err := conn.SetReadDeadline(deadline); err != nil {
		return 0, err
	}

	done := make(chan readResult, 1)
	go func() {
		n, err := conn.Read(buf)
		done <- readResult{n, err}
	}()

	select {
	case r := <-done:
		if errors.Is(r.err, os.ErrDeadlineExceeded) {
			return r.n, ErrTimeout
		}
		return r.n, r.err
	case <-time.After(timeout + 50*time.Millisecond):
		// The read deadline should have fired first; this is a
		// last-resort backstop against a driver that ignores it.
		return 0, ErrTimeout
	}
}
