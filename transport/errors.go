package transport

import "errors"

var (
	// ErrNotConnected is returned by SendRequest when called before a
	// successful Connect.
	ErrNotConnected = errors.New("transport: not connected")
	// ErrTimeout is returned when no response arrives within the
	// configured timeout.
	ErrTimeout = errors.New("transport: timed out waiting for response")
)
