package dlt645

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrapping errors returned by this package can be
// tested against these with errors.Is.
var (
	// ErrNoFrame is returned by Deserialize when the buffer does not
	// contain a complete, well-formed frame.
	ErrNoFrame = errors.New("dlt645: no frame in buffer")
	// ErrInvalidBCD is returned when a nibble in a BCD-encoded byte
	// exceeds 9.
	ErrInvalidBCD = errors.New("dlt645: invalid BCD digit")
	// ErrOverflow is returned by IntToBCD when the value does not fit
	// in the requested byte width.
	ErrOverflow = errors.New("dlt645: value does not fit in BCD width")
	// ErrOutOfRange is returned when a value falls outside the range
	// its data format permits.
	ErrOutOfRange = errors.New("dlt645: value out of range for format")
	// ErrUnknownDI is returned when a data identifier has no catalog entry.
	ErrUnknownDI = errors.New("dlt645: unknown data identifier")
	// ErrWrongPassword is returned by change-password when the supplied
	// old password does not match.
	ErrWrongPassword = errors.New("dlt645: wrong password")
	// ErrAddressMismatch is returned when a response's source address
	// is neither the configured address nor an accepted broadcast alias.
	ErrAddressMismatch = errors.New("dlt645: response address mismatch")
	// ErrException is returned when a response carries the protocol's
	// error flag (0x40) set on its control code.
	ErrException = errors.New("dlt645: device returned an exception response")
)

// FrameError reports a malformed frame: missing markers, a checksum
// mismatch, a length inconsistency, or a truncated buffer.
type FrameError struct {
	Op  string
	Err error
}

func (e *FrameError) Error() string { return fmt.Sprintf("dlt645: frame %s: %s", e.Op, e.Err) }
func (e *FrameError) Unwrap() error { return e.Err }

func newFrameError(op string, err error) *FrameError {
	return &FrameError{Op: op, Err: err}
}

// DataError reports an invalid BCD digit, a format-range violation, or
// a lookup against an unknown data identifier.
type DataError struct {
	DI  uint32
	Op  string
	Err error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("dlt645: data 0x%08X %s: %s", e.DI, e.Op, e.Err)
}
func (e *DataError) Unwrap() error { return e.Err }

// AuthError reports a failed password check on a change-password request.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string { return fmt.Sprintf("dlt645: auth: %s", e.Err) }
func (e *AuthError) Unwrap() error { return e.Err }

// AddressMismatchError reports that a response's source address was
// neither the client's configured address nor an accepted broadcast alias.
type AddressMismatchError struct {
	Want Address
	Got  Address
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("dlt645: response from %s, want %s", e.Got, e.Want)
}
func (e *AddressMismatchError) Unwrap() error { return ErrAddressMismatch }

// TransportError wraps an I/O failure from the connect/read/write layer,
// or a request timeout. The client and server packages produce it by
// wrapping errors from the transport package (see NewTransportError),
// so callers need only import this package to use errors.As against it.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("dlt645: transport %s: %s", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// NewTransportError wraps err as a TransportError produced during op.
// The transport package has no dependency on this package (it only
// deals in bytes), so callers in client/server wrap its errors with
// this constructor when surfacing them.
func NewTransportError(op string, err error) *TransportError {
	return &TransportError{Op: op, Err: err}
}
