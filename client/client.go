// Package client implements the DL/T645 master (client) service
// engine: it builds request frames, serializes them one at a time
// over a transport.Conn, validates and decodes the responses, and
// keeps the locally-known device address and password in sync with
// successful writes.
package client

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/elecbridge/dlt645"
	"github.com/elecbridge/dlt645/catalog"
	"github.com/elecbridge/dlt645/transport"
	"go.uber.org/zap"
)

// Client is the client-side DL/T645 service engine. All operations
// serialize on a single request mutex: DL/T645 is a master/slave
// protocol with one outstanding request per connection.
type Client struct {
	mu       sync.Mutex
	conn     transport.Conn
	catalog  *catalog.Catalog
	addr     dlt645.Address
	password [4]byte
	logger   *zap.Logger
}

// New returns a Client that issues requests over conn and resolves DI
// metadata from cat. cat may be nil, in which case reads of
// unrecognized DIs always fail with dlt645.ErrUnknownDI. logger may be
// nil.
func New(conn transport.Conn, cat *catalog.Catalog, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{conn: conn, catalog: cat, logger: logger}
}

// Connect opens the underlying transport.
func (c *Client) Connect() error {
	if err := c.conn.Connect(); err != nil {
		return dlt645.NewTransportError("connect", err)
	}
	return nil
}

// Disconnect closes the underlying transport.
func (c *Client) Disconnect() error {
	if err := c.conn.Disconnect(); err != nil {
		return dlt645.NewTransportError("disconnect", err)
	}
	return nil
}

// Address returns the device address the client is currently
// configured to talk to.
func (c *Client) Address() dlt645.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addr
}

// SetAddress overrides the configured device address without a
// round trip to the device; ReadAddress and WriteAddress update it
// from a device response instead.
func (c *Client) SetAddress(addr dlt645.Address) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.addr = addr
}

// SetPassword overrides the locally-known device password.
func (c *Client) SetPassword(pw [4]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.password = pw
}

// applyTimeout sets the transport's timeout to ctx's remaining
// deadline, if any; a context with no deadline leaves the transport's
// current timeout untouched.
func (c *Client) applyTimeout(ctx context.Context) {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			c.conn.SetTimeout(d)
		}
	}
}

// roundTrip builds a frame for ctrl/payload against the given
// destination address, sends it, and returns the parsed response
// frame. If validateAddr is set, the response is additionally
// accepted only if its source address equals the client's currently
// configured address or the self-unknown broadcast alias; read-address
// discovery passes false here, since the whole point of that exchange
// is learning an address the client does not yet have. Callers must
// hold c.mu.
func (c *Client) roundTrip(ctx context.Context, dest dlt645.Address, ctrl dlt645.ControlCode, payload []byte, validateAddr bool) (*dlt645.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.applyTimeout(ctx)

	raw := dlt645.BuildFrame(dest, byte(ctrl), payload)
	resp, err := c.conn.SendRequest(raw)
	if err != nil {
		return nil, dlt645.NewTransportError(ctrl.String(), err)
	}

	frame, err := dlt645.Deserialize(resp)
	if err != nil {
		return nil, err
	}
	if !ctrl.IsResp(frame.Ctrl) {
		return nil, fmt.Errorf("dlt645: unexpected control code %#x in response to %s", frame.Ctrl, ctrl)
	}
	if validateAddr && frame.Addr != c.addr && frame.Addr != dlt645.BroadcastTimeAddr {
		return nil, &dlt645.AddressMismatchError{Want: c.addr, Got: frame.Addr}
	}
	if frame.Ctrl&dlt645.ErrFlag != 0 {
		return nil, fmt.Errorf("%w: %s", dlt645.ErrException, ctrl)
	}
	return frame, nil
}

// Read issues a read-data request for di and decodes the response
// according to di's top byte (DI3): energy and variable reads decode
// a single BCD value, demand reads additionally decode an occurrence
// time. This collapses the protocol's historical read00/read01/read02
// distinction, which the server already makes purely from DI3.
func (c *Client) Read(ctx context.Context, di uint32) (*dlt645.DataItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := make([]byte, dlt645.DILen)
	binary.LittleEndian.PutUint32(payload, di)

	frame, err := c.roundTrip(ctx, c.addr, dlt645.CtrlReadData, payload, true)
	if err != nil {
		return nil, err
	}
	if len(frame.Data) < dlt645.DILen {
		return nil, &dlt645.FrameError{Op: "read", Err: dlt645.ErrNoFrame}
	}

	respDI := binary.LittleEndian.Uint32(frame.Data[:dlt645.DILen])
	item, err := c.lookup(respDI)
	if err != nil {
		return nil, err
	}

	di3, _, _, _ := dlt645.SplitDI(respDI)
	switch di3 {
	case dlt645.DI3Energy, dlt645.DI3Variable:
		width := dlt645.BCDWidth(item.DataFormat)
		if len(frame.Data) < dlt645.DILen+width {
			return nil, &dlt645.DataError{DI: respDI, Op: "decode energy/variable", Err: dlt645.ErrNoFrame}
		}
		v, err := dlt645.BCDToFloat32(frame.Data[dlt645.DILen:dlt645.DILen+width], item.DataFormat, true)
		if err != nil {
			return nil, &dlt645.DataError{DI: respDI, Op: "decode energy/variable", Err: err}
		}
		item.Value = dlt645.Float32Value(v)
	case dlt645.DI3MaxDemand:
		if len(frame.Data) < dlt645.DILen+3+5 {
			return nil, &dlt645.DataError{DI: respDI, Op: "decode demand", Err: dlt645.ErrNoFrame}
		}
		magnitude, err := dlt645.BCDToFloat32(frame.Data[dlt645.DILen:dlt645.DILen+3], item.DataFormat, true)
		if err != nil {
			return nil, &dlt645.DataError{DI: respDI, Op: "decode demand magnitude", Err: err}
		}
		year, month, day, hour, minute, err := dlt645.BCDToTime(frame.Data[dlt645.DILen+3:dlt645.DILen+3+5], true)
		if err != nil {
			return nil, &dlt645.DataError{DI: respDI, Op: "decode demand occur time", Err: err}
		}
		item.Value = dlt645.DemandValue(dlt645.Demand{
			Magnitude: magnitude,
			OccurTime: dlt645.AssembleTime(year, month, day, hour, minute, time.Local),
		})
	default:
		return nil, &dlt645.DataError{DI: respDI, Op: "decode", Err: dlt645.ErrUnknownDI}
	}
	item.Timestamp = time.Now()
	return &item, nil
}

// lookup resolves di's metadata from the catalog, returning a
// DataError wrapping dlt645.ErrUnknownDI if absent.
func (c *Client) lookup(di uint32) (dlt645.DataItem, error) {
	if c.catalog == nil {
		return dlt645.DataItem{}, &dlt645.DataError{DI: di, Op: "lookup", Err: dlt645.ErrUnknownDI}
	}
	item, ok := c.catalog.Get(di)
	if !ok {
		return dlt645.DataItem{}, &dlt645.DataError{DI: di, Op: "lookup", Err: dlt645.ErrUnknownDI}
	}
	return item, nil
}

// ReadAddress discovers the device's communication address by
// broadcasting to the AA...AA alias, and adopts the result as the
// client's configured address for subsequent requests.
func (c *Client) ReadAddress(ctx context.Context) (dlt645.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	frame, err := c.roundTrip(ctx, dlt645.BroadcastReadAddr, dlt645.CtrlReadAddress, nil, false)
	if err != nil {
		return dlt645.Address{}, err
	}
	if len(frame.Data) != dlt645.AddrLen {
		return dlt645.Address{}, &dlt645.FrameError{Op: "read-address", Err: dlt645.ErrNoFrame}
	}
	copy(c.addr[:], frame.Data)
	return c.addr, nil
}

// WriteAddress assigns the device a new communication address. On
// success the client adopts newAddr as its configured address.
func (c *Client) WriteAddress(ctx context.Context, newAddr dlt645.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The response echoes the newly-assigned address, not the one
	// this request was addressed to, so address validation is
	// skipped here the same way it is for ReadAddress.
	payload := append(append([]byte{}, c.password[:]...), newAddr[:]...)
	_, err := c.roundTrip(ctx, c.addr, dlt645.CtrlWriteAddress, payload, false)
	if err != nil {
		return err
	}
	c.addr = newAddr
	return nil
}

// ChangePassword replaces the device's password. On success the
// client adopts newPassword locally. A device that rejects oldPassword
// responds with its error flag set, surfaced here as an *AuthError
// wrapping dlt645.ErrWrongPassword.
func (c *Client) ChangePassword(ctx context.Context, oldPassword, newPassword [4]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := append(append([]byte{}, oldPassword[:]...), newPassword[:]...)
	_, err := c.roundTrip(ctx, c.addr, dlt645.CtrlChangePassword, payload, true)
	if err != nil {
		if errors.Is(err, dlt645.ErrException) {
			return &dlt645.AuthError{Err: dlt645.ErrWrongPassword}
		}
		return err
	}
	c.password = newPassword
	return nil
}

// BroadcastTimeSync sends a time-synchronization broadcast to every
// device on the line without requiring a reply. It still performs the
// transport's single read after the write, so it blocks until a reply
// arrives or the transport timeout elapses; a reply is discarded, and
// a read timeout after a successful write is not reported as an error.
func (c *Client) BroadcastTimeSync(t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload := dlt645.TimeToBCD(t, true)
	raw := dlt645.BuildFrame(dlt645.BroadcastTimeAddr, byte(dlt645.CtrlBroadcastTimeSync), payload)
	_, err := c.conn.SendRequest(raw)
	if err != nil && !errors.Is(err, transport.ErrTimeout) {
		return dlt645.NewTransportError("broadcast-time-sync", err)
	}
	return nil
}
