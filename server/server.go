// Package server implements the DL/T645 slave (server) service
// engine: it accepts frames over one or more transport.ServerConn
// connections, validates the destination address, dispatches on
// control code, and builds the reply frame from the DI catalog.
package server

import (
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

// Server is the server-side DL/T645 service engine. A single Server
// can drive many concurrent connections (TCP); each connection's own
// read-dispatch-write chain is sequential, but connections do not
// serialize against each other.
type Server struct {
	mu       sync.RWMutex
	addr     dlt645.Address
	password [4]byte
	catalog  *catalog.Catalog
	logger   *zap.Logger
}

// New returns a Server that answers as addr and resolves/writes DI
// values through cat. logger may be nil.
func New(addr dlt645.Address, password [4]byte, cat *catalog.Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, password: password, catalog: cat, logger: logger}
}

// Address returns the server's currently configured device address.
func (s *Server) Address() dlt645.Address {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Serve drives one accepted connection until it closes or a
// non-timeout transport error occurs: receive a frame, dispatch it,
// write the reply. A request that times out or is rejected for
// address mismatch simply loops to the next receive rather than
// closing the connection.
func (s *Server) Serve(conn transport.ServerConn) error {
	defer conn.Disconnect()
	for {
		raw, err := conn.Receive()
		if err != nil {
			if errors.Is(err, transport.ErrTimeout) {
				continue
			}
			return err
		}

		frame, err := dlt645.Deserialize(raw)
		if err != nil {
			s.logger.Debug("discarding unparseable frame", zap.Error(err))
			continue
		}

		resp, err := s.handle(frame)
		if err != nil {
			s.logger.Debug("request not answered", zap.Error(err), zap.String("ctrl", dlt645.ControlCode(frame.Ctrl).String()))
			continue
		}
		if resp == nil {
			continue
		}
		if err := conn.Respond(resp); err != nil {
			return err
		}
	}
}

// acceptable reports whether addr is one this server answers frames
// sent to: its own configured address, or either broadcast alias.
func (s *Server) acceptable(addr dlt645.Address) bool {
	if addr == dlt645.BroadcastReadAddr || addr == dlt645.BroadcastTimeAddr {
		return true
	}
	return addr == s.addr
}

// handle dispatches a validated, address-accepted frame and returns
// the raw bytes of the reply frame. A broadcast time sync is answered
// too: its payload is echoed back under the response control code.
func (s *Server) handle(frame *dlt645.Frame) ([]byte, error) {
	s.mu.RLock()
	accept := s.acceptable(frame.Addr)
	s.mu.RUnlock()
	if !accept {
		return nil, dlt645.ErrAddressMismatch
	}

	ctrl := dlt645.ControlCode(frame.Ctrl)
	switch ctrl {
	case dlt645.CtrlBroadcastTimeSync:
		return s.handleTimeSync(frame)
	case dlt645.CtrlReadData:
		return s.handleReadData(frame)
	case dlt645.CtrlReadAddress:
		return s.handleReadAddress(frame)
	case dlt645.CtrlWriteAddress:
		return s.handleWriteAddress(frame)
	case dlt645.CtrlChangePassword:
		return s.handleChangePassword(frame)
	default:
		return nil, fmt.Errorf("dlt645: server does not support control code %s", ctrl)
	}
}

func (s *Server) handleTimeSync(frame *dlt645.Frame) ([]byte, error) {
	return dlt645.BuildFrame(frame.Addr, dlt645.CtrlBroadcastTimeSync.Resp(), frame.Data), nil
}

func (s *Server) handleReadData(frame *dlt645.Frame) ([]byte, error) {
	if len(frame.Data) < dlt645.DILen {
		return nil, &dlt645.FrameError{Op: "read-data", Err: dlt645.ErrNoFrame}
	}
	di := binary.LittleEndian.Uint32(frame.Data[:dlt645.DILen])

	if s.catalog == nil {
		return nil, &dlt645.DataError{DI: di, Op: "read-data", Err: dlt645.ErrUnknownDI}
	}
	item, ok := s.catalog.Get(di)
	if !ok {
		return nil, &dlt645.DataError{DI: di, Op: "read-data", Err: dlt645.ErrUnknownDI}
	}

	di3, _, _, _ := dlt645.SplitDI(di)
	switch di3 {
	case dlt645.DI3Energy, dlt645.DI3Variable:
		return s.buildEnergyOrVariableResponse(frame.Addr, di, item)
	case dlt645.DI3MaxDemand:
		return s.buildDemandResponse(frame.Addr, di, item)
	default:
		return nil, &dlt645.DataError{DI: di, Op: "read-data", Err: dlt645.ErrUnknownDI}
	}
}

func (s *Server) buildEnergyOrVariableResponse(addr dlt645.Address, di uint32, item dlt645.DataItem) ([]byte, error) {
	v, ok := item.Value.AsFloat64()
	if !ok {
		v = 0
	}
	bcd, err := dlt645.Float32ToBCD(float32(v), item.DataFormat, true)
	if err != nil {
		return nil, &dlt645.DataError{DI: di, Op: "encode", Err: err}
	}
	width := dlt645.BCDWidth(item.DataFormat)

	payload := make([]byte, dlt645.DILen+width)
	binary.LittleEndian.PutUint32(payload, di)
	copy(payload[dlt645.DILen:], bcd[:width])
	return dlt645.BuildFrame(addr, dlt645.CtrlReadData.Resp(), payload), nil
}

func (s *Server) buildDemandResponse(addr dlt645.Address, di uint32, item dlt645.DataItem) ([]byte, error) {
	var magnitude float32
	occur := time.Now()
	if d, ok := item.Value.Demand(); ok {
		magnitude = d.Magnitude
		occur = d.OccurTime
	}
	bcd, err := dlt645.Float32ToBCD(magnitude, item.DataFormat, true)
	if err != nil {
		return nil, &dlt645.DataError{DI: di, Op: "encode", Err: err}
	}

	payload := make([]byte, dlt645.DILen+3+5)
	binary.LittleEndian.PutUint32(payload, di)
	copy(payload[dlt645.DILen:dlt645.DILen+3], bcd[:3])
	copy(payload[dlt645.DILen+3:], dlt645.TimeToBCD(occur, true))
	return dlt645.BuildFrame(addr, dlt645.CtrlReadData.Resp(), payload), nil
}

func (s *Server) handleReadAddress(frame *dlt645.Frame) ([]byte, error) {
	s.mu.RLock()
	addr := s.addr
	s.mu.RUnlock()
	return dlt645.BuildFrame(addr, dlt645.CtrlReadAddress.Resp(), addr[:]), nil
}

func (s *Server) handleWriteAddress(frame *dlt645.Frame) ([]byte, error) {
	if len(frame.Data) != dlt645.PasswordLen+dlt645.AddrLen {
		return nil, &dlt645.FrameError{Op: "write-address", Err: dlt645.ErrNoFrame}
	}
	var newAddr dlt645.Address
	copy(newAddr[:], frame.Data[dlt645.PasswordLen:])

	s.mu.Lock()
	s.addr = newAddr
	s.mu.Unlock()

	return dlt645.BuildFrame(newAddr, dlt645.CtrlWriteAddress.Resp(), nil), nil
}

func (s *Server) handleChangePassword(frame *dlt645.Frame) ([]byte, error) {
	if len(frame.Data) != 2*dlt645.PasswordLen {
		return nil, &dlt645.FrameError{Op: "change-password", Err: dlt645.ErrNoFrame}
	}
	old := frame.Data[:dlt645.PasswordLen]

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range old {
		if s.password[i] != b {
			return dlt645.BuildFrame(s.addr, dlt645.CtrlChangePassword.Resp()|dlt645.ErrFlag, nil), nil
		}
	}
	copy(s.password[:], frame.Data[dlt645.PasswordLen:])
	return dlt645.BuildFrame(s.addr, dlt645.CtrlChangePassword.Resp(), nil), nil
}

// Set writes a new value into di's catalog entry, validating it
// against the data format's declared range first. It reports false,
// wrapping dlt645.ErrUnknownDI, if di has no catalog entry.
func (s *Server) Set(di uint32, value float32) (bool, error) {
	if s.catalog == nil {
		return false, &dlt645.DataError{DI: di, Op: "set", Err: dlt645.ErrUnknownDI}
	}
	item, ok := s.catalog.Get(di)
	if !ok {
		return false, &dlt645.DataError{DI: di, Op: "set", Err: dlt645.ErrUnknownDI}
	}
	if !dlt645.IsValueValid(item.DataFormat, float64(value)) {
		return false, &dlt645.DataError{DI: di, Op: "set", Err: dlt645.ErrOutOfRange}
	}
	return s.catalog.Update(di, dlt645.Float32Value(value)), nil
}

// SetDemand writes a new demand magnitude/occurrence pair into di's
// catalog entry.
func (s *Server) SetDemand(di uint32, demand dlt645.Demand) (bool, error) {
	if s.catalog == nil {
		return false, &dlt645.DataError{DI: di, Op: "set-demand", Err: dlt645.ErrUnknownDI}
	}
	item, ok := s.catalog.Get(di)
	if !ok {
		return false, &dlt645.DataError{DI: di, Op: "set-demand", Err: dlt645.ErrUnknownDI}
	}
	if !dlt645.IsValueValid(item.DataFormat, float64(demand.Magnitude)) {
		return false, &dlt645.DataError{DI: di, Op: "set-demand", Err: dlt645.ErrOutOfRange}
	}
	return s.catalog.Update(di, dlt645.DemandValue(demand)), nil
}
