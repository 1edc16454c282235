package client

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/elecbridge/dlt645"
	"github.com/elecbridge/dlt645/catalog"
	"github.com/elecbridge/dlt645/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a transport.Conn double that hands back a
// pre-programmed response (or error) for each SendRequest call,
// recording the requests it was given.
type fakeConn struct {
	connected bool
	responses [][]byte
	errs      []error
	requests  [][]byte
	timeout   time.Duration
}

func (f *fakeConn) Connect() error       { f.connected = true; return nil }
func (f *fakeConn) Disconnect() error    { f.connected = false; return nil }
func (f *fakeConn) IsConnected() bool    { return f.connected }
func (f *fakeConn) SetTimeout(d time.Duration) { f.timeout = d }

func (f *fakeConn) SendRequest(req []byte) ([]byte, error) {
	f.requests = append(f.requests, req)
	i := len(f.requests) - 1
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	if err != nil {
		return nil, err
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return nil, nil
}

func TestClientReadEnergy(t *testing.T) {
	di := dlt645.MakeDI(dlt645.DI3Energy, 0, 0, 0)
	cat := catalog.NewEmpty(nil)
	cat.Add(dlt645.DataItem{DI: di, Name: "total active energy", DataFormat: dlt645.FormatXXXXXXdXX, Value: dlt645.EmptyValue()})

	diBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(diBytes, di)
	bcd, err := dlt645.Float32ToBCD(123.45, dlt645.FormatXXXXXXdXX, true)
	require.NoError(t, err)
	payload := append(append([]byte{}, diBytes...), bcd[:4]...)

	addr := dlt645.Address{}
	resp := dlt645.BuildFrame(addr, dlt645.CtrlReadData.Resp(), payload)

	conn := &fakeConn{connected: true, responses: [][]byte{resp}}
	cli := New(conn, cat, nil)

	item, err := cli.Read(context.Background(), di)
	require.NoError(t, err)
	v, ok := item.Value.Float32()
	require.True(t, ok)
	assert.InDelta(t, 123.45, v, 0.01)
}

func TestClientReadUnknownDI(t *testing.T) {
	di := dlt645.MakeDI(dlt645.DI3Energy, 5, 5, 0)
	conn := &fakeConn{connected: true}
	cli := New(conn, catalog.NewEmpty(nil), nil)

	_, err := cli.Read(context.Background(), di)
	require.Error(t, err)
}

func TestClientReadAddressUpdatesLocalAddress(t *testing.T) {
	want := dlt645.Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	resp := dlt645.BuildFrame(want, dlt645.CtrlReadAddress.Resp(), want[:])
	conn := &fakeConn{connected: true, responses: [][]byte{resp}}
	cli := New(conn, nil, nil)

	got, err := cli.ReadAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, want, cli.Address())
}

func TestClientRejectsAddressMismatch(t *testing.T) {
	di := dlt645.MakeDI(dlt645.DI3Energy, 0, 0, 0)
	cat := catalog.NewEmpty(nil)
	cat.Add(dlt645.DataItem{DI: di, Name: "x", DataFormat: dlt645.FormatXXXXXXdXX, Value: dlt645.EmptyValue()})

	other := dlt645.Address{0x02}
	payload := make([]byte, 4)
	binary.LittleEndian.PutUint32(payload, di)
	resp := dlt645.BuildFrame(other, dlt645.CtrlReadData.Resp(), append(payload, 0, 0, 0, 0))

	conn := &fakeConn{connected: true, responses: [][]byte{resp}}
	cli := New(conn, cat, nil)
	cli.SetAddress(dlt645.Address{0x01})

	_, err := cli.Read(context.Background(), di)
	require.Error(t, err)
	var mismatch *dlt645.AddressMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestClientBroadcastTimeSyncIgnoresTimeout(t *testing.T) {
	conn := &fakeConn{connected: true, errs: []error{transport.ErrTimeout}}
	cli := New(conn, nil, nil)
	err := cli.BroadcastTimeSync(time.Now())
	assert.NoError(t, err)
	require.Len(t, conn.requests, 1)
}
