package dlt645_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/elecbridge/dlt645"
	"github.com/elecbridge/dlt645/catalog"
	"github.com/elecbridge/dlt645/client"
	"github.com/elecbridge/dlt645/server"
	"github.com/elecbridge/dlt645/transport"
	"github.com/stretchr/testify/require"
)

// newLoopback starts a server.Server behind a transport.TCPListener
// on an ephemeral port and returns a client.Client already wired to
// it, plus a cleanup func.
func newLoopback(t *testing.T, addr dlt645.Address, cat *catalog.Catalog) (*client.Client, func()) {
	t.Helper()

	ln, err := transport.NewTCPListener("127.0.0.1:0", time.Second)
	require.NoError(t, err)

	srv := server.New(addr, [4]byte{}, cat, nil)
	go ln.Serve(func(sc transport.ServerConn) {
		srv.Serve(sc)
	})

	tcpAddr := ln.Addr().(*net.TCPAddr)
	conn := transport.NewTCP("127.0.0.1", tcpAddr.Port, time.Second)
	cli := client.New(conn, cat, nil)
	require.NoError(t, cli.Connect())
	cli.SetAddress(addr)

	return cli, func() {
		cli.Disconnect()
		ln.Close()
	}
}

func TestIntegrationReadEnergy(t *testing.T) {
	addr := dlt645.Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	di := dlt645.MakeDI(dlt645.DI3Energy, 0, 0, 0)
	cat := catalog.NewEmpty(nil)
	cat.Add(dlt645.DataItem{DI: di, Name: "total active energy", DataFormat: dlt645.FormatXXXXXXdXX, Value: dlt645.Float32Value(987.65)})

	cli, cleanup := newLoopback(t, addr, cat)
	defer cleanup()

	item, err := cli.Read(context.Background(), di)
	require.NoError(t, err)
	v, ok := item.Value.Float32()
	require.True(t, ok)
	require.InDelta(t, 987.65, v, 0.01)
}

func TestIntegrationReadDemand(t *testing.T) {
	addr := dlt645.Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	di := dlt645.MakeDI(dlt645.DI3MaxDemand, 1, 0, 0)
	cat := catalog.NewEmpty(nil)
	occur := time.Date(2026, 1, 2, 3, 4, 0, 0, time.Local)
	cat.Add(dlt645.DataItem{
		DI:         di,
		Name:       "total max demand",
		DataFormat: dlt645.FormatXXdXXXX,
		Value:      dlt645.DemandValue(dlt645.Demand{Magnitude: 12.3, OccurTime: occur}),
	})

	cli, cleanup := newLoopback(t, addr, cat)
	defer cleanup()

	item, err := cli.Read(context.Background(), di)
	require.NoError(t, err)
	d, ok := item.Value.Demand()
	require.True(t, ok)
	require.InDelta(t, 12.3, d.Magnitude, 0.01)
	require.Equal(t, occur.Year(), d.OccurTime.Year())
	require.Equal(t, occur.Month(), d.OccurTime.Month())
	require.Equal(t, occur.Day(), d.OccurTime.Day())
}

func TestIntegrationAddressDiscovery(t *testing.T) {
	addr := dlt645.Address{0x09, 0x08, 0x07, 0x06, 0x05, 0x04}
	cli, cleanup := newLoopback(t, addr, catalog.NewEmpty(nil))
	defer cleanup()

	got, err := cli.ReadAddress(context.Background())
	require.NoError(t, err)
	require.Equal(t, addr, got)
	require.Equal(t, addr, cli.Address())
}

func TestIntegrationWriteAddress(t *testing.T) {
	addr := dlt645.Address{0x01, 0x01, 0x01, 0x01, 0x01, 0x01}
	cli, cleanup := newLoopback(t, addr, catalog.NewEmpty(nil))
	defer cleanup()

	newAddr := dlt645.Address{0x02, 0x02, 0x02, 0x02, 0x02, 0x02}
	require.NoError(t, cli.WriteAddress(context.Background(), newAddr))
	require.Equal(t, newAddr, cli.Address())
}

func TestIntegrationUnknownDIFails(t *testing.T) {
	addr := dlt645.Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	cli, cleanup := newLoopback(t, addr, catalog.NewEmpty(nil))
	defer cleanup()

	di := dlt645.MakeDI(dlt645.DI3Energy, 9, 9, 0)
	_, err := cli.Read(context.Background(), di)
	require.Error(t, err)
}

func TestIntegrationBroadcastTimeSync(t *testing.T) {
	addr := dlt645.Address{0x01, 0x02, 0x03, 0x04, 0x05, 0x06}
	cli, cleanup := newLoopback(t, addr, catalog.NewEmpty(nil))
	defer cleanup()

	require.NoError(t, cli.BroadcastTimeSync(time.Now()))
}

func TestIntegrationReadFailsWithoutServer(t *testing.T) {
	ln, err := transport.NewTCPListener("127.0.0.1:0", 50*time.Millisecond)
	require.NoError(t, err)
	addr := ln.Addr().(*net.TCPAddr)
	ln.Close() // nothing is listening anymore

	conn := transport.NewTCP("127.0.0.1", addr.Port, 50*time.Millisecond)
	cli := client.New(conn, catalog.NewEmpty(nil), nil)

	_, err = cli.ReadAddress(context.Background())
	require.Error(t, err)
}
