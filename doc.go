/*
Package dlt645 implements the wire protocol spoken between data
concentrators and electricity meters of the DL/T 645 family.

It provides low-level functions and types for framing requests and
responses (package-level Frame, BuildFrame/Serialize/Deserialize), for
converting between the packed-BCD fixed-point encoding meters use on
the wire and Go's float32/time.Time (IntToBCD/BCDToInt,
Float32ToBCD/BCDToFloat32, TimeToBCD/BCDToTime), and for validating
values against their declared data-format range (IsValueValid).

Higher-level provisions — the data-identifier catalog, the byte-stream
transports, and the client/server request-response engine — live in
the catalog, transport, client and server subpackages.

Typical usage, issuing a read-energy request over TCP:

	conn := transport.NewTCP("10.0.0.5", 10521, 5*time.Second)
	cat, _ := catalog.DefaultCatalog(nil)
	cli := client.New(conn, cat, nil)
	if err := cli.Connect(); err != nil {
	    log.Fatalf("connect failed: %s", err)
	}
	item, err := cli.Read(context.Background(), 0x00000000)
	if err != nil {
	    log.Fatalf("read failed: %s", err)
	}
	log.Printf("%s = %s %s", item.Name, item.Value.GoString(), item.Unit)

Protocol reference: DL/T 645-2007, "Multi-function watt-hour meter
communication protocol".
*/
package dlt645
