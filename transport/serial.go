package transport

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"
)

// RTUConfig describes the serial line parameters for a DL/T645
// master over RS-485/RS-232.
type RTUConfig struct {
	Device   string
	BaudRate int
	DataBits int
	StopBits int
	Parity   string // "N", "E", or "O", per github.com/goburrow/serial
	Timeout  time.Duration
}

// RTU is a Conn over a serial port. Unlike TCP, the underlying
// github.com/goburrow/serial.Port has no per-call SetReadDeadline:
// its read timeout is fixed at Open time from RTUConfig.Timeout, so
// SetTimeout on an already-open RTU changes only the local backstop in
// readWithin; the driver's own timeout changes at the next reconnect.
type RTU struct {
	mu   sync.Mutex
	cfg  RTUConfig
	port io.ReadWriteCloser
}

// NewRTU returns an RTU Conn that will open cfg.Device on Connect.
func NewRTU(cfg RTUConfig) *RTU {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Parity == "" {
		cfg.Parity = "N"
	}
	return &RTU{cfg: cfg}
}

func (c *RTU) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port != nil {
		return nil
	}
	port, err := serial.Open(&serial.Config{
		Address:  c.cfg.Device,
		BaudRate: c.cfg.BaudRate,
		DataBits: c.cfg.DataBits,
		StopBits: c.cfg.StopBits,
		Parity:   c.cfg.Parity,
		Timeout:  c.cfg.Timeout,
	})
	if err != nil {
		return fmt.Errorf("transport: open %s: %w", c.cfg.Device, err)
	}
	c.port = port
	return nil
}

func (c *RTU) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	if err != nil {
		return fmt.Errorf("transport: close %s: %w", c.cfg.Device, err)
	}
	return nil
}

func (c *RTU) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.port != nil
}

// SetTimeout records the new timeout. SendRequest's backstop uses it
// at once; the driver's own read timeout takes it the next time
// Connect opens the port, since the serial driver only accepts a
// read timeout at open time.
func (c *RTU) SetTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.Timeout = d
}

func (c *RTU) SendRequest(req []byte) ([]byte, error) {
	c.mu.Lock()
	port, timeout := c.port, c.cfg.Timeout
	c.mu.Unlock()
	if port == nil {
		return nil, ErrNotConnected
	}

	if _, err := port.Write(req); err != nil {
		return nil, fmt.Errorf("transport: write: %w", err)
	}

	buf := make([]byte, readBufSize)
	n, err := readWithin(port, buf, timeout)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// readWithin reads once from r, racing the driver's own timeout
// against a local backstop in case the driver ignores it.
func readWithin(r io.Reader, buf []byte, timeout time.Duration) (int, error) {
	done := make(chan readResult, 1)
	go func() {
		n, err := r.Read(buf)
		done <- readResult{n, err}
	}()

	select {
	case res := <-done:
		return res.n, res.err
	case <-time.After(timeout + 200*time.Millisecond):
		return 0, ErrTimeout
	}
}
