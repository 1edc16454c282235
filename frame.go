package dlt645

// Frame markers and sizing.
const (
	startMarker = 0x68
	endMarker   = 0x16
	dataXOR     = 0x33

	// minFrameLen is the shortest possible frame, start-marker through
	// end-marker inclusive, with a zero-length data domain:
	// 68 AAAAAAAAAAAA 68 CC LL CS 16
	minFrameLen = 1 + AddrLen + 1 + 1 + 1 + 1 + 1

	// DefaultPreambleLen is the number of 0xFE bytes BuildFrame
	// prepends to wake a receiving UART.
	DefaultPreambleLen = 4
)

// Frame is a parsed DL/T645 frame. Data is always the logical,
// decoded data domain: Serialize re-applies the ±0x33 transform and
// the checksum on every call, so mutating Data and re-serializing
// produces a correctly re-encoded frame.
type Frame struct {
	Addr     Address
	Ctrl     byte
	Data     []byte
	Preamble int // number of leading 0xFE bytes to emit; 0 = none
}

// encodeData adds 0x33 to each byte, modulo 256.
func encodeData(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b + dataXOR
	}
	return out
}

// decodeData subtracts 0x33 from each byte, modulo 256.
func decodeData(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b - dataXOR
	}
	return out
}

func checksum(b []byte) byte {
	var sum byte
	for _, c := range b {
		sum += c
	}
	return sum
}

// BuildFrame assembles the on-wire bytes for a frame with the given
// address, control code, and logical (decoded) data domain, including
// a DefaultPreambleLen-byte 0xFE preamble.
func BuildFrame(addr Address, ctrl byte, data []byte) []byte {
	return (&Frame{Addr: addr, Ctrl: ctrl, Data: data, Preamble: DefaultPreambleLen}).Serialize()
}

// Serialize renders f to on-wire bytes: preamble, both start markers,
// address, control code, length, ±0x33-encoded data, checksum, end
// marker. The checksum is the modulo-256 sum of every byte from the
// first start marker through the last data byte, inclusive.
func (f *Frame) Serialize() []byte {
	encoded := encodeData(f.Data)

	body := make([]byte, 0, 1+AddrLen+1+1+1+len(encoded)+2)
	body = append(body, startMarker)
	body = append(body, f.Addr[:]...)
	body = append(body, startMarker, f.Ctrl, byte(len(encoded)))
	body = append(body, encoded...)
	cs := checksum(body)
	body = append(body, cs, endMarker)

	if f.Preamble <= 0 {
		return body
	}
	out := make([]byte, f.Preamble, f.Preamble+len(body))
	for i := range out {
		out[i] = 0xFE
	}
	return append(out, body...)
}

// Deserialize scans raw for the first start marker and parses a
// complete frame from there, tolerating arbitrary leading noise
// (e.g. a 0xFE preamble) and trailing bytes beyond the frame. It
// returns ErrNoFrame (wrapped in a *FrameError) if no complete,
// checksum-valid frame can be found starting at the first 0x68.
func Deserialize(raw []byte) (*Frame, error) {
	idx := indexByte(raw, startMarker)
	if idx < 0 {
		return nil, newFrameError("deserialize", ErrNoFrame)
	}
	if idx+minFrameLen > len(raw) {
		return nil, newFrameError("deserialize", ErrNoFrame)
	}
	if raw[idx+7] != startMarker {
		return nil, newFrameError("deserialize", ErrNoFrame)
	}

	ctrl := raw[idx+8]
	dataLen := int(raw[idx+9])
	dataStart := idx + 10
	dataEnd := dataStart + dataLen
	csIdx := dataEnd
	endIdx := csIdx + 1
	if endIdx >= len(raw) {
		return nil, newFrameError("deserialize", ErrNoFrame)
	}

	calc := checksum(raw[idx:csIdx])
	if calc != raw[csIdx] {
		return nil, newFrameError("deserialize", ErrNoFrame)
	}
	if raw[endIdx] != endMarker {
		return nil, newFrameError("deserialize", ErrNoFrame)
	}

	var addr Address
	copy(addr[:], raw[idx+1:idx+1+AddrLen])

	return &Frame{
		Addr: addr,
		Ctrl: ctrl,
		Data: decodeData(raw[dataStart:dataEnd]),
	}, nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
