package dlt645

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// bcdToDigit unpacks one BCD byte into its two decimal digits
// (tens, units). It returns an error if either nibble exceeds 9.
func bcdToDigit(b byte) (tens, units int, err error) {
	tens, units = int(b>>4), int(b&0x0F)
	if tens > 9 || units > 9 {
		return 0, 0, fmt.Errorf("%w: 0x%02X", ErrInvalidBCD, b)
	}
	return tens, units, nil
}

func digitToBCD(tens, units int) byte {
	return byte(tens<<4 | units)
}

func reversed(b []byte) []byte {
	r := make([]byte, len(b))
	for i, v := range b {
		r[len(b)-1-i] = v
	}
	return r
}

// BCDToInt reads a packed-BCD byte-slice as an unsigned integer,
// most-significant byte first unless little is true. A nibble above 9
// anywhere in b makes the whole conversion invalid; BCDToInt returns 0
// and wraps ErrInvalidBCD so callers who need to distinguish a
// genuine zero from a malformed byte can do so with errors.Is.
func BCDToInt(b []byte, little bool) (uint64, error) {
	if little {
		b = reversed(b)
	}
	var v uint64
	var bad bool
	for _, c := range b {
		tens, units, err := bcdToDigit(c)
		if err != nil {
			bad = true
			continue
		}
		v = v*100 + uint64(tens)*10 + uint64(units)
	}
	if bad {
		return 0, ErrInvalidBCD
	}
	return v, nil
}

// IntToBCD packs value into exactly byteCount packed-BCD bytes,
// most-significant byte first unless little is true, padding with
// 0x00 on the most-significant side. It returns ErrOverflow if value's
// decimal representation does not fit in byteCount bytes (two digits
// per byte); unlike the legacy implementation this never silently
// truncates the most-significant digits.
func IntToBCD(value uint64, byteCount int, little bool) ([]byte, error) {
	digits := strconv.FormatUint(value, 10)
	if len(digits) > byteCount*2 {
		return nil, fmt.Errorf("%w: %d needs more than %d bytes", ErrOverflow, value, byteCount)
	}
	if len(digits)%2 != 0 {
		digits = "0" + digits
	}
	for len(digits) < byteCount*2 {
		digits = "00" + digits
	}
	out := make([]byte, byteCount)
	for i := 0; i < byteCount; i++ {
		tens := int(digits[2*i] - '0')
		units := int(digits[2*i+1] - '0')
		out[i] = digitToBCD(tens, units)
	}
	if little {
		out = reversed(out)
	}
	return out, nil
}

// digitString renders a packed-BCD byte-slice (already in
// most-significant-first order) as a decimal digit string, returning
// an error if it contains an invalid nibble.
func digitString(b []byte) (string, error) {
	var sb strings.Builder
	bad := false
	for _, c := range b {
		tens, units, err := bcdToDigit(c)
		if err != nil {
			bad = true
			continue
		}
		sb.WriteByte(byte('0' + tens))
		sb.WriteByte(byte('0' + units))
	}
	if bad {
		return "", ErrInvalidBCD
	}
	return sb.String(), nil
}

// formatDigits splits a fixed-point mask like "XXXX.XX" into its
// total digit count and its decimal-place count.
func formatDigits(format string) (total, decimals int, err error) {
	parts := strings.SplitN(format, ".", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("dlt645: invalid data format %q", format)
	}
	return len(parts[0]) + len(parts[1]), len(parts[1]), nil
}

// Float32ToBCD encodes v as packed BCD per format (e.g. "XXXX.XX").
// Negative values set the sign bit (0x80) on the most-significant
// byte of the declared width (BCDWidth), before any little-endian
// reversal, so the sign survives slicing to that width. Per the legacy contract
// (§9 of the protocol spec) the result is always padded to at least 4
// bytes on the most-significant side; callers that need the declared
// on-wire width for a short format (e.g. "X.XXX", 2 bytes) must slice
// the low bytes themselves — see BCDWidth.
func Float32ToBCD(v float32, format string, little bool) ([]byte, error) {
	total, decimals, err := formatDigits(format)
	if err != nil {
		return nil, err
	}
	neg := v < 0
	scale := math.Pow10(decimals)
	rounded := math.Round(math.Abs(float64(v)) * scale)
	digits := strconv.FormatFloat(rounded/scale, 'f', decimals, 64)
	digits = strings.Replace(digits, ".", "", 1)
	for len(digits) < total {
		digits = "0" + digits
	}

	byteCount := (total + 1) / 2
	if byteCount < 4 {
		byteCount = 4
	}
	padded := digits
	for len(padded) < byteCount*2 {
		padded = "0" + padded
	}

	out := make([]byte, byteCount)
	for i := 0; i < byteCount; i++ {
		tens := int(padded[2*i] - '0')
		units := int(padded[2*i+1] - '0')
		out[i] = digitToBCD(tens, units)
	}
	if neg {
		out[byteCount-(total+1)/2] |= 0x80
	}
	if little {
		out = reversed(out)
	}
	return out, nil
}

// BCDWidth returns the on-wire byte width a format declares:
// ceil(total_digits/2).
func BCDWidth(format string) int {
	total, _, err := formatDigits(format)
	if err != nil {
		return 0
	}
	return (total + 1) / 2
}

// BCDToFloat32 decodes packed BCD bytes per format, inverse of
// Float32ToBCD. It returns an error (wrapping ErrInvalidBCD) rather
// than silently returning zero when b contains an invalid nibble, so
// callers can tell a malformed payload apart from a legitimately-zero
// register.
func BCDToFloat32(b []byte, format string, little bool) (float32, error) {
	total, decimals, err := formatDigits(format)
	if err != nil {
		return 0, err
	}
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: empty buffer", ErrInvalidBCD)
	}
	buf := append([]byte(nil), b...)
	// Only the declared width carries the value and its sign; extra
	// most-significant padding (as Float32ToBCD emits) is dropped.
	if width := (total + 1) / 2; len(buf) > width {
		if little {
			buf = buf[:width]
		} else {
			buf = buf[len(buf)-width:]
		}
	}
	var neg bool
	if little {
		neg = buf[len(buf)-1]&0x80 != 0
		buf[len(buf)-1] &^= 0x80
		buf = reversed(buf)
	} else {
		neg = buf[0]&0x80 != 0
		buf[0] &^= 0x80
	}

	digits, err := digitString(buf)
	if err != nil {
		return 0, err
	}
	for len(digits) < total {
		digits = "0" + digits
	}
	digits = digits[len(digits)-total:]
	intPart := digits[:total-decimals]
	fracPart := digits[total-decimals:]
	valStr := intPart + "." + fracPart
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return 0, fmt.Errorf("dlt645: parse %q: %w", valStr, err)
	}
	if neg {
		val = -val
	}
	return float32(val), nil
}

// TimeToBCD encodes t as the 5-byte YY MM DD hh mm layout the protocol
// uses for time-sync and demand occurrence timestamps. Year is
// truncated to the last two digits; month is 1-indexed. If little,
// the five bytes are reversed end-to-end.
func TimeToBCD(t time.Time, little bool) []byte {
	year, month, day := t.Year(), int(t.Month()), t.Day()
	hour, minute := t.Hour(), t.Minute()
	out := []byte{
		digitToBCD(year%100/10, year%10),
		digitToBCD(month/10, month%10),
		digitToBCD(day/10, day%10),
		digitToBCD(hour/10, hour%10),
		digitToBCD(minute/10, minute%10),
	}
	if little {
		out = reversed(out)
	}
	return out
}

// BCDToTime decodes the 5-byte YY MM DD hh mm layout into its
// component fields (year is reconstructed as 2000+YY). It does not
// depend on time.Time so the codec package stays free of timezone
// policy; callers assemble a time.Time in their own zone.
func BCDToTime(b []byte, little bool) (year, month, day, hour, minute int, err error) {
	if len(b) != 5 {
		return 0, 0, 0, 0, 0, fmt.Errorf("dlt645: time BCD must be 5 bytes, got %d", len(b))
	}
	buf := append([]byte(nil), b...)
	if little {
		buf = reversed(buf)
	}
	digits, err := digitString(buf)
	if err != nil {
		return 0, 0, 0, 0, 0, err
	}
	yy, _ := strconv.Atoi(digits[0:2])
	mm, _ := strconv.Atoi(digits[2:4])
	dd, _ := strconv.Atoi(digits[4:6])
	hh, _ := strconv.Atoi(digits[6:8])
	mi, _ := strconv.Atoi(digits[8:10])
	return 2000 + yy, mm, dd, hh, mi, nil
}

// AssembleTime builds a time.Time from BCDToTime's component fields,
// in the given location (the wire format carries no timezone).
func AssembleTime(year, month, day, hour, minute int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
}
