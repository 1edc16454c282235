package dlt645

import (
	"errors"
	"testing"
	"time"
)

func TestBCDToIntRoundTrip(t *testing.T) {
	cases := []struct {
		value    uint64
		bytes    int
		little   bool
	}{
		{0, 2, false},
		{1234, 2, false},
		{1234, 2, true},
		{123456, 4, false},
		{99999999, 4, true},
	}
	for _, c := range cases {
		packed, err := IntToBCD(c.value, c.bytes, c.little)
		if err != nil {
			t.Fatalf("IntToBCD(%d): %v", c.value, err)
		}
		got, err := BCDToInt(packed, c.little)
		if err != nil {
			t.Fatalf("BCDToInt: %v", err)
		}
		if got != c.value {
			t.Errorf("round trip %d -> %x -> %d", c.value, packed, got)
		}
	}
}

func TestIntToBCDOverflow(t *testing.T) {
	if _, err := IntToBCD(1000, 1, false); !errors.Is(err, ErrOverflow) {
		t.Errorf("want ErrOverflow, got %v", err)
	}
}

func TestBCDToIntInvalidDigit(t *testing.T) {
	if _, err := BCDToInt([]byte{0xAB}, false); !errors.Is(err, ErrInvalidBCD) {
		t.Errorf("want ErrInvalidBCD, got %v", err)
	}
}

func TestFloat32BCDRoundTrip(t *testing.T) {
	cases := []struct {
		v      float32
		format string
	}{
		{1234.56, FormatXXXXdXX},
		{-1234.56, FormatXXXXdXX},
		{0, FormatXXXXdXX},
		{7.999, FormatXdXXX},
		{-7.999, FormatXdXXX},
	}
	for _, c := range cases {
		for _, little := range []bool{false, true} {
			packed, err := Float32ToBCD(c.v, c.format, little)
			if err != nil {
				t.Fatalf("Float32ToBCD(%v, %q): %v", c.v, c.format, err)
			}
			width := BCDWidth(c.format)
			var slice []byte
			if little {
				slice = packed[:width]
			} else {
				slice = packed[len(packed)-width:]
			}
			got, err := BCDToFloat32(slice, c.format, little)
			if err != nil {
				t.Fatalf("BCDToFloat32: %v", err)
			}
			if diff := float64(got) - float64(c.v); diff > 0.001 || diff < -0.001 {
				t.Errorf("round trip %v (%q, little=%v) -> %x -> %v", c.v, c.format, little, packed, got)
			}
		}
	}
}

func TestFloat32ToBCDAlwaysPadsToFourBytes(t *testing.T) {
	packed, err := Float32ToBCD(1.5, FormatXdXXX, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(packed) != 4 {
		t.Errorf("want 4-byte legacy padding, got %d bytes: %x", len(packed), packed)
	}
	if BCDWidth(FormatXdXXX) != 2 {
		t.Errorf("BCDWidth(%q) = %d, want 2", FormatXdXXX, BCDWidth(FormatXdXXX))
	}
}

func TestBCDToFloat32InvalidDigit(t *testing.T) {
	if _, err := BCDToFloat32([]byte{0x00, 0x00, 0xAB, 0x00}, FormatXXXXdXX, false); !errors.Is(err, ErrInvalidBCD) {
		t.Errorf("want ErrInvalidBCD, got %v", err)
	}
}

func TestIsValueValid(t *testing.T) {
	cases := []struct {
		format string
		v      float64
		want   bool
	}{
		{FormatXXXXdXX, 7999.99, true},
		{FormatXXXXdXX, 8000.00, false},
		{FormatXXXXdXX, -7999.99, true},
		{FormatXXXXdXX, -8000.00, false},
		{FormatText, 1e12, true},
	}
	for _, c := range cases {
		if got := IsValueValid(c.format, c.v); got != c.want {
			t.Errorf("IsValueValid(%q, %v) = %v, want %v", c.format, c.v, got, c.want)
		}
	}
}

func TestTimeBCDRoundTrip(t *testing.T) {
	in := time.Date(2024, time.March, 7, 13, 45, 0, 0, time.UTC)
	for _, little := range []bool{false, true} {
		packed := TimeToBCD(in, little)
		year, month, day, hour, minute, err := BCDToTime(packed, little)
		if err != nil {
			t.Fatalf("BCDToTime: %v", err)
		}
		out := AssembleTime(year, month, day, hour, minute, time.UTC)
		if !out.Equal(in) {
			t.Errorf("round trip %v (little=%v) -> %x -> %v", in, little, packed, out)
		}
	}
}
