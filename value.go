package dlt645

import (
	"fmt"
	"time"
)

// Data format masks. A format's on-wire width is BCDWidth(format)
// bytes; its decimal scale is its digit count after the dot.
const (
	FormatXXXXXXdXX = "XXXXXX.XX"
	FormatXXXXdXX   = "XXXX.XX"
	FormatXXXdXXX   = "XXX.XXX"
	FormatXXXdX     = "XXX.X"
	FormatXXdXXXX   = "XX.XXXX"
	FormatXXdXX     = "XX.XX"
	FormatXdXXX     = "X.XXX"
	// FormatText marks a non-numeric payload (e.g. a raw address),
	// not subject to range validation.
	FormatText = "XXXXXXXXXXXX"
)

// valueRange holds the inclusive bounds a data format permits.
type valueRange struct{ min, max float64 }

var formatRanges = map[string]valueRange{
	FormatXXXXXXdXX: {-799999.99, 799999.99},
	FormatXXXXdXX:   {-7999.99, 7999.99},
	FormatXXXdXXX:   {-799.999, 799.999},
	FormatXXXdX:     {-799.9, 799.9},
	FormatXXdXXXX:   {-79.9999, 79.9999},
	FormatXXdXX:     {-79.99, 79.99},
	FormatXdXXX:     {-7.999, 7.999},
}

// IsValueValid reports whether v falls within the range format
// declares. Formats with no declared range (FormatText, and any
// format not listed in the table above) are always considered valid —
// mirroring the original dispatcher's "default: true" behavior for
// formats it does not specifically range-check.
func IsValueValid(format string, v float64) bool {
	r, ok := formatRanges[format]
	if !ok {
		return true
	}
	return v >= r.min && v <= r.max
}

// Kind tags the active member of a Value union.
type Kind int

const (
	KindEmpty Kind = iota
	KindFloat32
	KindInt32
	KindUint32
	KindString
	KindDemand
)

// Demand is a time-stamped maximum-value register: a magnitude and
// the wall-clock instant it occurred.
type Demand struct {
	Magnitude   float32
	OccurTime   time.Time
}

// Value is a tagged union over the kinds of payload a DataItem can
// carry. Exactly one accessor is meaningful, selected by Kind; the
// others return their zero value.
type Value struct {
	kind   Kind
	f32    float32
	i32    int32
	u32    uint32
	str    string
	demand Demand
}

func EmptyValue() Value                { return Value{kind: KindEmpty} }
func Float32Value(v float32) Value     { return Value{kind: KindFloat32, f32: v} }
func Int32Value(v int32) Value         { return Value{kind: KindInt32, i32: v} }
func Uint32Value(v uint32) Value       { return Value{kind: KindUint32, u32: v} }
func StringValue(v string) Value       { return Value{kind: KindString, str: v} }
func DemandValue(v Demand) Value       { return Value{kind: KindDemand, demand: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) Float32() (float32, bool) { return v.f32, v.kind == KindFloat32 }
func (v Value) Int32() (int32, bool)     { return v.i32, v.kind == KindInt32 }
func (v Value) Uint32() (uint32, bool)   { return v.u32, v.kind == KindUint32 }
func (v Value) String() (string, bool)   { return v.str, v.kind == KindString }
func (v Value) Demand() (Demand, bool)   { return v.demand, v.kind == KindDemand }

// AsFloat64 converts whichever numeric kind is active to a float64,
// for range-checking and logging. It returns (0, false) for
// KindEmpty, KindString, and KindDemand.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat32:
		return float64(v.f32), true
	case KindInt32:
		return float64(v.i32), true
	case KindUint32:
		return float64(v.u32), true
	default:
		return 0, false
	}
}

func (v Value) GoString() string {
	switch v.kind {
	case KindEmpty:
		return "<empty>"
	case KindFloat32:
		return fmt.Sprintf("%g", v.f32)
	case KindInt32:
		return fmt.Sprintf("%d", v.i32)
	case KindUint32:
		return fmt.Sprintf("%d", v.u32)
	case KindString:
		return v.str
	case KindDemand:
		return fmt.Sprintf("%g@%s", v.demand.Magnitude, v.demand.OccurTime)
	default:
		return "<invalid>"
	}
}

// DataItem is a named, formatted, unit-tagged metering quantity keyed
// by a 32-bit data identifier. See SplitDI for the DI layout.
type DataItem struct {
	DI         uint32
	Name       string
	DataFormat string
	Value      Value
	Unit       string
	Timestamp  time.Time
}

// Clone returns a copy of the item; DataItem has no reference fields
// so a plain value copy suffices, but Clone documents the catalog's
// "readers get a snapshot, never a live reference" invariant at call
// sites.
func (d DataItem) Clone() DataItem { return d }
