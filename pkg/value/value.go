// Package value defines the runtime values manipulated by the sparrow VM.
//
// A Data is a small tagged union (unit, number, string, boolean) that is
// always passed by value. A Tagged is a handle on a Data cell; several
// handles may share one cell, and Deref produces an independent copy.
package value

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the variant stored in a Data.
type Kind uint8

const (
	KindUnit Kind = iota
	KindNumber
	KindString
	KindBoolean
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindUnit:
		return "unit"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindBoolean:
		return "boolean"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Data is a runtime value.
// Numbers and booleans live in bits; strings in str.
type Data struct {
	kind Kind
	bits uint64
	str  string
}

// Unit returns the unit value, written () in source.
func Unit() Data {
	return Data{kind: KindUnit}
}

// Number wraps f. The exact bit pattern is kept, including the sign of
// zero and NaN payloads.
func Number(f float64) Data {
	return Data{kind: KindNumber, bits: math.Float64bits(f)}
}

// String wraps s.
func String(s string) Data {
	return Data{kind: KindString, str: s}
}

// Boolean wraps b.
func Boolean(b bool) Data {
	var bits uint64
	if b {
		bits = 1
	}
	return Data{kind: KindBoolean, bits: bits}
}

// Kind returns the variant held by d.
func (d Data) Kind() Kind { return d.kind }

// IsUnit reports whether d is the unit value.
func (d Data) IsUnit() bool { return d.kind == KindUnit }

// AsNumber returns the number held by d. Only meaningful for KindNumber.
func (d Data) AsNumber() float64 { return math.Float64frombits(d.bits) }

// AsString returns the string held by d. Only meaningful for KindString.
func (d Data) AsString() string { return d.str }

// AsBoolean returns the boolean held by d. Only meaningful for KindBoolean.
func (d Data) AsBoolean() bool { return d.bits == 1 }

// Identical reports whether two values have the same kind and the same
// representation. Unlike Equal, 0 and -0 differ and NaN is identical to a
// NaN with the same bits.
func (d Data) Identical(other Data) bool {
	return d == other
}

// Equal reports whether two values have the same kind and payload.
// Numbers compare by IEEE value, so NaN is never equal to itself.
func (d Data) Equal(other Data) bool {
	if d.kind != other.kind {
		return false
	}
	switch d.kind {
	case KindUnit:
		return true
	case KindNumber:
		return d.AsNumber() == other.AsNumber()
	case KindString:
		return d.str == other.str
	case KindBoolean:
		return d.bits == other.bits
	default:
		return false
	}
}

// String renders the value the way the language prints it.
func (d Data) String() string {
	switch d.kind {
	case KindUnit:
		return "()"
	case KindNumber:
		return strconv.FormatFloat(d.AsNumber(), 'g', -1, 64)
	case KindString:
		return d.str
	case KindBoolean:
		return strconv.FormatBool(d.AsBoolean())
	default:
		return "<?>"
	}
}

// Inspect is like String but quotes strings, for stack dumps and
// disassembly listings.
func (d Data) Inspect() string {
	if d.kind == KindString {
		return strconv.Quote(d.str)
	}
	return d.String()
}

// Interface returns the value as a plain Go value: nil, float64, string
// or bool. Used when rendering stacks through generic encoders.
func (d Data) Interface() any {
	switch d.kind {
	case KindNumber:
		return d.AsNumber()
	case KindString:
		return d.str
	case KindBoolean:
		return d.AsBoolean()
	default:
		return nil
	}
}
