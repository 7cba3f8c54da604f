package value

import (
	"math"
	"testing"
)

func TestDataAccessors(t *testing.T) {
	if got := Number(37.2).AsNumber(); got != 37.2 {
		t.Errorf("Number(37.2).AsNumber() = %v, want 37.2", got)
	}
	if got := String("hi").AsString(); got != "hi" {
		t.Errorf("String(hi).AsString() = %q, want hi", got)
	}
	if !Boolean(true).AsBoolean() {
		t.Error("Boolean(true).AsBoolean() = false")
	}
	if Boolean(false).AsBoolean() {
		t.Error("Boolean(false).AsBoolean() = true")
	}
	if !Unit().IsUnit() {
		t.Error("Unit().IsUnit() = false")
	}
}

func TestDataEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Data
		want bool
	}{
		{"unit", Unit(), Unit(), true},
		{"same number", Number(1.5), Number(1.5), true},
		{"different number", Number(1.5), Number(2), false},
		{"same string", String("a"), String("a"), true},
		{"different string", String("a"), String("b"), false},
		{"same bool", Boolean(true), Boolean(true), true},
		{"different bool", Boolean(true), Boolean(false), false},
		{"kind mismatch", Number(0), Boolean(false), false},
		{"unit vs empty string", Unit(), String(""), false},
		{"nan", Number(math.NaN()), Number(math.NaN()), false},
		{"signed zero", Number(0), Number(math.Copysign(0, -1)), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDataIdentical(t *testing.T) {
	negZero := math.Copysign(0, -1)
	tests := []struct {
		name string
		a, b Data
		want bool
	}{
		{"unit", Unit(), Unit(), true},
		{"same number", Number(1.5), Number(1.5), true},
		{"signed zero", Number(0), Number(negZero), false},
		{"nan", Number(math.NaN()), Number(math.NaN()), true},
		{"same string", String("a"), String("a"), true},
		{"kind mismatch", Number(0), Boolean(false), false},
		{"unit vs false", Unit(), Boolean(false), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Identical(tt.b); got != tt.want {
				t.Errorf("%v.Identical(%v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestDataString(t *testing.T) {
	tests := []struct {
		d       Data
		str     string
		inspect string
	}{
		{Unit(), "()", "()"},
		{Number(37.2), "37.2", "37.2"},
		{Number(3), "3", "3"},
		{String("a\nb"), "a\nb", `"a\nb"`},
		{Boolean(true), "true", "true"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.str {
			t.Errorf("String() = %q, want %q", got, tt.str)
		}
		if got := tt.d.Inspect(); got != tt.inspect {
			t.Errorf("Inspect() = %q, want %q", got, tt.inspect)
		}
	}
}

func TestTaggedDeref(t *testing.T) {
	tg := NewTagged(Number(1))
	if got := tg.Deref(); !got.Equal(Number(1)) {
		t.Errorf("Deref() = %v, want 1", got)
	}
	if !tg.SameCell(tg) {
		t.Error("a handle should share its own cell")
	}
}

func TestNewTaggedCopiesInput(t *testing.T) {
	d := Boolean(true)
	a := NewTagged(d)
	b := NewTagged(d)
	if a.SameCell(b) {
		t.Error("two NewTagged calls share a cell")
	}
}

func TestZeroTagged(t *testing.T) {
	var tg Tagged
	if !tg.Deref().IsUnit() {
		t.Errorf("zero Tagged derefs to %v, want unit", tg.Deref())
	}
	if tg.SameCell(tg) {
		t.Error("zero Tagged reports sharing a cell")
	}
}
