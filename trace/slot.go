package trace

import (
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/chazu/sparrow/vm"
)

// Slot is a serializable view of one stack item.
type Slot struct {
	Kind  string `cbor:"1,keyasint" yaml:"kind"`
	Name  string `cbor:"2,keyasint,omitempty" yaml:"name,omitempty"`
	Scope uint32 `cbor:"3,keyasint,omitempty" yaml:"scope,omitempty"`
	Value any    `cbor:"4,keyasint,omitempty" yaml:"value,omitempty"`
}

// Slots converts stack items, bottom first. Unit values become nil.
func Slots(items []vm.Item) []Slot {
	out := make([]Slot, len(items))
	for i, it := range items {
		s := Slot{Kind: it.Kind.String()}
		switch it.Kind {
		case vm.ItemLocal:
			s.Name = it.Local.Name
			s.Scope = it.Local.Scope
			s.Value = it.Value.Deref().Interface()
		case vm.ItemData:
			s.Value = it.Value.Deref().Interface()
		}
		out[i] = s
	}
	return out
}

// FormatStack renders items on one line, bottom first.
func FormatStack(items []vm.Item) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, it := range items {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(it.String())
	}
	sb.WriteByte(']')
	return sb.String()
}

// StackYAML renders items as a YAML sequence, bottom first.
func StackYAML(items []vm.Item) ([]byte, error) {
	return yaml.Marshal(Slots(items))
}
