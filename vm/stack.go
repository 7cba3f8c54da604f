package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/pkg/value"
)

// ItemKind identifies the variant of a stack item.
type ItemKind uint8

const (
	ItemData  ItemKind = iota // anonymous pushed value
	ItemLocal                 // named binding owning its value
	ItemFrame                 // scope boundary marker
)

// String returns a human-readable name for the kind.
func (k ItemKind) String() string {
	switch k {
	case ItemData:
		return "data"
	case ItemLocal:
		return "local"
	case ItemFrame:
		return "frame"
	default:
		return fmt.Sprintf("ItemKind(%d)", k)
	}
}

// Item is one slot of the execution stack.
type Item struct {
	Kind  ItemKind
	Local bytecode.Local // set for ItemLocal
	Value value.Tagged   // set for ItemData and ItemLocal
}

// DataItem returns an anonymous item wrapping t.
func DataItem(t value.Tagged) Item {
	return Item{Kind: ItemData, Value: t}
}

// LocalItem returns a binding of l that owns a fresh cell holding d.
func LocalItem(l bytecode.Local, d value.Data) Item {
	return Item{Kind: ItemLocal, Local: l, Value: value.NewTagged(d)}
}

// FrameItem returns a scope boundary marker.
func FrameItem() Item {
	return Item{Kind: ItemFrame}
}

// String renders the item for traces and stack dumps.
func (it Item) String() string {
	switch it.Kind {
	case ItemData:
		return fmt.Sprintf("Data(%s)", it.Value)
	case ItemLocal:
		return fmt.Sprintf("Local(%s = %s)", it.Local, it.Value)
	case ItemFrame:
		return "Frame"
	default:
		return it.Kind.String()
	}
}

// ErrBaseFrame is returned by PopFrame when only the base frame is left.
var ErrBaseFrame = errors.New("cannot pop the base frame")

// Initial stack capacity
const InitialStackSize = 256

// Stack is the VM's single execution stack. It starts with one Frame
// marker which no instruction ever removes.
type Stack struct {
	items []Item
}

// NewStack returns a stack holding only the base frame.
func NewStack() *Stack {
	s := &Stack{items: make([]Item, 0, InitialStackSize)}
	s.items = append(s.items, FrameItem())
	return s
}

// Len returns the number of items on the stack, frames included.
func (s *Stack) Len() int {
	return len(s.items)
}

// Push adds an item on top.
func (s *Stack) Push(it Item) {
	s.items = append(s.items, it)
}

// Pop removes and returns the top item. The vacated slot is zeroed so the
// value it owned is released.
func (s *Stack) Pop() (Item, bool) {
	n := len(s.items)
	if n == 0 {
		return Item{}, false
	}
	it := s.items[n-1]
	s.items[n-1] = Item{}
	s.items = s.items[:n-1]
	return it, true
}

// Peek returns the top item without removing it.
func (s *Stack) Peek() (Item, bool) {
	if len(s.items) == 0 {
		return Item{}, false
	}
	return s.items[len(s.items)-1], true
}

// At returns the item at index i, counted from the bottom.
func (s *Stack) At(i int) (Item, bool) {
	if i < 0 || i >= len(s.items) {
		return Item{}, false
	}
	return s.items[i], true
}

// Replace overwrites the item at index i in place. The previous item is
// dropped.
func (s *Stack) Replace(i int, it Item) bool {
	if i < 0 || i >= len(s.items) {
		return false
	}
	s.items[i] = it
	return true
}

// Snapshot returns a copy of the items, bottom first. Item values still
// share their cells with the live stack.
func (s *Stack) Snapshot() []Item {
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

// PushFrame opens a new scope.
func (s *Stack) PushFrame() {
	s.Push(FrameItem())
}

// PopFrame closes the innermost scope: every item above the nearest frame
// marker is dropped along with the marker itself. The bottom frame is
// never removed.
func (s *Stack) PopFrame() error {
	for i := len(s.items) - 1; i >= 0; i-- {
		if s.items[i].Kind != ItemFrame {
			continue
		}
		if i == 0 {
			return ErrBaseFrame
		}
		for j := i; j < len(s.items); j++ {
			s.items[j] = Item{}
		}
		s.items = s.items[:i]
		return nil
	}
	return ErrBaseFrame
}

// Depth returns the number of frame markers on the stack.
func (s *Stack) Depth() int {
	n := 0
	for _, it := range s.items {
		if it.Kind == ItemFrame {
			n++
		}
	}
	return n
}

// reset drops everything and restores the base frame.
func (s *Stack) reset() {
	for i := range s.items {
		s.items[i] = Item{}
	}
	s.items = append(s.items[:0], FrameItem())
}
