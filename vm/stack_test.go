package vm

import (
	"errors"
	"testing"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/pkg/value"
)

func TestStackPushPop(t *testing.T) {
	s := NewStack()
	s.Push(DataItem(value.NewTagged(value.Number(1))))
	s.Push(DataItem(value.NewTagged(value.Number(2))))

	if s.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", s.Len())
	}
	it, ok := s.Pop()
	if !ok || !it.Value.Deref().Equal(value.Number(2)) {
		t.Errorf("Pop() = %v, %v", it, ok)
	}
	it, ok = s.Peek()
	if !ok || !it.Value.Deref().Equal(value.Number(1)) {
		t.Errorf("Peek() = %v, %v", it, ok)
	}
}

func TestStackPopEmpty(t *testing.T) {
	s := NewStack()
	s.Pop()
	if _, ok := s.Pop(); ok {
		t.Error("Pop on empty stack reported ok")
	}
	if _, ok := s.Peek(); ok {
		t.Error("Peek on empty stack reported ok")
	}
}

func TestStackAtReplaceBounds(t *testing.T) {
	s := NewStack()
	if _, ok := s.At(-1); ok {
		t.Error("At(-1) reported ok")
	}
	if _, ok := s.At(1); ok {
		t.Error("At(1) reported ok")
	}
	if s.Replace(5, FrameItem()) {
		t.Error("Replace out of range reported ok")
	}
}

func TestResolve(t *testing.T) {
	x := bytecode.Local{Name: "x"}
	s := NewStack()
	s.Push(LocalItem(x, value.Number(1)))
	s.Push(DataItem(value.NewTagged(value.Unit())))

	i, ok := s.Resolve(x)
	if !ok || i != 1 {
		t.Errorf("Resolve(x) = %d, %v; want 1, true", i, ok)
	}
	if _, ok := s.Resolve(bytecode.Local{Name: "x", Scope: 2}); ok {
		t.Error("descriptor with another scope resolved")
	}

	s.PushFrame()
	if _, ok := s.Resolve(x); ok {
		t.Error("binding below a frame resolved")
	}

	s.Push(LocalItem(x, value.Number(2)))
	i, ok = s.Resolve(x)
	if !ok || i != 4 {
		t.Errorf("shadowed Resolve(x) = %d, %v; want 4, true", i, ok)
	}
}

func TestPopFrame(t *testing.T) {
	s := NewStack()
	s.Push(LocalItem(bytecode.Local{Name: "a"}, value.Number(1)))
	s.PushFrame()
	s.Push(LocalItem(bytecode.Local{Name: "b"}, value.Number(2)))
	s.Push(DataItem(value.NewTagged(value.Unit())))

	if s.Depth() != 2 {
		t.Errorf("Depth() = %d, want 2", s.Depth())
	}
	if err := s.PopFrame(); err != nil {
		t.Fatalf("PopFrame: %v", err)
	}
	assertKinds(t, s, ItemFrame, ItemLocal)

	if err := s.PopFrame(); !errors.Is(err, ErrBaseFrame) {
		t.Errorf("PopFrame on base = %v, want ErrBaseFrame", err)
	}
	assertKinds(t, s, ItemFrame, ItemLocal)
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewStack()
	snap := s.Snapshot()
	s.Push(FrameItem())
	if len(snap) != 1 {
		t.Errorf("snapshot changed length to %d", len(snap))
	}
}

func TestItemString(t *testing.T) {
	tests := []struct {
		item Item
		want string
	}{
		{DataItem(value.NewTagged(value.Number(37.2))), "Data(37.2)"},
		{LocalItem(bytecode.Local{Name: "x"}, value.Boolean(true)), "Local(x = true)"},
		{LocalItem(bytecode.Local{Name: "x", Scope: 1}, value.Unit()), "Local(x@1 = ())"},
		{FrameItem(), "Frame"},
	}
	for _, tt := range tests {
		if got := tt.item.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
