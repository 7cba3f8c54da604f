package vm

import (
	"errors"
	"strings"
	"testing"

	"github.com/chazu/sparrow/pkg/bytecode"
	"github.com/chazu/sparrow/pkg/value"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var (
	localX = bytecode.Local{Name: "x"}
	localY = bytecode.Local{Name: "y"}
)

func kinds(items []Item) []ItemKind {
	out := make([]ItemKind, len(items))
	for i, it := range items {
		out[i] = it.Kind
	}
	return out
}

func assertKinds(t *testing.T, s *Stack, want ...ItemKind) {
	t.Helper()
	got := kinds(s.Snapshot())
	if len(got) != len(want) {
		t.Fatalf("stack kinds = %v, want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("stack kinds = %v, want %v", got, want)
		}
	}
}

func assertFault(t *testing.T, err error, kind FaultKind) *Fault {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", kind)
	}
	var f *Fault
	if !errors.As(err, &f) {
		t.Fatalf("expected *Fault, got %T: %v", err, err)
	}
	if f.Kind != kind {
		t.Fatalf("fault kind = %s, want %s (%v)", f.Kind, kind, err)
	}
	return f
}

// ---------------------------------------------------------------------------
// Instruction semantics
// ---------------------------------------------------------------------------

func TestNewVMHasBaseFrame(t *testing.T) {
	vm := New()
	assertKinds(t, vm.Stack(), ItemFrame)
	if _, ok := vm.Top(); ok {
		t.Error("Top should report false on a bare frame")
	}
}

func TestConSaveLoad(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(37.2))
	c.EmitSave(localX)
	c.EmitLoad(localX)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}

	assertKinds(t, vm.Stack(), ItemFrame, ItemLocal, ItemData)

	local, _ := vm.Stack().At(1)
	if local.Local != localX {
		t.Errorf("binding = %v, want %v", local.Local, localX)
	}
	if got := local.Value.Deref(); !got.Equal(value.Number(37.2)) {
		t.Errorf("binding value = %v, want 37.2", got)
	}

	top, _ := vm.Stack().At(2)
	if got := top.Value.Deref(); !got.Equal(value.Number(37.2)) {
		t.Errorf("loaded value = %v, want 37.2", got)
	}
	if top.Value.SameCell(local.Value) {
		t.Error("loaded value must not share storage with the binding")
	}

	v, ok := vm.Top()
	if !ok || !v.Equal(value.Number(37.2)) {
		t.Errorf("Top() = %v, %v", v, ok)
	}
}

// x = 37.2; true; y = true; x
func TestHandAssembledProgram(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(37.2))
	c.EmitSave(localX)
	c.Emit(bytecode.OpClear)
	c.EmitConstant(value.Boolean(true))
	c.Emit(bytecode.OpClear)
	c.EmitConstant(value.Boolean(true))
	c.EmitSave(localY)
	c.Emit(bytecode.OpClear)
	c.EmitLoad(localX)

	m := New()
	if err := m.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertKinds(t, m.Stack(), ItemFrame, ItemLocal, ItemLocal, ItemData)

	items := m.Stack().Snapshot()
	if items[1].Local != localX || items[2].Local != localY {
		t.Errorf("bindings = %s, %s, want x then y", items[1], items[2])
	}
	top, ok := m.Top()
	if !ok || !top.Equal(value.Number(37.2)) {
		t.Errorf("Top() = %v, %v, want 37.2", top, ok)
	}
}

func TestConPushesFreshCopies(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.String("hi"))
	c.EmitConstant(value.String("hi"))

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	a, _ := vm.Stack().At(1)
	b, _ := vm.Stack().At(2)
	if a.Value.SameCell(b.Value) {
		t.Error("two CONs of the same constant share a cell")
	}
}

func TestSaveOverwritesInPlace(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))
	c.EmitSave(localX)
	c.EmitConstant(value.Number(5))
	c.EmitSave(localY)
	c.EmitConstant(value.Number(2))
	c.EmitSave(localX)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertKinds(t, vm.Stack(), ItemFrame, ItemLocal, ItemLocal)

	x, _ := vm.Stack().At(1)
	if x.Local != localX || !x.Value.Deref().Equal(value.Number(2)) {
		t.Errorf("x binding = %v", x)
	}
	y, _ := vm.Stack().At(2)
	if y.Local != localY || !y.Value.Deref().Equal(value.Number(5)) {
		t.Errorf("y binding = %v", y)
	}
}

func TestSaveDistinguishesScope(t *testing.T) {
	inner := bytecode.Local{Name: "x", Scope: 1}

	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))
	c.EmitSave(localX)
	c.EmitConstant(value.Number(2))
	c.EmitSave(inner)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertKinds(t, vm.Stack(), ItemFrame, ItemLocal, ItemLocal)
}

func TestSaveRequiresData(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitSave(localX)

	vm := New()
	f := assertFault(t, vm.Run(c), FaultStackShape)
	if f.Op != bytecode.OpSave || f.Offset != 0 {
		t.Errorf("fault location = %04X %s", f.Offset, f.Op)
	}
	if !strings.Contains(f.Msg, "expected data value on stack") {
		t.Errorf("unexpected message %q", f.Msg)
	}
	assertKinds(t, vm.Stack(), ItemFrame)
}

func TestSaveOnLocalTop(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))
	c.EmitSave(localX)
	c.EmitSave(localY)

	vm := New()
	assertFault(t, vm.Run(c), FaultStackShape)
	assertKinds(t, vm.Stack(), ItemFrame, ItemLocal)
}

func TestLoadLeavesBinding(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Boolean(true))
	c.EmitSave(localX)
	c.EmitLoad(localX)
	c.EmitLoad(localX)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertKinds(t, vm.Stack(), ItemFrame, ItemLocal, ItemData, ItemData)
}

func TestLoadSkipsData(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(7))
	c.EmitSave(localX)
	c.EmitConstant(value.Unit())
	c.EmitConstant(value.Unit())
	c.EmitLoad(localX)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	v, _ := vm.Top()
	if !v.Equal(value.Number(7)) {
		t.Errorf("Top() = %v, want 7", v)
	}
}

func TestLoadUnbound(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitLoad(localX)

	vm := New()
	f := assertFault(t, vm.Run(c), FaultResolution)
	if !strings.Contains(f.Msg, "not found on stack") {
		t.Errorf("unexpected message %q", f.Msg)
	}
}

func TestLoadStopsAtFrame(t *testing.T) {
	save := bytecode.NewChunk()
	save.EmitConstant(value.Number(1))
	save.EmitSave(localX)

	vm := New()
	if err := vm.Run(save); err != nil {
		t.Fatalf("Run: %v", err)
	}
	vm.Stack().PushFrame()

	load := bytecode.NewChunk()
	load.EmitLoad(localX)
	assertFault(t, vm.Run(load), FaultResolution)

	if err := vm.Stack().PopFrame(); err != nil {
		t.Fatalf("PopFrame: %v", err)
	}
	if err := vm.Run(load); err != nil {
		t.Fatalf("Run after PopFrame: %v", err)
	}
}

func TestSaveInNewFrameShadows(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))
	c.EmitSave(localX)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	vm.Stack().PushFrame()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run in inner frame: %v", err)
	}
	assertKinds(t, vm.Stack(), ItemFrame, ItemLocal, ItemFrame, ItemLocal)
}

func TestClear(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))
	c.EmitSave(localX)
	c.EmitConstant(value.Number(2))
	c.EmitConstant(value.Number(3))
	c.Emit(bytecode.OpClear)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertKinds(t, vm.Stack(), ItemFrame, ItemLocal)
}

func TestClearIdempotent(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))
	c.Emit(bytecode.OpClear)
	c.Emit(bytecode.OpClear)
	c.Emit(bytecode.OpClear)

	vm := New()
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	assertKinds(t, vm.Stack(), ItemFrame)
}

func TestClearExhaustion(t *testing.T) {
	vm := New()
	vm.Stack().Pop()

	c := bytecode.NewChunk()
	c.Emit(bytecode.OpClear)
	f := assertFault(t, vm.Run(c), FaultExhaustion)
	if !errors.Is(f, ErrExhaustion) {
		t.Error("errors.Is(fault, ErrExhaustion) = false")
	}
}

// ---------------------------------------------------------------------------
// Decode faults
// ---------------------------------------------------------------------------

func TestTruncatedOperand(t *testing.T) {
	c := bytecode.NewChunk()
	c.AddConstant(value.Number(1))
	c.Code = []byte{byte(bytecode.OpCon), 0x80}

	vm := New()
	err := vm.Run(c)
	assertFault(t, err, FaultDecode)
	if !errors.Is(err, ErrDecode) {
		t.Error("errors.Is(err, ErrDecode) = false")
	}
	if !errors.Is(err, bytecode.ErrTruncatedOperand) {
		t.Error("fault should wrap ErrTruncatedOperand")
	}
	assertKinds(t, vm.Stack(), ItemFrame)
}

func TestMissingOperand(t *testing.T) {
	c := bytecode.NewChunk()
	c.Code = []byte{byte(bytecode.OpLoad)}

	assertFault(t, New().Run(c), FaultDecode)
}

func TestOverflowingOperand(t *testing.T) {
	c := bytecode.NewChunk()
	c.Code = append([]byte{byte(bytecode.OpCon)},
		0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01)

	err := New().Run(c)
	assertFault(t, err, FaultDecode)
	if !errors.Is(err, bytecode.ErrOperandOverflow) {
		t.Errorf("fault should wrap ErrOperandOverflow: %v", err)
	}
}

func TestUnknownOpcode(t *testing.T) {
	c := bytecode.NewChunk()
	c.EmitConstant(value.Unit())
	c.Code = append(c.Code, 0xEE)

	vm := New()
	f := assertFault(t, vm.Run(c), FaultDecode)
	if f.Offset != 2 {
		t.Errorf("fault offset = %d, want 2", f.Offset)
	}
	// the CON before the bad byte has already run
	assertKinds(t, vm.Stack(), ItemFrame, ItemData)
}

func TestOutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		code []byte
	}{
		{"constant", bytecode.AppendOperand([]byte{byte(bytecode.OpCon)}, 3)},
		{"load", bytecode.AppendOperand([]byte{byte(bytecode.OpLoad)}, 0)},
		{"save", bytecode.AppendOperand([]byte{byte(bytecode.OpSave)}, 1)},
		{"huge", bytecode.AppendOperand([]byte{byte(bytecode.OpCon)}, ^uint64(0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := bytecode.NewChunk()
			c.AddConstant(value.Number(1))
			c.Code = tt.code
			assertFault(t, New().Run(c), FaultOutOfBounds)
		})
	}
}

func TestKindOf(t *testing.T) {
	if _, ok := KindOf(errors.New("plain")); ok {
		t.Error("KindOf(plain error) reported a fault")
	}
	f := &Fault{Kind: FaultResolution, Op: bytecode.OpLoad, Msg: "x"}
	if k, ok := KindOf(f); !ok || k != FaultResolution {
		t.Errorf("KindOf = %v, %v", k, ok)
	}
	if !IsFault(f, FaultResolution) || IsFault(f, FaultDecode) {
		t.Error("IsFault mismatch")
	}
	if errors.Is(f, ErrDecode) {
		t.Error("resolution fault matched ErrDecode")
	}
	if !strings.Contains(f.Error(), "resolution fault") {
		t.Errorf("Error() = %q", f.Error())
	}
}

// ---------------------------------------------------------------------------
// Run lifecycle
// ---------------------------------------------------------------------------

func TestRunEmptyChunk(t *testing.T) {
	vm := New()
	if err := vm.Run(bytecode.NewChunk()); err != nil {
		t.Fatalf("Run(empty): %v", err)
	}
	if err := vm.Run(nil); err != nil {
		t.Fatalf("Run(nil): %v", err)
	}
	assertKinds(t, vm.Stack(), ItemFrame)
}

func TestRunRestoresState(t *testing.T) {
	vm := New()
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))

	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if vm.Chunk() != nil || vm.IP() != 0 {
		t.Errorf("after Run: chunk=%v ip=%d", vm.Chunk(), vm.IP())
	}

	bad := bytecode.NewChunk()
	bad.Code = []byte{0xEE}
	_ = vm.Run(bad)
	if vm.Chunk() != nil || vm.IP() != 0 {
		t.Errorf("after fault: chunk=%v ip=%d", vm.Chunk(), vm.IP())
	}
}

func TestStackPersistsAcrossRuns(t *testing.T) {
	vm := New()

	first := bytecode.NewChunk()
	first.EmitConstant(value.String("kept"))
	first.EmitSave(localX)
	if err := vm.Run(first); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	second := bytecode.NewChunk()
	second.EmitLoad(localX)
	if err := vm.Run(second); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	v, _ := vm.Top()
	if v.AsString() != "kept" {
		t.Errorf("Top() = %v", v)
	}
}

func TestReset(t *testing.T) {
	vm := New()
	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(1))
	c.EmitSave(localX)
	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	vm.Stack().PushFrame()

	vm.Reset()
	assertKinds(t, vm.Stack(), ItemFrame)
}

// ---------------------------------------------------------------------------
// Tracing
// ---------------------------------------------------------------------------

type recordingTracer struct {
	begins int
	steps  []StepEvent
	ends   []error
}

func (r *recordingTracer) BeginRun(*bytecode.Chunk) { r.begins++ }
func (r *recordingTracer) Step(ev StepEvent)        { r.steps = append(r.steps, ev) }
func (r *recordingTracer) EndRun(err error)         { r.ends = append(r.ends, err) }

func TestTracerObservesSteps(t *testing.T) {
	rec := &recordingTracer{}
	vm := New(WithTracer(rec))

	c := bytecode.NewChunk()
	c.EmitConstant(value.Number(37.2))
	c.EmitSave(localX)
	c.EmitLoad(localX)

	if err := vm.Run(c); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rec.begins != 1 || len(rec.ends) != 1 || rec.ends[0] != nil {
		t.Fatalf("begin/end = %d/%v", rec.begins, rec.ends)
	}

	wantOps := []bytecode.Opcode{bytecode.OpCon, bytecode.OpSave, bytecode.OpLoad}
	wantOffsets := []int{0, 2, 4}
	if len(rec.steps) != len(wantOps) {
		t.Fatalf("got %d steps, want %d", len(rec.steps), len(wantOps))
	}
	for i, ev := range rec.steps {
		if ev.Op != wantOps[i] || ev.Offset != wantOffsets[i] {
			t.Errorf("step %d = %s@%d, want %s@%d", i, ev.Op, ev.Offset, wantOps[i], wantOffsets[i])
		}
	}
	if got := len(rec.steps[0].Stack); got != 2 {
		t.Errorf("stack after CON has %d items, want 2", got)
	}
}

func TestTracerSeesFault(t *testing.T) {
	rec := &recordingTracer{}
	vm := New(WithTracer(rec))

	c := bytecode.NewChunk()
	c.EmitLoad(localX)
	err := vm.Run(c)

	if len(rec.steps) != 0 {
		t.Errorf("faulting instruction produced %d steps", len(rec.steps))
	}
	if len(rec.ends) != 1 || rec.ends[0] != err {
		t.Errorf("EndRun got %v, want %v", rec.ends, err)
	}
}

func TestReentrantRunFromTracer(t *testing.T) {
	vm := New()

	inner := bytecode.NewChunk()
	inner.EmitConstant(value.String("inner"))

	nested := false
	vm.SetTracer(StepFunc(func(ev StepEvent) {
		if nested || ev.Op != bytecode.OpCon {
			return
		}
		nested = true
		if err := vm.Run(inner); err != nil {
			t.Errorf("nested Run: %v", err)
		}
	}))

	outer := bytecode.NewChunk()
	outer.EmitConstant(value.Number(1))
	outer.EmitSave(localX)
	outer.EmitLoad(localX)

	if err := vm.Run(outer); err != nil {
		t.Fatalf("outer Run: %v", err)
	}
	if !nested {
		t.Fatal("tracer never re-entered")
	}

	// CON 1, nested CON "inner", then SAVE sees a string on top and binds it,
	// leaving the outer 1 behind as Data below the binding.
	assertKinds(t, vm.Stack(), ItemFrame, ItemData, ItemLocal, ItemData)
	v, _ := vm.Top()
	if v.AsString() != "inner" {
		t.Errorf("Top() = %v, want inner", v)
	}
}
