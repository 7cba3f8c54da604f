package vm

import (
	"github.com/chazu/sparrow/pkg/value"
)

// ---------------------------------------------------------------------------
// Instruction handlers
// ---------------------------------------------------------------------------

// opCon pushes a fresh copy of a constant as Data.
func (vm *VM) opCon() error {
	idx, err := vm.readOperand()
	if err != nil {
		return err
	}
	k, ok := vm.chunk.GetConstant(toIndex(idx))
	if !ok {
		return vm.fault(FaultOutOfBounds, nil,
			"constant index %d out of range (pool has %d)", idx, vm.chunk.ConstantCount())
	}
	vm.stack.Push(DataItem(value.NewTagged(k)))
	return nil
}

// opSave pops the Data on top and binds it. A binding of the same local in
// the current frame is overwritten in place; otherwise a new Local is
// pushed. The top is left untouched if it is not Data.
func (vm *VM) opSave() error {
	local, err := vm.readLocal()
	if err != nil {
		return err
	}
	top, ok := vm.stack.Peek()
	if !ok || top.Kind != ItemData {
		found := "empty stack"
		if ok {
			found = top.String()
		}
		return vm.fault(FaultStackShape, nil, "expected data value on stack, found %s", found)
	}
	vm.stack.Pop()

	data := top.Value.Deref()
	if i, found := vm.stack.Resolve(local); found {
		vm.stack.Replace(i, LocalItem(local, data))
		return nil
	}
	vm.stack.Push(LocalItem(local, data))
	return nil
}

// opLoad pushes a copy of a local's current value. The binding stays put.
func (vm *VM) opLoad() error {
	local, err := vm.readLocal()
	if err != nil {
		return err
	}
	i, found := vm.stack.Resolve(local)
	if !found {
		return vm.fault(FaultResolution, nil, "local %s not found on stack", local)
	}
	it, _ := vm.stack.At(i)
	vm.stack.Push(DataItem(value.NewTagged(it.Value.Deref())))
	return nil
}

// opClear drops Data items until a Local or Frame is on top.
func (vm *VM) opClear() error {
	for {
		top, ok := vm.stack.Peek()
		if !ok {
			return vm.fault(FaultExhaustion, nil, "stack exhausted while clearing")
		}
		if top.Kind != ItemData {
			return nil
		}
		vm.stack.Pop()
	}
}
