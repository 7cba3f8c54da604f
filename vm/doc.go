// Package vm implements the sparrow stack machine.
//
// The machine has one stack of items. An item is either anonymous Data, a
// Local binding that owns its value, or a Frame marker that bounds a scope.
// The bottom of the stack is always a Frame.
//
// Locals are found by scanning down from the top until the first Frame;
// nothing below the nearest Frame is visible. Both LOAD and SAVE copy
// values, so no two stack items ever share storage.
//
// Every failure is reported as a *Fault from Run. Faults can be matched
// with errors.Is against ErrDecode, ErrStackShape, ErrResolution,
// ErrExhaustion and ErrOutOfBounds.
package vm
