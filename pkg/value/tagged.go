package value

// Tagged is a handle on a Data cell. Stack items hold their values through
// one; the VM never hands a cell to a second item, so every item owns its
// storage.
//
// The zero Tagged holds no cell and dereferences to unit.
type Tagged struct {
	cell *Data
}

// NewTagged wraps a copy of d in a fresh cell.
func NewTagged(d Data) Tagged {
	c := d
	return Tagged{cell: &c}
}

// Deref returns an owned copy of the wrapped value.
func (t Tagged) Deref() Data {
	if t.cell == nil {
		return Unit()
	}
	return *t.cell
}

// SameCell reports whether two handles share one cell.
func (t Tagged) SameCell(other Tagged) bool {
	return t.cell != nil && t.cell == other.cell
}

// String renders the wrapped value.
func (t Tagged) String() string {
	return t.Deref().Inspect()
}
