package vm

import "github.com/chazu/sparrow/pkg/bytecode"

// Resolve finds the binding of l in the current scope.
//
// The scan runs from the top of the stack downward. The first Local whose
// descriptor equals l wins, so a later binding shadows an earlier one.
// Data items are skipped. The scan stops at the first Frame marker: a
// binding below it belongs to an enclosing scope and is never visible.
func (s *Stack) Resolve(l bytecode.Local) (int, bool) {
	for i := len(s.items) - 1; i >= 0; i-- {
		switch it := s.items[i]; it.Kind {
		case ItemLocal:
			if it.Local == l {
				return i, true
			}
		case ItemFrame:
			return 0, false
		}
	}
	return 0, false
}
