package analysis

import "github.com/sunholo/lily/internal/analysis/checked"

// symbol is one binding visible in a scope: its checked type and whether
// move-checking should track it as consumed-on-use (spec.md §4.4 "Move/
// borrow checking": "non-Copy bindings are tracked linearly").
type symbol struct {
	typ    checked.Type
	mut    bool
	moved  bool
	linear bool
}

// Scope is a single lexical scope frame, chained to its parent (spec.md
// §4.4 "Scope model": "scopes nest one per block/function; lookup walks
// outward to the nearest binding").
type Scope struct {
	parent *Scope
	vars   map[string]*symbol
}

func newScope(parent *Scope) *Scope {
	return &Scope{parent: parent, vars: map[string]*symbol{}}
}

func (s *Scope) define(name string, typ checked.Type, mut, linear bool) {
	s.vars[name] = &symbol{typ: typ, mut: mut, linear: linear}
}

// lookup walks outward to the nearest binding, returning nil if unbound.
func (s *Scope) lookup(name string) *symbol {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.vars[name]; ok {
			return sym
		}
	}
	return nil
}

func (s *Scope) child() *Scope { return newScope(s) }
