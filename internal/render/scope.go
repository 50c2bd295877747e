package render

// Scope is an immutable snapshot of tag→renderer bindings covering a
// content subtree. A child scope inherits every binding from its
// parent and may add or shadow bindings for its own subtree.
//
// Bindings are flattened at construction (copy-on-write via Merge),
// so Lookup is O(1) regardless of nesting depth. Fields are
// unexported and scopes are only created through NewScope and Child,
// which makes a cyclic parent chain impossible by construction.
type Scope struct {
	parent   *Scope
	bindings Map
}

// NewScope creates a root scope. A nil overrides map yields empty
// bindings.
func NewScope(overrides Map) *Scope {
	return &Scope{bindings: Merge(overrides)}
}

// Child creates a scope that layers overrides on top of the
// receiver's bindings. With empty overrides the result is a fresh
// identity with behavior identical to the parent.
func (s *Scope) Child(overrides Map) *Scope {
	if s == nil {
		return NewScope(overrides)
	}
	if len(overrides) == 0 {
		return &Scope{parent: s, bindings: s.bindings}
	}
	return &Scope{parent: s, bindings: Merge(s.bindings, overrides)}
}

// Lookup resolves tag against the flattened bindings: the
// nearest-ancestor-or-self binding wins, absence means no ancestor
// defines it.
func (s *Scope) Lookup(tag string) (Renderer, bool) {
	if s == nil {
		return nil, false
	}
	r, ok := s.bindings[tag]
	return r, ok
}

// Bindings returns the fully flattened bindings for this scope. The
// returned map is shared and must not be mutated.
func (s *Scope) Bindings() Map {
	if s == nil {
		return nil
	}
	return s.bindings
}

// Parent returns the enclosing scope, or nil for a root.
func (s *Scope) Parent() *Scope {
	if s == nil {
		return nil
	}
	return s.parent
}

// Depth counts ancestors; a root scope has depth 0.
func (s *Scope) Depth() int {
	d := 0
	for p := s; p != nil && p.parent != nil; p = p.parent {
		d++
	}
	return d
}
