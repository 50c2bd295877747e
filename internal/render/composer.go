package render

import "sort"

// Merge produces a new map containing the union of keys from base and
// every override, applied left to right, with later sources winning on
// conflict. Inputs are never mutated; a nil override is a no-op, not
// an error. The generic key type covers renderer maps (string keys)
// as well as any other comparable key a caller composes.
//
// Merge is associative: Merge(Merge(a, b), c) equals Merge(a, b, c).
func Merge[K comparable, V any](base map[K]V, overrides ...map[K]V) map[K]V {
	out := make(map[K]V, len(base))
	for k, v := range base {
		out[k] = v
	}
	for _, o := range overrides {
		for k, v := range o {
			out[k] = v
		}
	}
	return out
}

// Bag is a property bag: string-keyed values plus an explicit
// hidden-key set. A key stored with a nil value is present, an
// explicit override distinct from the key being absent. Callers that
// want "absence means inherit" must omit the key, not nil it.
//
// Hidden keys are readable via Get but excluded from Keys, Len, Clone,
// and MergeBags: they never cross a copy boundary. Loaders use them
// for diagnostic metadata (source positions) that must not leak into
// merges or reach a renderer.
//
// The zero value and nil are both usable as an empty read-only bag.
type Bag struct {
	values map[string]any
	hidden map[string]struct{}
}

// NewBag returns an empty bag.
func NewBag() *Bag { return &Bag{} }

// BagOf returns a bag seeded from values. The map is copied.
func BagOf(values map[string]any) *Bag {
	b := NewBag()
	for k, v := range values {
		b.Set(k, v)
	}
	return b
}

// Set stores a value under key, unhiding it if previously hidden.
// Returns the bag for chaining.
func (b *Bag) Set(key string, v any) *Bag {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	b.values[key] = v
	delete(b.hidden, key)
	return b
}

// SetHidden stores a value that Get can read but that is excluded
// from enumeration, clones, and merges.
func (b *Bag) SetHidden(key string, v any) *Bag {
	if b.values == nil {
		b.values = make(map[string]any)
	}
	if b.hidden == nil {
		b.hidden = make(map[string]struct{})
	}
	b.values[key] = v
	b.hidden[key] = struct{}{}
	return b
}

// Get returns the value for key and whether the key is present.
// Present includes explicit nil values and hidden keys.
func (b *Bag) Get(key string) (any, bool) {
	if b == nil {
		return nil, false
	}
	v, ok := b.values[key]
	return v, ok
}

// Has reports whether key is present (including explicit nil).
func (b *Bag) Has(key string) bool {
	_, ok := b.Get(key)
	return ok
}

// Delete removes key entirely.
func (b *Bag) Delete(key string) {
	if b == nil {
		return
	}
	delete(b.values, key)
	delete(b.hidden, key)
}

// Len counts enumerable keys.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.values) - len(b.hidden)
}

// Keys returns enumerable keys in sorted order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.values))
	for k := range b.values {
		if _, hid := b.hidden[k]; hid {
			continue
		}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Clone copies the enumerable contents into a fresh bag. Hidden keys
// do not survive the copy.
func (b *Bag) Clone() *Bag {
	out := NewBag()
	if b == nil {
		return out
	}
	for k, v := range b.values {
		if _, hid := b.hidden[k]; hid {
			continue
		}
		out.Set(k, v)
	}
	return out
}

// MergeBags merges override bags onto base, left to right, later
// sources winning. Same contract as Merge: inputs untouched, nil bags
// are no-ops, only enumerable keys are copied.
func MergeBags(base *Bag, overrides ...*Bag) *Bag {
	out := base.Clone()
	for _, o := range overrides {
		if o == nil {
			continue
		}
		for k, v := range o.values {
			if _, hid := o.hidden[k]; hid {
				continue
			}
			out.Set(k, v)
		}
	}
	return out
}
