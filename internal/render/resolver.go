package render

import (
	"fmt"
	"strconv"
)

// Resolve selects the renderer for tag. Precedence, highest first:
//
//  1. a binding in scope (caller override, possibly inherited)
//  2. the defaults map
//  3. the literal-tag fallback
//
// Resolution is total: documentation content must never fail to
// render merely because no override was registered for a structural
// tag, so an unknown tag becomes a generic element carrying the tag
// name. An empty tag resolves to the fragment fallback (children
// only, no element).
func Resolve(scope *Scope, tag string, defaults Map) Renderer {
	if r, ok := scope.Lookup(tag); ok {
		return r
	}
	if r, ok := defaults[tag]; ok {
		return r
	}
	return Literal(tag)
}

// Literal returns the fallback renderer for tag: a generic element
// named after the tag, forwarding children and stringifiable scalar
// props as attributes. Its ID is the tag itself, so a dynamically
// dispatched literal can still be intercepted under a compound key.
func Literal(tag string) Renderer {
	return literalRenderer{tag: tag}
}

type literalRenderer struct {
	tag string
}

func (l literalRenderer) ID() string { return l.tag }

func (l literalRenderer) Render(props *Bag) (*RenderedNode, error) {
	node := &RenderedNode{Element: l.tag}
	for _, k := range props.Keys() {
		if k == ChildrenKey {
			continue
		}
		v, _ := props.Get(k)
		if s, ok := scalarString(v); ok {
			if node.Attrs == nil {
				node.Attrs = make(map[string]string)
			}
			node.Attrs[k] = s
		}
	}
	node.Children = BagChildren(props)
	return node, nil
}

// scalarString stringifies attribute-safe scalars; composite values
// are dropped rather than serialized into markup.
func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return "", false
	}
}
