package render

import "github.com/keithlinneman/docsite/internal/xerrors"

// CompoundKey joins a namespace prefix with a renderer identity,
// producing the lookup key for dynamic-dispatch overrides:
// CompoundKey("wrapper", "Code") == "wrapper.Code".
func CompoundKey(prefix, id string) string {
	return prefix + "." + id
}

// ResolveDynamic resolves a renderer when the tag is supplied
// dynamically rather than as a literal name.
//
// A string candidate is an ordinary tag name and defers to Resolve. A
// Renderer candidate is looked up in the scope's merged bindings under
// CompoundKey(prefix, candidate.ID()): this lets an override
// registered under "wrapper.Code" intercept a dynamically chosen
// renderer without the content tree knowing the compound-key
// convention. On a compound-key miss the raw candidate is used as-is,
// so content that embeds a concrete renderer still renders when
// nothing intercepts it.
//
// Any other candidate type is a contract violation by the content
// loader and fails fast.
func ResolveDynamic(scope *Scope, prefix string, candidate any, defaults Map) (Renderer, error) {
	switch c := candidate.(type) {
	case string:
		return Resolve(scope, c, defaults), nil
	case Renderer:
		if r, ok := scope.Lookup(CompoundKey(prefix, c.ID())); ok {
			return r, nil
		}
		return c, nil
	default:
		return nil, xerrors.Newf("dynamic dispatch: candidate must be a tag name or Renderer, got %T", candidate)
	}
}
