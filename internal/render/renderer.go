package render

// Renderer is an opaque unit of behavior that turns a property bag
// into a rendered output node. Every renderer carries a stable
// identifier so dynamic dispatch can build compound lookup keys
// without reflection.
type Renderer interface {
	// ID returns the renderer's stable identity, e.g. "Code".
	// Used by ResolveDynamic to build compound keys like "wrapper.Code".
	ID() string

	Render(props *Bag) (*RenderedNode, error)
}

// Map binds tag names to renderers. Keys are unique; assigning a tag
// twice keeps the later renderer. Maps are treated as read-only once
// handed to a Scope or Engine.
type Map map[string]Renderer

// RenderedNode is the output produced by renderers. The presentation
// layer (htmlout) turns a RenderedNode tree into displayable output;
// the render core never interprets it beyond passing it around.
type RenderedNode struct {
	// Element is the output element name ("h1", "pre", ...). Empty
	// means fragment: the node contributes only its children, with no
	// wrapping element.
	Element string

	// Attrs are element attributes. Emitted in sorted key order for
	// deterministic output.
	Attrs map[string]string

	// Text is literal text content, escaped by the presentation layer.
	Text string

	// Raw is pre-escaped trusted markup. Only built-in renderers set
	// this (syntax-highlighted code); content-supplied values never
	// reach it.
	Raw string

	Children []*RenderedNode
}

type funcRenderer struct {
	id string
	fn func(*Bag) (*RenderedNode, error)
}

func (f funcRenderer) ID() string                               { return f.id }
func (f funcRenderer) Render(props *Bag) (*RenderedNode, error) { return f.fn(props) }

// Func adapts a function into a Renderer with the given identity.
func Func(id string, fn func(*Bag) (*RenderedNode, error)) Renderer {
	return funcRenderer{id: id, fn: fn}
}
