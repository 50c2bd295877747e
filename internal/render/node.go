package render

// ContentNode is one unit of document content: an abstract tag name
// (or a dynamically supplied renderer), a property bag, and child
// nodes. It carries no renderer of its own; rendering is always
// resolved externally against the active scope.
type ContentNode struct {
	// Tag names the renderer abstractly ("heading1", "code", ...).
	// Empty with a nil Dynamic means fragment.
	Tag string

	// Dynamic, when set, supplies the renderer directly and takes
	// precedence over Tag; it goes through compound-key dispatch so
	// scoped overrides can still intercept it.
	Dynamic Renderer

	// Props is the node's property bag, passed through to the
	// resolved renderer (minus reserved keys). May be nil.
	Props *Bag

	Children []*ContentNode
}

// Text is a convenience constructor for a literal text node: a "text"
// tag whose default renderer emits the value unwrapped.
func Text(value string) *ContentNode {
	return &ContentNode{Tag: "text", Props: NewBag().Set("value", value)}
}

// El is a convenience constructor used by loaders and tests.
func El(tag string, props *Bag, children ...*ContentNode) *ContentNode {
	return &ContentNode{Tag: tag, Props: props, Children: children}
}
