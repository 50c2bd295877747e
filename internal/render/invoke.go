package render

import "sync/atomic"

// ChildrenKey is the bag key under which Invoke injects rendered
// children ([]*RenderedNode). Renderers read it via BagChildren.
const ChildrenKey = "children"

// Reserved bookkeeping keys stripped from every bag before it reaches
// a renderer. They steer resolution (scope overrides, dynamic
// dispatch) and must never appear as renderer props.
var reservedKeys = []string{ComponentsKey, "originalType", "parentName"}

// ComponentsKey marks a per-node override map in a ContentNode's
// props; the engine turns it into a child scope for the subtree.
const ComponentsKey = "components"

// RefHandle is a write-once reference slot. The invocation adapter
// populates it with the produced node but never inspects it; callers
// read it after invocation to obtain a handle to the concrete output.
type RefHandle struct {
	node atomic.Pointer[RenderedNode]
}

// Node returns the captured output node, if any. Only valid after the
// invocation that was passed this handle has returned.
func (h *RefHandle) Node() (*RenderedNode, bool) {
	n := h.node.Load()
	return n, n != nil
}

// store is write-once: the first invocation wins, later stores are
// no-ops.
func (h *RefHandle) store(n *RenderedNode) {
	if n == nil {
		return
	}
	h.node.CompareAndSwap(nil, n)
}

// Invoke runs renderer with a bag assembled from props: an
// enumerable-only clone minus the reserved bookkeeping keys, with
// rendered children injected under ChildrenKey when present. The
// inputs are never mutated; calling twice with identical arguments
// yields equivalent nodes (modulo the renderer's own behavior, which
// is outside this contract).
//
// When handle is non-nil it is populated with the produced node.
func Invoke(renderer Renderer, props *Bag, children []*RenderedNode, handle *RefHandle) (*RenderedNode, error) {
	bag := props.Clone()
	for _, k := range reservedKeys {
		bag.Delete(k)
	}
	if len(children) > 0 {
		bag.Set(ChildrenKey, children)
	}

	node, err := renderer.Render(bag)
	if err != nil {
		return nil, err
	}
	if handle != nil {
		handle.store(node)
	}
	return node, nil
}

// BagChildren extracts the injected children from a renderer's bag,
// or nil when the node had none.
func BagChildren(props *Bag) []*RenderedNode {
	v, ok := props.Get(ChildrenKey)
	if !ok {
		return nil
	}
	children, _ := v.([]*RenderedNode)
	return children
}
