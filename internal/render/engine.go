package render

import (
	"github.com/keithlinneman/docsite/internal/log"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// EngineOptions configures an Engine.
type EngineOptions struct {
	// Defaults is the built-in renderer set, fixed for the lifetime of
	// the engine. Established once at startup and read-only after.
	Defaults Map

	// DynamicPrefix is the namespace used for compound-key dispatch of
	// dynamically supplied renderers ("wrapper" → "wrapper.Code").
	DynamicPrefix string

	Logger log.Logger

	// OnFallback is called with the tag name whenever resolution falls
	// through to the literal-tag renderer. Used for metrics; called
	// synchronously on the render goroutine.
	OnFallback func(tag string)
}

// Engine renders ContentNode trees against a scope. It is immutable
// after construction; concurrent RenderTree calls on independent
// trees are safe.
type Engine struct {
	defaults   Map
	prefix     string
	logger     log.Logger
	onFallback func(string)
}

// NewEngine builds an engine around a default renderer set.
func NewEngine(opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	prefix := opts.DynamicPrefix
	if prefix == "" {
		prefix = "wrapper"
	}
	return &Engine{
		defaults:   Merge(opts.Defaults),
		prefix:     prefix,
		logger:     logger,
		onFallback: opts.OnFallback,
	}
}

// Defaults returns the engine's default renderer set. Shared; do not
// mutate.
func (e *Engine) Defaults() Map { return e.defaults }

// RenderTree renders node and its subtree depth-first against scope.
// A nil scope behaves as an empty root. The walk is synchronous and
// bounded by tree size; an error aborts the subtree and propagates to
// the caller rather than being swallowed.
func (e *Engine) RenderTree(node *ContentNode, scope *Scope) (*RenderedNode, error) {
	if node == nil {
		return nil, nil
	}
	return e.renderNode(node, scope)
}

func (e *Engine) renderNode(node *ContentNode, scope *Scope) (*RenderedNode, error) {
	// scope provider: a components override on the node opens a child
	// scope covering this node and its subtree
	if v, ok := node.Props.Get(ComponentsKey); ok && v != nil {
		overrides, err := asRendererMap(v)
		if err != nil {
			return nil, xerrors.Wrapf(err, "components override on %q", nodeName(node))
		}
		scope = scope.Child(overrides)
	}

	var children []*RenderedNode
	for _, child := range node.Children {
		rendered, err := e.renderNode(child, scope)
		if err != nil {
			return nil, err
		}
		if rendered != nil {
			children = append(children, rendered)
		}
	}

	renderer, err := e.resolveFor(node, scope)
	if err != nil {
		return nil, err
	}

	out, err := Invoke(renderer, node.Props, children, nil)
	if err != nil {
		return nil, xerrors.Wrapf(err, "render %q", nodeName(node))
	}
	return out, nil
}

func (e *Engine) resolveFor(node *ContentNode, scope *Scope) (Renderer, error) {
	if node.Dynamic != nil {
		return ResolveDynamic(scope, e.prefix, node.Dynamic, e.defaults)
	}
	renderer := Resolve(scope, node.Tag, e.defaults)
	if _, fellBack := renderer.(literalRenderer); fellBack && e.onFallback != nil {
		e.onFallback(node.Tag)
	}
	return renderer, nil
}

// asRendererMap validates a components prop value. Only an actual
// renderer map is accepted: loaders are responsible for converting
// serialized override declarations before the tree reaches the
// engine. Anything else is a collaborator contract violation.
func asRendererMap(v any) (Map, error) {
	switch m := v.(type) {
	case Map:
		return m, nil
	case map[string]Renderer:
		return m, nil
	default:
		return nil, xerrors.Newf("expected a renderer map, got %T", v)
	}
}

func nodeName(node *ContentNode) string {
	if node.Dynamic != nil {
		return node.Dynamic.ID()
	}
	if node.Tag == "" {
		return "fragment"
	}
	return node.Tag
}
