// Package render is the component-resolution core of docsite.
//
// Documents are trees of [ContentNode], each referencing an abstract
// tag name ("heading1", "code", "paragraph", ...). Which renderer
// handles a tag is decided at render time against a [Scope]: a nested,
// immutable snapshot of tag→renderer bindings. Overrides declared for
// a subtree apply to all descendants unless shadowed by a deeper
// scope; anything not overridden falls back to the engine's default
// renderer set, and unknown tags resolve to a literal element so
// resolution never fails.
//
// The pieces, bottom up:
//   - [Merge] and [Bag]: pure left-to-right override merging for
//     renderer maps and property bags
//   - [Scope]: parent-linked binding snapshots, flattened at creation
//   - [Resolve] and [ResolveDynamic]: renderer selection
//   - [Invoke]: builds the renderer's property bag (reserved keys
//     stripped, children injected) and populates the ref handle
//   - [Engine]: the depth-first tree walk tying it together
//
// Everything here is immutable after construction; concurrent renders
// of independent trees need no locking.
package render
