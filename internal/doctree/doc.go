// Package doctree loads document sources into render.ContentNode
// trees. Two source forms are supported: markdown with an optional
// YAML front matter block (markdown.go), and pre-serialized JSON node
// trees as produced by the content pipeline (pagedata.go).
//
// The loaders only build trees; they never resolve or invoke
// renderers. Per-document component overrides declared in front
// matter or page data are returned as declarations and converted to
// renderer maps by the theme layer.
package doctree

import (
	"github.com/keithlinneman/docsite/internal/render"
)

// Doc is one loaded document: its metadata and the content tree.
type Doc struct {
	Title       string
	Description string

	// Components holds per-document override declarations from front
	// matter or page data, keyed by tag name (compound keys allowed).
	// Empty when the document declares none.
	Components map[string]ComponentDef

	Tree *render.ContentNode
}

// ComponentDef is a serialized component override declaration: the
// concrete element to emit plus its fixed attributes. The theme layer
// turns these into renderers.
type ComponentDef struct {
	Element string            `yaml:"element" json:"element"`
	Class   string            `yaml:"class,omitempty" json:"class,omitempty"`
	Attrs   map[string]string `yaml:"attrs,omitempty" json:"attrs,omitempty"`
}
