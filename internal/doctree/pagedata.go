package doctree

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/keithlinneman/docsite/internal/render"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// ComponentFactory converts serialized component declarations into
// concrete renderers. Supplied by the theme layer; pagedata needs it
// because node trees may carry inline "components" overrides that must
// become renderer maps before the tree reaches the engine.
type ComponentFactory func(defs map[string]ComponentDef) (render.Map, error)

type pageFile struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Components  map[string]ComponentDef `json:"components"`
	Content     json.RawMessage         `json:"content"`
}

// ParsePageData loads a document serialized as a JSON node tree:
// a wrapper object with title/description/components metadata and a
// "content" node, where each node is {"tag", "props", "children"} and
// a bare string is shorthand for a text node. Shape violations fail
// fast with the offending path.
func ParsePageData(source []byte, factory ComponentFactory) (*Doc, error) {
	var file pageFile
	if err := json.Unmarshal(source, &file); err != nil {
		return nil, xerrors.Wrap(err, "page data")
	}
	if len(file.Content) == 0 {
		return nil, xerrors.New("page data: missing content node")
	}

	loader := &pageLoader{factory: factory}
	tree, err := loader.node(file.Content, "content")
	if err != nil {
		return nil, err
	}

	return &Doc{
		Title:       file.Title,
		Description: file.Description,
		Components:  file.Components,
		Tree:        tree,
	}, nil
}

type pageLoader struct {
	factory ComponentFactory
}

type nodeFile struct {
	Tag      string                     `json:"tag"`
	Props    map[string]json.RawMessage `json:"props"`
	Children []json.RawMessage          `json:"children"`
}

func (l *pageLoader) node(raw json.RawMessage, path string) (*render.ContentNode, error) {
	raw = bytes.TrimSpace(raw)
	// string shorthand for text nodes
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, xerrors.Wrapf(err, "page data: %s", path)
		}
		return render.Text(s), nil
	}
	if len(raw) == 0 || raw[0] != '{' {
		return nil, xerrors.Newf("page data: %s: node must be an object or string", path)
	}

	var file nodeFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, xerrors.Wrapf(err, "page data: %s", path)
	}
	if file.Tag == "" {
		return nil, xerrors.Newf("page data: %s: node missing tag", path)
	}

	props, err := l.props(file.Props, path)
	if err != nil {
		return nil, err
	}

	var children []*render.ContentNode
	for i, rawChild := range file.Children {
		child, err := l.node(rawChild, fmt.Sprintf("%s.children[%d]", path, i))
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return &render.ContentNode{Tag: file.Tag, Props: props, Children: children}, nil
}

func (l *pageLoader) props(raw map[string]json.RawMessage, path string) (*render.Bag, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	bag := render.NewBag()
	for key, value := range raw {
		if key == render.ComponentsKey {
			overrides, err := l.components(value, path)
			if err != nil {
				return nil, err
			}
			bag.Set(render.ComponentsKey, overrides)
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return nil, xerrors.Wrapf(err, "page data: %s.props.%s", path, key)
		}
		bag.Set(key, v)
	}
	return bag, nil
}

// components decodes an inline override declaration and converts it
// through the factory so the engine sees a renderer map, never a raw
// declaration.
func (l *pageLoader) components(raw json.RawMessage, path string) (render.Map, error) {
	var defs map[string]ComponentDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return nil, xerrors.Wrapf(err, "page data: %s: components must map tag names to declarations", path)
	}
	if l.factory == nil {
		return nil, xerrors.Newf("page data: %s: components declared but no component factory configured", path)
	}
	overrides, err := l.factory(defs)
	if err != nil {
		return nil, xerrors.Wrapf(err, "page data: %s: components", path)
	}
	return overrides, nil
}
