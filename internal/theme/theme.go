// Package theme turns a declarative theme file into renderer
// overrides. A theme names the site, picks the highlight style, lays
// out the navigation, and declares component overrides (by tag name,
// compound keys allowed) that layer over the built-in renderer set via
// a root scope.
package theme

import (
	"errors"
	"io"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/docsite/internal/doctree"
	"github.com/keithlinneman/docsite/internal/htmlout"
	"github.com/keithlinneman/docsite/internal/render"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// DefaultPath is where a content bundle carries its theme.
const DefaultPath = "theme.yaml"

type fileFormat struct {
	Name           string                          `yaml:"name"`
	SiteName       string                          `yaml:"siteName"`
	HighlightStyle string                          `yaml:"highlightStyle"`
	Nav            []navEntry                      `yaml:"nav"`
	Components     map[string]doctree.ComponentDef `yaml:"components"`
}

type navEntry struct {
	Title string `yaml:"title"`
	Path  string `yaml:"path"`
}

// Theme is a loaded, validated theme. Immutable after Load; safe for
// concurrent use.
type Theme struct {
	Name           string
	SiteName       string
	HighlightStyle string
	Nav            []htmlout.NavItem

	overrides render.Map
}

// Load parses and validates a theme file. Decoding is strict: unknown
// fields are config errors, not silent no-ops.
func Load(data []byte) (*Theme, error) {
	var file fileFormat
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		// an empty file is the zero theme, not a decode failure
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return nil, xerrors.Wrap(err, "decode theme")
	}

	overrides, err := BuildComponents(file.Components)
	if err != nil {
		return nil, err
	}

	nav := make([]htmlout.NavItem, 0, len(file.Nav))
	for i, entry := range file.Nav {
		if entry.Title == "" || entry.Path == "" {
			return nil, xerrors.Newf("theme: nav[%d]: title and path are required", i)
		}
		nav = append(nav, htmlout.NavItem{Title: entry.Title, Path: entry.Path})
	}

	return &Theme{
		Name:           file.Name,
		SiteName:       file.SiteName,
		HighlightStyle: file.HighlightStyle,
		Nav:            nav,
		overrides:      overrides,
	}, nil
}

// Default returns the zero theme: no overrides, built-in styling.
func Default() *Theme {
	return &Theme{}
}

// Scope returns the root scope carrying the theme's overrides. A theme
// without overrides still returns a usable empty root.
func (t *Theme) Scope() *render.Scope {
	return render.NewScope(t.overrides)
}

// Overrides returns the theme's override map. Shared; do not mutate.
func (t *Theme) Overrides() render.Map { return t.overrides }

// Defaults returns the built-in renderer set configured with the
// theme's highlight style.
func (t *Theme) Defaults() render.Map {
	return htmlout.Defaults(htmlout.Options{HighlightStyle: t.HighlightStyle})
}

// ComponentFactory adapts BuildComponents for the page data loader.
func (t *Theme) ComponentFactory() doctree.ComponentFactory {
	return BuildComponents
}

// tag names accept compound keys ("wrapper.Code") with a case-free
// identifier on either side of the dot
var tagNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9]*(\.[a-zA-Z][a-zA-Z0-9]*)?$`)

// element names are stricter than the writer's demotion rule: a theme
// declaring a bad element is a config error, not content to degrade
var elementNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// BuildComponents converts override declarations into renderers. Each
// declaration produces a renderer emitting the declared element with
// its fixed class and attributes, passing document children and text
// through.
func BuildComponents(defs map[string]doctree.ComponentDef) (render.Map, error) {
	if len(defs) == 0 {
		return nil, nil
	}

	// deterministic error reporting
	tags := make([]string, 0, len(defs))
	for tag := range defs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	m := make(render.Map, len(defs))
	for _, tag := range tags {
		def := defs[tag]
		if !tagNameRe.MatchString(tag) {
			return nil, xerrors.Newf("theme: invalid component tag %q", tag)
		}
		if def.Element == "" {
			return nil, xerrors.Newf("theme: component %q: element is required", tag)
		}
		if !elementNameRe.MatchString(def.Element) {
			return nil, xerrors.Newf("theme: component %q: invalid element %q", tag, def.Element)
		}
		m[tag] = componentRenderer(tag, def)
	}
	return m, nil
}

func componentRenderer(tag string, def doctree.ComponentDef) render.Renderer {
	attrs := render.Merge(map[string]string{}, def.Attrs)
	if def.Class != "" {
		attrs["class"] = def.Class
	}
	if len(attrs) == 0 {
		attrs = nil
	}
	return render.Func(tag, func(props *render.Bag) (*render.RenderedNode, error) {
		n := &render.RenderedNode{
			Element:  def.Element,
			Attrs:    attrs,
			Children: render.BagChildren(props),
		}
		if v, ok := props.Get("value"); ok {
			n.Text, _ = v.(string)
		}
		return n, nil
	})
}
