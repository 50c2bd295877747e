// Package htmlout turns rendered node trees into HTML: a writer with
// strict escaping, the built-in renderer set for the structural tags,
// and the page layout that wraps a rendered body for serving or
// export.
package htmlout

import (
	"html"
	"io"
	"regexp"
	"sort"
	"strings"

	"github.com/keithlinneman/docsite/internal/render"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// elementNameRe matches element names the writer will emit verbatim.
// Anything else (literal fallback tags from unmatched content) is
// demoted to a span carrying the tag as a data attribute.
var elementNameRe = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

// self-closing elements, no closing tag emitted
var voidElements = map[string]bool{
	"br": true, "hr": true, "img": true, "input": true, "meta": true, "link": true,
}

// WriteHTML writes the tree rooted at n as HTML. Text and attribute
// values are escaped; Raw markup is written verbatim and must only
// come from trusted renderers. A node with an empty element writes its
// text and children with no wrapper.
func WriteHTML(w io.Writer, n *render.RenderedNode) error {
	if n == nil {
		return nil
	}

	if n.Raw != "" {
		if _, err := io.WriteString(w, n.Raw); err != nil {
			return xerrors.WithStack(err)
		}
		return nil
	}

	element := n.Element
	attrs := n.Attrs
	if element != "" && !elementNameRe.MatchString(strings.ToLower(element)) {
		attrs = render.Merge(map[string]string{"data-tag": element}, attrs)
		element = "span"
	} else {
		element = strings.ToLower(element)
	}

	if element != "" {
		if err := writeOpenTag(w, element, attrs); err != nil {
			return err
		}
		if voidElements[element] {
			return nil
		}
	}

	if n.Text != "" {
		if _, err := io.WriteString(w, html.EscapeString(n.Text)); err != nil {
			return xerrors.WithStack(err)
		}
	}
	for _, child := range n.Children {
		if err := WriteHTML(w, child); err != nil {
			return err
		}
	}

	if element != "" {
		if _, err := io.WriteString(w, "</"+element+">"); err != nil {
			return xerrors.WithStack(err)
		}
	}
	return nil
}

// HTML renders the tree to a string.
func HTML(n *render.RenderedNode) (string, error) {
	var sb strings.Builder
	if err := WriteHTML(&sb, n); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeOpenTag(w io.Writer, element string, attrs map[string]string) error {
	var sb strings.Builder
	sb.WriteByte('<')
	sb.WriteString(element)

	// deterministic attribute order
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !attrNameRe.MatchString(k) {
			continue
		}
		sb.WriteByte(' ')
		sb.WriteString(k)
		sb.WriteString(`="`)
		sb.WriteString(html.EscapeString(attrs[k]))
		sb.WriteByte('"')
	}
	sb.WriteByte('>')

	_, err := io.WriteString(w, sb.String())
	if err != nil {
		return xerrors.WithStack(err)
	}
	return nil
}

var attrNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9:_-]*$`)
