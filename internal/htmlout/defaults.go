package htmlout

import (
	"fmt"
	"html"
	"strings"

	"github.com/keithlinneman/docsite/internal/render"
)

// Options configures the built-in renderer set.
type Options struct {
	// HighlightStyle is the chroma style name for code blocks.
	// Defaults to "github".
	HighlightStyle string
}

// Defaults returns the built-in renderer set covering every structural
// tag the loaders emit. The returned map is freshly allocated; callers
// may layer overrides on top without affecting other engines.
func Defaults(opts Options) render.Map {
	style := opts.HighlightStyle
	if style == "" {
		style = "github"
	}
	hl := newHighlighter(style)

	m := render.Map{
		"text":     textRenderer(),
		"fragment": fragmentRenderer(),

		"paragraph":     element("paragraph", "p"),
		"blockquote":    element("blockquote", "blockquote"),
		"listItem":      element("listItem", "li"),
		"emphasis":      element("emphasis", "em"),
		"strong":        element("strong", "strong"),
		"strikethrough": element("strikethrough", "del"),
		"table":         element("table", "table"),
		"tableHeader":   element("tableHeader", "tr"),
		"tableRow":      element("tableRow", "tr"),
		"tableCell":     element("tableCell", "td"),
		"thematicBreak": element("thematicBreak", "hr"),
		"break":         element("break", "br"),

		"list":       listRenderer(),
		"link":       linkRenderer(),
		"image":      imageRenderer(),
		"code":       codeRenderer(hl),
		"inlineCode": inlineCodeRenderer(),
		"html":       htmlLiteralRenderer(),
	}
	for level := 1; level <= 6; level++ {
		tag := fmt.Sprintf("heading%d", level)
		m[tag] = element(tag, fmt.Sprintf("h%d", level))
	}
	return m
}

// element builds a renderer that wraps its children in a fixed HTML
// element.
func element(id, el string) render.Renderer {
	return render.Func(id, func(props *render.Bag) (*render.RenderedNode, error) {
		return &render.RenderedNode{Element: el, Children: render.BagChildren(props)}, nil
	})
}

func textRenderer() render.Renderer {
	return render.Func("text", func(props *render.Bag) (*render.RenderedNode, error) {
		v, _ := props.Get("value")
		s, _ := v.(string)
		return &render.RenderedNode{Text: s}, nil
	})
}

func fragmentRenderer() render.Renderer {
	return render.Func("fragment", func(props *render.Bag) (*render.RenderedNode, error) {
		return &render.RenderedNode{Children: render.BagChildren(props)}, nil
	})
}

func listRenderer() render.Renderer {
	return render.Func("list", func(props *render.Bag) (*render.RenderedNode, error) {
		el := "ul"
		attrs := map[string]string{}
		if v, _ := props.Get("ordered"); v == true {
			el = "ol"
			if start, ok := props.Get("start"); ok {
				attrs["start"] = fmt.Sprint(start)
			}
		}
		if len(attrs) == 0 {
			attrs = nil
		}
		return &render.RenderedNode{Element: el, Attrs: attrs, Children: render.BagChildren(props)}, nil
	})
}

func linkRenderer() render.Renderer {
	return render.Func("link", func(props *render.Bag) (*render.RenderedNode, error) {
		attrs := map[string]string{}
		if v, ok := props.Get("url"); ok {
			if url, _ := v.(string); safeLinkURL(url) {
				attrs["href"] = url
			}
		}
		if v, ok := props.Get("title"); ok {
			attrs["title"], _ = v.(string)
		}
		return &render.RenderedNode{Element: "a", Attrs: attrs, Children: render.BagChildren(props)}, nil
	})
}

func imageRenderer() render.Renderer {
	return render.Func("image", func(props *render.Bag) (*render.RenderedNode, error) {
		attrs := map[string]string{}
		if v, ok := props.Get("url"); ok {
			if url, _ := v.(string); safeLinkURL(url) {
				attrs["src"] = url
			}
		}
		if v, ok := props.Get("alt"); ok {
			attrs["alt"], _ = v.(string)
		}
		if v, ok := props.Get("title"); ok {
			attrs["title"], _ = v.(string)
		}
		return &render.RenderedNode{Element: "img", Attrs: attrs}, nil
	})
}

func inlineCodeRenderer() render.Renderer {
	return render.Func("inlineCode", func(props *render.Bag) (*render.RenderedNode, error) {
		v, _ := props.Get("value")
		s, _ := v.(string)
		return &render.RenderedNode{Element: "code", Text: s}, nil
	})
}

func codeRenderer(hl *highlighter) render.Renderer {
	return render.Func("code", func(props *render.Bag) (*render.RenderedNode, error) {
		v, _ := props.Get("value")
		source, _ := v.(string)
		lang := ""
		if lv, ok := props.Get("lang"); ok {
			lang, _ = lv.(string)
		}
		markup, err := hl.highlight(source, lang)
		if err != nil {
			// degraded but safe output beats a failed page
			markup = "<pre><code>" + html.EscapeString(source) + "</code></pre>"
		}
		return &render.RenderedNode{Raw: markup}, nil
	})
}

// htmlLiteralRenderer handles raw HTML the markdown loader found in
// source documents. Passthrough is disabled: content bundles are not a
// trusted channel for markup, so the fragment is shown escaped.
func htmlLiteralRenderer() render.Renderer {
	return render.Func("html", func(props *render.Bag) (*render.RenderedNode, error) {
		v, _ := props.Get("value")
		s, _ := v.(string)
		return &render.RenderedNode{Element: "pre", Attrs: map[string]string{"class": "raw-html"}, Text: s}, nil
	})
}

func safeLinkURL(url string) bool {
	if url == "" {
		return false
	}
	lower := strings.ToLower(strings.TrimSpace(url))
	for _, scheme := range []string{"javascript:", "data:", "vbscript:"} {
		if strings.HasPrefix(lower, scheme) {
			return false
		}
	}
	return true
}
