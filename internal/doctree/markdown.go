package doctree

import (
	"bytes"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/docsite/internal/render"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// markdownParser is initialized once and shared. The configuration
// never changes and the goldmark parser is safe for concurrent use;
// per-call state lives in the reader.
var (
	markdownParser     goldmark.Markdown
	markdownParserOnce sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParser = goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
			),
		)
	})
	return markdownParser
}

type frontMatter struct {
	Title       string                  `yaml:"title"`
	Description string                  `yaml:"description"`
	Components  map[string]ComponentDef `yaml:"components"`
}

// ParseMarkdown loads a markdown source into a Doc. A leading YAML
// front matter block delimited by "---" lines supplies title,
// description, and per-document component overrides; the remainder is
// parsed as GFM and converted to a ContentNode tree rooted at a
// fragment.
func ParseMarkdown(source []byte) (*Doc, error) {
	meta, body, err := splitFrontMatter(source)
	if err != nil {
		return nil, err
	}

	reader := text.NewReader(body)
	document := getMarkdownParser().Parser().Parse(reader)

	conv := &mdConverter{source: body}
	tree, err := conv.convert(document)
	if err != nil {
		return nil, err
	}

	return &Doc{
		Title:       meta.Title,
		Description: meta.Description,
		Components:  meta.Components,
		Tree:        tree,
	}, nil
}

var frontMatterDelim = []byte("---")

// splitFrontMatter separates an optional leading YAML block from the
// markdown body. The block must start on the first line; a malformed
// block is a load error rather than silently becoming content.
func splitFrontMatter(source []byte) (frontMatter, []byte, error) {
	var meta frontMatter

	trimmed := source
	if !bytes.HasPrefix(trimmed, frontMatterDelim) {
		return meta, source, nil
	}
	rest := trimmed[len(frontMatterDelim):]
	if len(rest) > 0 && rest[0] == '\r' {
		rest = rest[1:]
	}
	if len(rest) == 0 || rest[0] != '\n' {
		return meta, source, nil
	}
	rest = rest[1:]

	end := bytes.Index(rest, []byte("\n---"))
	if end < 0 {
		return meta, nil, xerrors.New("front matter: missing closing delimiter")
	}
	block := rest[:end]
	body := rest[end+len("\n---"):]
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	if err := yaml.Unmarshal(block, &meta); err != nil {
		return meta, nil, xerrors.Wrap(err, "front matter")
	}
	return meta, body, nil
}

type mdConverter struct {
	source []byte
}

func (c *mdConverter) convert(n ast.Node) (*render.ContentNode, error) {
	switch v := n.(type) {
	case *ast.Document:
		children, err := c.convertChildren(n)
		if err != nil {
			return nil, err
		}
		return render.El("fragment", nil, children...), nil

	case *ast.Heading:
		return c.block(n, headingTag(v.Level), nil)

	case *ast.Paragraph:
		return c.block(n, "paragraph", nil)

	case *ast.TextBlock:
		// tight list item content, no paragraph wrapper
		return c.block(n, "fragment", nil)

	case *ast.Blockquote:
		return c.block(n, "blockquote", nil)

	case *ast.FencedCodeBlock:
		props := render.NewBag().Set("value", c.linesText(n))
		if lang := v.Language(c.source); len(lang) > 0 {
			props.Set("lang", string(lang))
		}
		return &render.ContentNode{Tag: "code", Props: props}, nil

	case *ast.CodeBlock:
		return &render.ContentNode{Tag: "code", Props: render.NewBag().Set("value", c.linesText(n))}, nil

	case *ast.CodeSpan:
		return &render.ContentNode{Tag: "inlineCode", Props: render.NewBag().Set("value", c.inlineText(n))}, nil

	case *ast.List:
		props := render.NewBag().Set("ordered", v.IsOrdered())
		if v.IsOrdered() && v.Start != 1 {
			props.Set("start", v.Start)
		}
		return c.block(n, "list", props)

	case *ast.ListItem:
		return c.block(n, "listItem", nil)

	case *ast.Link:
		props := render.NewBag().Set("url", string(v.Destination))
		if len(v.Title) > 0 {
			props.Set("title", string(v.Title))
		}
		return c.block(n, "link", props)

	case *ast.AutoLink:
		url := string(v.URL(c.source))
		if v.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
			url = "mailto:" + url
		}
		return &render.ContentNode{
			Tag:      "link",
			Props:    render.NewBag().Set("url", url),
			Children: []*render.ContentNode{render.Text(string(v.Label(c.source)))},
		}, nil

	case *ast.Image:
		props := render.NewBag().
			Set("url", string(v.Destination)).
			Set("alt", c.inlineText(n))
		if len(v.Title) > 0 {
			props.Set("title", string(v.Title))
		}
		return &render.ContentNode{Tag: "image", Props: props}, nil

	case *ast.Emphasis:
		tag := "emphasis"
		if v.Level >= 2 {
			tag = "strong"
		}
		return c.block(n, tag, nil)

	case *extast.Strikethrough:
		return c.block(n, "strikethrough", nil)

	case *ast.ThematicBreak:
		return &render.ContentNode{Tag: "thematicBreak"}, nil

	case *ast.Text:
		value := string(v.Segment.Value(c.source))
		if v.SoftLineBreak() {
			value += " "
		}
		node := render.Text(value)
		if v.HardLineBreak() {
			return render.El("fragment", nil, node, &render.ContentNode{Tag: "break"}), nil
		}
		return node, nil

	case *ast.String:
		return render.Text(string(v.Value)), nil

	case *ast.HTMLBlock:
		return &render.ContentNode{Tag: "html", Props: render.NewBag().Set("value", c.linesText(n))}, nil

	case *ast.RawHTML:
		var sb strings.Builder
		for i := 0; i < v.Segments.Len(); i++ {
			seg := v.Segments.At(i)
			sb.Write(seg.Value(c.source))
		}
		return &render.ContentNode{Tag: "html", Props: render.NewBag().Set("value", sb.String())}, nil

	case *extast.Table:
		return c.block(n, "table", nil)
	case *extast.TableHeader:
		return c.block(n, "tableHeader", nil)
	case *extast.TableRow:
		return c.block(n, "tableRow", nil)
	case *extast.TableCell:
		return c.block(n, "tableCell", nil)

	default:
		// unrecognized kinds carry their kind name so the literal
		// fallback keeps them visible instead of dropping content
		return c.block(n, strings.ToLower(n.Kind().String()), nil)
	}
}

func (c *mdConverter) block(n ast.Node, tag string, props *render.Bag) (*render.ContentNode, error) {
	children, err := c.convertChildren(n)
	if err != nil {
		return nil, err
	}
	return &render.ContentNode{Tag: tag, Props: props, Children: children}, nil
}

func (c *mdConverter) convertChildren(n ast.Node) ([]*render.ContentNode, error) {
	var out []*render.ContentNode
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		node, err := c.convert(child)
		if err != nil {
			return nil, err
		}
		if node != nil {
			out = append(out, node)
		}
	}
	return out, nil
}

// linesText concatenates a block node's raw line segments.
func (c *mdConverter) linesText(n ast.Node) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(c.source))
	}
	return sb.String()
}

// inlineText flattens the plain text of a node's inline children.
func (c *mdConverter) inlineText(n ast.Node) string {
	var sb strings.Builder
	for child := n.FirstChild(); child != nil; child = child.NextSibling() {
		switch v := child.(type) {
		case *ast.Text:
			sb.Write(v.Segment.Value(c.source))
			if v.SoftLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(v.Value)
		default:
			sb.WriteString(c.inlineText(child))
		}
	}
	return sb.String()
}

func headingTag(level int) string {
	switch level {
	case 1:
		return "heading1"
	case 2:
		return "heading2"
	case 3:
		return "heading3"
	case 4:
		return "heading4"
	case 5:
		return "heading5"
	default:
		return "heading6"
	}
}
