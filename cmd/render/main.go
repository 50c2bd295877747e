// Command render exports a content bundle directory as a static HTML
// tree suitable for object-store hosting. It runs the same pipeline as
// the server (theme overrides, renderer resolution, page layout) but
// writes every document to disk instead of serving on demand.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/keithlinneman/docsite/internal/content"
	"github.com/keithlinneman/docsite/internal/doctree"
	"github.com/keithlinneman/docsite/internal/htmlout"
	"github.com/keithlinneman/docsite/internal/log"
	"github.com/keithlinneman/docsite/internal/render"
	"github.com/keithlinneman/docsite/internal/theme"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

func main() {
	var (
		contentDir = flag.String("content", "", "content bundle directory (theme.yaml + docs/ + assets/)")
		outDir     = flag.String("out", "public", "output directory for the rendered site")
	)
	flag.Parse()

	if *contentDir == "" {
		fmt.Fprintln(os.Stderr, "usage: render -content <dir> [-out <dir>]")
		os.Exit(2)
	}

	if err := run(*contentDir, *outDir); err != nil {
		fmt.Fprintln(os.Stderr, "render:", err)
		os.Exit(1)
	}
}

func run(contentDir, outDir string) error {
	snap, err := content.FromDir(contentDir)
	if err != nil {
		return err
	}
	if err := content.ValidateSnapshot(snap, content.ValidationOptions{MinDocs: 1, ParseDocs: true}); err != nil {
		return err
	}

	th := theme.Default()
	if data, err := fs.ReadFile(snap.FS, theme.DefaultPath); err == nil {
		th, err = theme.Load(data)
		if err != nil {
			return xerrors.Wrap(err, "load theme")
		}
	}

	engine := render.NewEngine(render.EngineOptions{
		Defaults: th.Defaults(),
		Logger:   log.Nop(),
	})
	scope := th.Scope()

	pages := 0
	err = fs.WalkDir(snap.FS, content.DocsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".md" && ext != ".json" {
			return nil
		}

		urlPath := urlPathForDoc(p)
		out, err := renderDoc(snap.FS, th, engine, scope, urlPath, p)
		if err != nil {
			return xerrors.Wrapf(err, "render %s", p)
		}

		dst := filepath.Join(outDir, outputFileForURL(urlPath))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dst, out, 0o644); err != nil {
			return err
		}
		pages++
		return nil
	})
	if err != nil {
		return err
	}

	if err := copyAssets(snap.FS, outDir); err != nil {
		return err
	}

	fmt.Printf("rendered %d pages to %s\n", pages, outDir)
	return nil
}

// urlPathForDoc maps a document path to the URL the server would serve
// it at: docs/index.md -> /, docs/a/index.md -> /a, docs/a.md -> /a.
func urlPathForDoc(docPath string) string {
	p := strings.TrimPrefix(docPath, content.DocsDir+"/")
	p = strings.TrimSuffix(p, path.Ext(p))
	if p == "index" {
		return "/"
	}
	p = strings.TrimSuffix(p, "/index")
	return "/" + p
}

// outputFileForURL mirrors the extensionless routes on disk so plain
// file hosting keeps the same URLs: /a -> a/index.html.
func outputFileForURL(urlPath string) string {
	if urlPath == "/" {
		return "index.html"
	}
	return filepath.Join(strings.TrimPrefix(urlPath, "/"), "index.html")
}

func renderDoc(fsys fs.FS, th *theme.Theme, engine *render.Engine, scope *render.Scope, urlPath, docPath string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, docPath)
	if err != nil {
		return nil, err
	}

	var doc *doctree.Doc
	if strings.HasSuffix(docPath, ".md") {
		doc, err = doctree.ParseMarkdown(data)
	} else {
		doc, err = doctree.ParsePageData(data, theme.BuildComponents)
	}
	if err != nil {
		return nil, err
	}

	pageScope := scope
	if len(doc.Components) > 0 {
		overrides, err := theme.BuildComponents(doc.Components)
		if err != nil {
			return nil, err
		}
		pageScope = pageScope.Child(overrides)
	}

	node, err := engine.RenderTree(doc.Tree, pageScope)
	if err != nil {
		return nil, err
	}

	body, err := htmlout.HTML(node)
	if err != nil {
		return nil, err
	}

	nav := make([]htmlout.NavItem, len(th.Nav))
	copy(nav, th.Nav)
	for i := range nav {
		nav[i].Active = nav[i].Path == urlPath ||
			(nav[i].Path != "/" && strings.HasPrefix(urlPath, nav[i].Path+"/"))
	}

	var buf bytes.Buffer
	err = htmlout.WritePage(&buf, htmlout.Page{
		Title:       doc.Title,
		Description: doc.Description,
		SiteName:    th.SiteName,
		Body:        template.HTML(body),
		Nav:         nav,
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func copyAssets(fsys fs.FS, outDir string) error {
	const assetsDir = "assets"
	if _, err := fs.Stat(fsys, assetsDir); err != nil {
		return nil
	}
	return fs.WalkDir(fsys, assetsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		dst := filepath.Join(outDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return err
		}
		return os.WriteFile(dst, data, 0o644)
	})
}
