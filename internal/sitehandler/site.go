package sitehandler

import (
	"bytes"
	"html/template"
	"io/fs"
	"strings"
	"sync"

	"github.com/keithlinneman/docsite/internal/content"
	"github.com/keithlinneman/docsite/internal/doctree"
	"github.com/keithlinneman/docsite/internal/htmlout"
	"github.com/keithlinneman/docsite/internal/log"
	"github.com/keithlinneman/docsite/internal/render"
	"github.com/keithlinneman/docsite/internal/theme"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// site is the render state derived from one snapshot: its theme, an
// engine over the themed defaults, and a cache of rendered pages.
// Snapshots are immutable, so rendered output never goes stale within
// a site; the whole site is dropped when the snapshot swaps.
type site struct {
	theme  *theme.Theme
	engine *render.Engine
	scope  *render.Scope

	mu    sync.RWMutex
	pages map[string][]byte
}

func newSite(snap *content.Snapshot, logger log.Logger, metrics RenderMetrics) (*site, error) {
	th := theme.Default()
	if data, err := fs.ReadFile(snap.FS, theme.DefaultPath); err == nil {
		th, err = theme.Load(data)
		if err != nil {
			return nil, xerrors.Wrap(err, "load bundle theme")
		}
	}

	var onFallback func(string)
	if metrics != nil {
		onFallback = metrics.IncResolverFallback
	}

	engine := render.NewEngine(render.EngineOptions{
		Defaults:   th.Defaults(),
		Logger:     logger,
		OnFallback: onFallback,
	})

	return &site{
		theme:  th,
		engine: engine,
		scope:  th.Scope(),
		pages:  make(map[string][]byte),
	}, nil
}

// page renders the document at docPath for urlPath, serving from the
// per-snapshot cache when possible.
func (s *site) page(fsys fs.FS, urlPath, docPath string) ([]byte, error) {
	s.mu.RLock()
	cached, ok := s.pages[urlPath]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	out, err := s.renderPage(fsys, urlPath, docPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.pages[urlPath] = out
	s.mu.Unlock()
	return out, nil
}

func (s *site) renderPage(fsys fs.FS, urlPath, docPath string) ([]byte, error) {
	data, err := fs.ReadFile(fsys, docPath)
	if err != nil {
		return nil, xerrors.Wrapf(err, "read %s", docPath)
	}

	var doc *doctree.Doc
	if strings.HasSuffix(docPath, ".md") {
		doc, err = doctree.ParseMarkdown(data)
	} else {
		doc, err = doctree.ParsePageData(data, theme.BuildComponents)
	}
	if err != nil {
		return nil, xerrors.Wrapf(err, "load %s", docPath)
	}

	// document-level overrides layer over the theme scope
	scope := s.scope
	if len(doc.Components) > 0 {
		overrides, err := theme.BuildComponents(doc.Components)
		if err != nil {
			return nil, xerrors.Wrapf(err, "components of %s", docPath)
		}
		scope = scope.Child(overrides)
	}

	node, err := s.engine.RenderTree(doc.Tree, scope)
	if err != nil {
		return nil, xerrors.Wrapf(err, "render %s", docPath)
	}

	body, err := htmlout.HTML(node)
	if err != nil {
		return nil, xerrors.Wrapf(err, "write %s", docPath)
	}

	var buf bytes.Buffer
	err = htmlout.WritePage(&buf, htmlout.Page{
		Title:       doc.Title,
		Description: doc.Description,
		SiteName:    s.theme.SiteName,
		Body:        template.HTML(body),
		Nav:         s.nav(urlPath),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// nav returns the theme navigation with the active entry marked.
func (s *site) nav(urlPath string) []htmlout.NavItem {
	if len(s.theme.Nav) == 0 {
		return nil
	}
	nav := make([]htmlout.NavItem, len(s.theme.Nav))
	copy(nav, s.theme.Nav)
	for i := range nav {
		nav[i].Active = nav[i].Path == urlPath ||
			(nav[i].Path != "/" && strings.HasPrefix(urlPath, nav[i].Path+"/"))
	}
	return nav
}
