package sitehandler

import (
	"bytes"
	"io/fs"
	"net/http"
	"time"

	"github.com/keithlinneman/docsite/internal/content"
)

// Handler serves documentation pages rendered on demand from the
// active content snapshot. Documents go through the full pipeline
// (load, resolve overrides, render, layout); assets are served raw.
type Handler struct {
	opts  Options
	cache siteCache
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: *opts}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// hardening: only allow GET/HEAD
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusMethodNotAllowed)
		// counter metrics already alert on these without the
		// sanitizing work of logging request details
		return
	}

	// get active content snapshot
	snap, ok := h.opts.Content.Get()

	// serve maintenance page if no active content snapshot
	if !ok {
		h.serveMaintenance(w, r)
		return
	}

	// raw assets bypass the render pipeline
	if file, ok := resolveAsset(r.URL.Path, snap.FS); ok {
		if cc := cacheControlForFile(file, h.opts); cc != "" {
			w.Header().Set("Cache-Control", cc)
		}
		http.ServeFileFS(w, r, snap.FS, file)
		return
	}

	docPath, redirectTo, found := resolveDoc(r.URL.Path, snap.FS)
	if redirectTo != "" {
		// use 308 redirect to keep method even though we only use GET/HEAD
		http.Redirect(w, r, redirectTo, http.StatusPermanentRedirect)
		return
	}
	if !found {
		h.serveNotFound(w, r, snap)
		return
	}

	h.servePage(w, r, snap, r.URL.Path, docPath, http.StatusOK)
}

// servePage renders (or fetches from the per-snapshot cache) and
// writes a document page.
func (h *Handler) servePage(w http.ResponseWriter, r *http.Request, snap *content.Snapshot, urlPath, docPath string, status int) {
	s, err := h.siteFor(snap)
	if err != nil {
		h.serveRenderFailure(w, r, err)
		return
	}

	start := time.Now()
	page, err := s.page(snap.FS, urlPath, docPath)
	if m := h.opts.Metrics; m != nil {
		m.IncRenderTotal()
		m.ObserveRenderDuration(time.Since(start).Seconds())
	}
	if err != nil {
		h.serveRenderFailure(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if cc := h.opts.HTMLCacheControl; cc != "" && status == http.StatusOK {
		w.Header().Set("Cache-Control", cc)
	}
	if status != http.StatusOK {
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			_, _ = w.Write(page)
		}
		return
	}
	http.ServeContent(w, r, "page.html", snap.LoadedAt, bytes.NewReader(page))
}

func (h *Handler) siteFor(snap *content.Snapshot) (*site, error) {
	return h.cache.siteFor(snap, func(s *content.Snapshot) (*site, error) {
		return newSite(s, h.opts.Logger, h.opts.Metrics)
	})
}

func (h *Handler) serveRenderFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.opts.Logger.Error(r.Context(), err, "page render failed", "path", r.URL.Path)
	if m := h.opts.Metrics; m != nil {
		m.IncRenderErrors()
	}
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte("internal error rendering page"))
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	// Maintenance should never be cached.
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")

	serveFileWithStatus(w, r, http.StatusServiceUnavailable, h.opts.FallbackFS, h.opts.MaintenanceFile)
}

func (h *Handler) serveNotFound(w http.ResponseWriter, r *http.Request, snap *content.Snapshot) {
	// avoid caching 404 responses
	w.Header().Set("Cache-Control", "no-store")

	// prefer a themed 404 document from the active snapshot
	if existsFile(snap.FS, h.opts.Site404Doc) {
		h.servePage(w, r, snap, "/404", h.opts.Site404Doc, http.StatusNotFound)
		return
	}

	// fall back to embedded 404 if present
	if existsFile(h.opts.FallbackFS, h.opts.Fallback404File) {
		serveFileWithStatus(w, r, http.StatusNotFound, h.opts.FallbackFS, h.opts.Fallback404File)
		return
	}

	// last resort: plain text
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("404 page not found"))
}

// we want to serve a file but force an HTTP status code (404/503)
// but http.ServeFileFS writes a status code on its own so wrapping
// ResponseWriter and overriding the first WriteHeader call here
type statusOverrideWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusOverrideWriter) WriteHeader(code int) {
	if w.wroteHeader {
		w.ResponseWriter.WriteHeader(code)
		return
	}
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(w.status)
}

func serveFileWithStatus(w http.ResponseWriter, r *http.Request, status int, fsys fs.FS, name string) {
	sw := &statusOverrideWriter{ResponseWriter: w, status: status}
	http.ServeFileFS(sw, r, fsys, name)
}
