package httpserver_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/keithlinneman/docsite/internal/content"
	"github.com/keithlinneman/docsite/internal/httpserver"
	"github.com/keithlinneman/docsite/internal/log"
	"github.com/keithlinneman/docsite/internal/sitehandler"
)

// TestIntegration_FullStack wires up httpserver.NewHandler with a real
// sitehandler.Handler backed by an in-memory content Manager, then verifies
// that security headers, status codes, and rendered pages work end-to-end.
func TestIntegration_FullStack(t *testing.T) {
	t.Parallel()

	// Set up an in-memory content bundle
	bundleFS := fstest.MapFS{
		"theme.yaml":          {Data: []byte("siteName: Integration Docs\n")},
		"docs/index.md":       {Data: []byte("# Hello World\n")},
		"docs/about/index.md": {Data: []byte("# About\n")},
		"docs/404.md":         {Data: []byte("# Not Found\n")},
		"assets/style.css":    {Data: []byte("body { color: red; }")},
	}

	mgr := content.NewManager()
	mgr.Set(content.Snapshot{
		FS:   bundleFS,
		Meta: content.Meta{Version: "v1.0.0", SHA256: "abc123def456"},
	})

	fallbackFS := fstest.MapFS{
		"maintenance.html": {Data: []byte("<html><body>Maintenance</body></html>")},
		"404.html":         {Data: []byte("<html><body>Fallback 404</body></html>")},
	}

	siteH, err := sitehandler.New(&sitehandler.Options{
		Logger:     log.Nop(),
		Content:    mgr,
		FallbackFS: fallbackFS,
	})
	if err != nil {
		t.Fatalf("sitehandler.New: %v", err)
	}

	handler := httpserver.NewHandler(httpserver.Options{
		Logger:      log.Nop(),
		SiteHandler: siteH,
		ContentInfo: mgr,
	})

	// Subtests cover the full request lifecycle through all middleware layers.

	t.Run("renders index document with security headers", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		body, _ := io.ReadAll(rec.Body)
		if !strings.Contains(string(body), "<h1>Hello World</h1>") {
			t.Fatalf("body = %q, want rendered heading", body)
		}
		if !strings.Contains(string(body), "Integration Docs") {
			t.Fatalf("body = %q, want themed layout", body)
		}

		// Verify security headers are present on content responses
		securityHeaders := []string{
			"Strict-Transport-Security",
			"Content-Security-Policy",
			"X-Content-Type-Options",
			"X-Frame-Options",
			"Referrer-Policy",
			"Cross-Origin-Embedder-Policy",
			"Cross-Origin-Opener-Policy",
			"Cross-Origin-Resource-Policy",
			"Permissions-Policy",
		}
		for _, hdr := range securityHeaders {
			if rec.Header().Get(hdr) == "" {
				t.Errorf("missing security header: %s", hdr)
			}
		}

		// Verify content version headers
		if got := rec.Header().Get("X-Content-Bundle-Version"); got != "v1.0.0" {
			t.Errorf("X-Content-Bundle-Version = %q, want %q", got, "v1.0.0")
		}
		if got := rec.Header().Get("X-Content-Hash"); got == "" {
			t.Error("X-Content-Hash not set")
		}

		// Verify request ID is generated
		if got := rec.Header().Get("X-Request-Id"); got == "" {
			t.Error("X-Request-Id not set")
		}
	})

	t.Run("serves sub-path document at extensionless route", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/about", http.NoBody)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}

		body, _ := io.ReadAll(rec.Body)
		if !strings.Contains(string(body), "<h1>About</h1>") {
			t.Fatalf("body = %q, want rendered heading", body)
		}
	})

	t.Run("redirects trailing slash to canonical route", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/about/", http.NoBody)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusPermanentRedirect {
			t.Fatalf("status = %d, want 308", rec.Code)
		}
		if got := rec.Header().Get("Location"); got != "/about" {
			t.Fatalf("Location = %q, want /about", got)
		}
	})

	t.Run("serves static assets with security headers", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/assets/style.css", http.NoBody)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("Strict-Transport-Security") == "" {
			t.Fatal("HSTS missing on static asset response")
		}
	})

	t.Run("returns themed 404 for missing path", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/does-not-exist", http.NoBody)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
		body, _ := io.ReadAll(rec.Body)
		if !strings.Contains(string(body), "<h1>Not Found</h1>") {
			t.Fatalf("body = %q, want themed 404", body)
		}
		// Security headers must be present even on 404
		if rec.Header().Get("Strict-Transport-Security") == "" {
			t.Fatal("HSTS missing on 404 response")
		}
	})

	t.Run("rejects POST with 405", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/", http.NoBody)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Fatalf("status = %d, want 405", rec.Code)
		}
		if rec.Header().Get("Strict-Transport-Security") == "" {
			t.Fatal("HSTS missing on 405 response")
		}
	})

	t.Run("HEAD returns same status as GET without body", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodHead, "/", http.NoBody)
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if rec.Header().Get("Strict-Transport-Security") == "" {
			t.Fatal("HSTS missing on HEAD response")
		}
	})
}
