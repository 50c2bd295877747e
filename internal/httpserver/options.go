package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/docsite/internal/health"
	"github.com/keithlinneman/docsite/internal/httpmw"
	"github.com/keithlinneman/docsite/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func() // called after a recovered panic (metrics hook)
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions
	Health       health.Probe
	Readiness    health.Probe
	ContentInfo  httpmw.ContentInfo // For X-Content-Bundle-Version and X-Content-Hash headers

	// APIRoutes registers extra routes (ops or API surfaces) on the
	// main router before the site handler claims the rest.
	APIRoutes func(chi.Router)

	// SiteHandler serves everything no explicit route claims.
	SiteHandler http.Handler
}
