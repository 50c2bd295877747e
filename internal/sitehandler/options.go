package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/keithlinneman/docsite/internal/content"
	"github.com/keithlinneman/docsite/internal/log"
)

// ErrInvalidOptions marks a misconfigured handler at construction.
var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type SnapshotProvider interface {
	Get() (*content.Snapshot, bool)
}

// RenderMetrics receives render pipeline observability signals.
// Implemented by the metrics package.
type RenderMetrics interface {
	ObserveRenderDuration(seconds float64)
	IncRenderTotal()
	IncRenderErrors()
	IncResolverFallback(tag string)
}

type Options struct {
	Logger log.Logger

	// Active content
	Content SnapshotProvider

	// fallback FS (maintenance page, fallback 404)
	FallbackFS fs.FS

	// file names inside the FS roots (relative path)
	// - MaintenanceFile and Fallback404File are read from FallbackFS
	// - Site404Doc is a document path in the active snapshot
	MaintenanceFile string // default: "maintenance.html"
	Fallback404File string // default: "404.html"
	Site404Doc      string // default: "docs/404.md"

	// Cache policies applied by response kind.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=31536000, immutable"
	OtherCacheControl string // default: "public, max-age=3600"

	// Metrics receives render timings and counters. Optional.
	Metrics RenderMetrics
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.Fallback404File == "" {
		o.Fallback404File = "404.html"
	}
	if o.Site404Doc == "" {
		o.Site404Doc = "docs/404.md"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=31536000, immutable"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.Content == nil {
		return fmt.Errorf("%w: Content is nil", ErrInvalidOptions)
	}
	if o.FallbackFS == nil {
		return fmt.Errorf("%w: FallbackFS is nil", ErrInvalidOptions)
	}
	// Ensure maintenance exists (fail fast on boot if mispackaged).
	if _, err := fs.Stat(o.FallbackFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in fallback FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	// Fallback 404 is optional; degrades to plain text if missing.
	return nil
}
