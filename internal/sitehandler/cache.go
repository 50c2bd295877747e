package sitehandler

import (
	"sync"

	"github.com/keithlinneman/docsite/internal/content"
)

// siteCache binds render state to the snapshot it was built from. The
// manager hot-swaps snapshots at any time; comparing the snapshot
// pointer is enough because Set always stores a fresh copy.
type siteCache struct {
	mu   sync.Mutex
	snap *content.Snapshot
	site *site
	err  error
}

// siteFor builds (or reuses) the site for snap.
func (c *siteCache) siteFor(snap *content.Snapshot, build func(*content.Snapshot) (*site, error)) (*site, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.snap == snap {
		return c.site, c.err
	}

	s, err := build(snap)
	c.snap = snap
	c.site = s
	c.err = err
	return s, err
}
