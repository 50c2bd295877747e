package sitehandler

import (
	"testing"

	"github.com/keithlinneman/docsite/internal/content"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

func TestSiteCache_ReusesSiteForSameSnapshot(t *testing.T) {
	var cache siteCache
	snap := &content.Snapshot{FS: testBundleFS()}

	builds := 0
	build := func(s *content.Snapshot) (*site, error) {
		builds++
		return &site{pages: map[string][]byte{}}, nil
	}

	s1, err := cache.siteFor(snap, build)
	if err != nil {
		t.Fatalf("first siteFor: %v", err)
	}
	s2, err := cache.siteFor(snap, build)
	if err != nil {
		t.Fatalf("second siteFor: %v", err)
	}
	if s1 != s2 {
		t.Fatal("expected the same site for the same snapshot")
	}
	if builds != 1 {
		t.Fatalf("builds = %d, want 1", builds)
	}
}

func TestSiteCache_RebuildsOnNewSnapshot(t *testing.T) {
	var cache siteCache

	builds := 0
	build := func(s *content.Snapshot) (*site, error) {
		builds++
		return &site{pages: map[string][]byte{}}, nil
	}

	s1, _ := cache.siteFor(&content.Snapshot{FS: testBundleFS()}, build)
	s2, _ := cache.siteFor(&content.Snapshot{FS: testBundleFS()}, build)
	if s1 == s2 {
		t.Fatal("expected a fresh site after a snapshot swap")
	}
	if builds != 2 {
		t.Fatalf("builds = %d, want 2", builds)
	}
}

func TestSiteCache_CachesBuildError(t *testing.T) {
	var cache siteCache
	snap := &content.Snapshot{FS: testBundleFS()}

	builds := 0
	build := func(s *content.Snapshot) (*site, error) {
		builds++
		return nil, xerrors.New("bad theme")
	}

	if _, err := cache.siteFor(snap, build); err == nil {
		t.Fatal("expected build error")
	}
	// the error sticks until the snapshot changes, so a broken bundle
	// does not trigger a rebuild attempt per request
	if _, err := cache.siteFor(snap, build); err == nil {
		t.Fatal("expected cached error")
	}
	if builds != 1 {
		t.Fatalf("builds = %d, want 1", builds)
	}
}
