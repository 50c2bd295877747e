package content

import (
	"testing"
	"testing/fstest"
)

func goodSnapshot() *Snapshot {
	return &Snapshot{
		FS: fstest.MapFS{
			"theme.yaml":         {Data: []byte("name: test\n")},
			"docs/intro.md":      {Data: []byte("# Intro\n")},
			"docs/query.json":    {Data: []byte(`{"content": {"tag": "paragraph", "children": ["q"]}}`)},
			"assets/site.css":    {Data: []byte("body{}")},
			ManifestFilePath:     {Data: []byte(sampleManifest)},
			"docs/deep/notes.md": {Data: []byte("notes\n")},
		},
		Manifest: &Manifest{Version: "v"},
	}
}

func TestValidateSnapshot_Good(t *testing.T) {
	if err := ValidateSnapshot(goodSnapshot(), DefaultValidationOptions()); err != nil {
		t.Fatalf("good snapshot rejected: %v", err)
	}
}

func TestValidateSnapshot_NilCases(t *testing.T) {
	if err := ValidateSnapshot(nil, ValidationOptions{}); err == nil {
		t.Fatal("nil snapshot should fail")
	}
	if err := ValidateSnapshot(&Snapshot{}, ValidationOptions{}); err == nil {
		t.Fatal("nil filesystem should fail")
	}
}

func TestValidateSnapshot_MinDocs(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{
		"docs/only.md": {Data: []byte("x")},
	}}
	if err := ValidateSnapshot(snap, ValidationOptions{MinDocs: 2}); err == nil {
		t.Fatal("bundle below MinDocs should fail")
	}
	if err := ValidateSnapshot(snap, ValidationOptions{MinDocs: 1}); err != nil {
		t.Fatalf("bundle at MinDocs rejected: %v", err)
	}
}

func TestValidateSnapshot_NoDocsDir(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{"index.txt": {Data: []byte("x")}}}
	if err := ValidateSnapshot(snap, ValidationOptions{}); err != nil {
		t.Fatalf("missing docs dir with MinDocs=0 should pass: %v", err)
	}
	if err := ValidateSnapshot(snap, ValidationOptions{MinDocs: 1}); err == nil {
		t.Fatal("missing docs dir with MinDocs=1 should fail")
	}
}

func TestValidateSnapshot_BrokenThemeAlwaysFails(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{
		"theme.yaml":    {Data: []byte("name: x\nbogusfield: y\n")},
		"docs/intro.md": {Data: []byte("# Intro\n")},
	}}
	if err := ValidateSnapshot(snap, ValidationOptions{}); err == nil {
		t.Fatal("unparseable theme should fail even when not required")
	}
}

func TestValidateSnapshot_RequireTheme(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{"docs/intro.md": {Data: []byte("x")}}}
	if err := ValidateSnapshot(snap, ValidationOptions{RequireTheme: true}); err == nil {
		t.Fatal("missing theme should fail when required")
	}
}

func TestValidateSnapshot_ParseDocsCatchesBrokenDoc(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{
		"docs/good.md": {Data: []byte("fine\n")},
		"docs/bad.md":  {Data: []byte("---\ntitle: never closed\n")},
	}}
	if err := ValidateSnapshot(snap, ValidationOptions{ParseDocs: true}); err == nil {
		t.Fatal("broken document should fail validation")
	}
	if err := ValidateSnapshot(snap, ValidationOptions{ParseDocs: false}); err != nil {
		t.Fatalf("parse check disabled should pass: %v", err)
	}
}

func TestValidateSnapshot_BadPageDataCaught(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{
		"docs/page.json": {Data: []byte(`{"content": {"props": {}}}`)},
	}}
	if err := ValidateSnapshot(snap, ValidationOptions{ParseDocs: true}); err == nil {
		t.Fatal("page data without a tag should fail validation")
	}
}

func TestValidateSnapshot_RequireManifest(t *testing.T) {
	snap := &Snapshot{FS: fstest.MapFS{"docs/a.md": {Data: []byte("x")}}}
	if err := ValidateSnapshot(snap, ValidationOptions{RequireManifest: true}); err == nil {
		t.Fatal("missing manifest should fail when required")
	}
}
