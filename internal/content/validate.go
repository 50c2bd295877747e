// internal/content/validate.go
package content

import (
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/docsite/internal/doctree"
	"github.com/keithlinneman/docsite/internal/theme"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// DocsDir is where a bundle keeps its documents.
const DocsDir = "docs"

// ValidationOptions controls which checks ValidateSnapshot performs.
type ValidationOptions struct {
	// MinDocs rejects bundles with fewer than this many documents.
	// 0 disables the check.
	MinDocs int

	// RequireTheme fails validation when theme.yaml is missing. A
	// present-but-unparseable theme always fails regardless.
	RequireTheme bool

	// RequireManifest fails validation when manifest.json is missing.
	RequireManifest bool

	// ParseDocs parses every document and fails on the first one the
	// loaders reject. Catches broken bundles at swap time instead of
	// request time.
	ParseDocs bool
}

// DefaultValidationOptions returns the recommended production defaults.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		MinDocs:         1,
		RequireManifest: true,
		ParseDocs:       true,
	}
}

// ValidateSnapshot runs sanity checks on a bundle before the Watcher
// swaps it into the active Manager, so a broken publish never replaces
// working content.
// Returns nil if all checks pass, or an error describing the first failure.
func ValidateSnapshot(snap *Snapshot, opts ValidationOptions) error {
	if snap == nil {
		return xerrors.New("validate: snapshot is nil")
	}
	if snap.FS == nil {
		return xerrors.New("validate: snapshot has nil filesystem")
	}

	if err := checkTheme(snap.FS, opts.RequireTheme); err != nil {
		return err
	}

	docs, err := listDocs(snap.FS)
	if err != nil {
		return xerrors.Wrap(err, "validate: listing documents")
	}
	if opts.MinDocs > 0 && len(docs) < opts.MinDocs {
		return xerrors.Newf("validate: bundle has %d documents, minimum is %d", len(docs), opts.MinDocs)
	}

	if opts.ParseDocs {
		if err := checkDocsParse(snap.FS, docs); err != nil {
			return err
		}
	}

	if opts.RequireManifest && snap.Manifest == nil {
		return xerrors.New("validate: manifest.json is required but missing")
	}

	return nil
}

// checkTheme verifies the bundle theme loads when present.
func checkTheme(fsys fs.FS, required bool) error {
	data, err := fs.ReadFile(fsys, theme.DefaultPath)
	if err != nil {
		if required {
			return xerrors.Wrapf(err, "validate: %s not found", theme.DefaultPath)
		}
		return nil
	}
	if _, err := theme.Load(data); err != nil {
		return xerrors.Wrap(err, "validate: theme")
	}
	return nil
}

// listDocs returns the paths of all documents in the bundle.
func listDocs(fsys fs.FS) ([]string, error) {
	var docs []string
	err := fs.WalkDir(fsys, DocsDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// a bundle without a docs dir has zero documents
			if p == DocsDir {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch path.Ext(p) {
		case ".md", ".json":
			docs = append(docs, p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// checkDocsParse loads every document through the real loaders.
func checkDocsParse(fsys fs.FS, docs []string) error {
	for _, p := range docs {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return xerrors.Wrapf(err, "validate: read %s", p)
		}
		if strings.HasSuffix(p, ".md") {
			_, err = doctree.ParseMarkdown(data)
		} else {
			_, err = doctree.ParsePageData(data, theme.BuildComponents)
		}
		if err != nil {
			return xerrors.Wrapf(err, "validate: document %s", p)
		}
	}
	return nil
}
