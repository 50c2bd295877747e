package sitehandler

import (
	"io/fs"
	"path"
	"strings"

	"github.com/keithlinneman/docsite/internal/content"
	"github.com/keithlinneman/docsite/internal/pathutil"
)

// docExtensions in resolution order: markdown wins over page data when
// both exist for the same route.
var docExtensions = []string{".md", ".json"}

// resolveDoc maps a URL path to a document within the bundle.
//
// Routes are extensionless: /query/intro tries docs/query/intro.md,
// docs/query/intro.json, then docs/query/intro/index.{md,json} for
// section pages. / maps to docs/index.*. Trailing slashes redirect to
// the canonical slashless form.
//
// Returns:
// - docPath: relative document path within the FS
// - redirectTo: if non-empty, caller should redirect to this URL path
// - ok: whether the mapping is valid/found
func resolveDoc(urlPath string, fsys fs.FS) (docPath string, redirectTo string, ok bool) {
	clean, valid := cleanURLPath(urlPath)
	if !valid {
		return "", "", false
	}

	// canonical doc URLs have no trailing slash
	if clean != "/" && strings.HasSuffix(clean, "/") {
		return "", strings.TrimSuffix(clean, "/"), true
	}

	rel := strings.TrimPrefix(clean, "/")
	if rel == "" {
		rel = "index"
	}

	for _, ext := range docExtensions {
		if name := content.DocsDir + "/" + rel + ext; existsFile(fsys, name) {
			return name, "", true
		}
	}
	for _, ext := range docExtensions {
		if name := content.DocsDir + "/" + rel + "/index" + ext; existsFile(fsys, name) {
			return name, "", true
		}
	}

	return "", "", false
}

// resolveAsset maps a URL path with a file extension to a raw bundle
// file. Documents and the manifest are never served raw.
func resolveAsset(urlPath string, fsys fs.FS) (string, bool) {
	clean, valid := cleanURLPath(urlPath)
	if !valid || strings.HasSuffix(clean, "/") {
		return "", false
	}
	if path.Ext(clean) == "" {
		return "", false
	}

	name := strings.TrimPrefix(clean, "/")
	if name == content.ManifestFilePath || name == content.SignatureFilePath {
		return "", false
	}
	if strings.HasPrefix(name, content.DocsDir+"/") {
		return "", false
	}
	if !existsFile(fsys, name) {
		return "", false
	}
	return name, true
}

// cleanURLPath normalizes and rejects ambiguous/unsafe paths,
// preserving a trailing slash through Clean.
func cleanURLPath(urlPath string) (string, bool) {
	p := urlPath
	if p == "" {
		p = "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}

	if strings.Contains(p, "\x00") || strings.Contains(p, "\\") || strings.Contains(p, "..") {
		return "", false
	}
	if pathutil.HasDotSegments(p) {
		return "", false
	}

	trailingSlash := strings.HasSuffix(p, "/")
	clean := path.Clean(p)
	if trailingSlash && clean != "/" {
		clean += "/"
	}
	return clean, true
}

func existsFile(fsys fs.FS, name string) bool {
	if name == "" || !fs.ValidPath(name) {
		return false
	}
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
