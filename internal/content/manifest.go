package content

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io/fs"
	"time"

	"github.com/keithlinneman/docsite/internal/xerrors"
)

// ManifestFilePath is the expected location of the manifest inside a
// bundle. SignatureFilePath, when present, holds a base64 signature
// over the exact manifest bytes.
const (
	ManifestFilePath  = "manifest.json"
	SignatureFilePath = "manifest.sig"
)

// Manifest describes a documentation bundle: what was built, from
// what, and the per-file digests.
type Manifest struct {
	Schema    string         `json:"schema"`
	Version   string         `json:"version"`
	BuiltAt   time.Time      `json:"built_at"`
	Source    BuildSource    `json:"source"`
	Summary   BuildSummary   `json:"summary"`
	Documents []ManifestFile `json:"documents,omitempty"`
}

// BuildSource records the repository state the bundle was built from.
type BuildSource struct {
	Repository string `json:"repository"`
	Commit     string `json:"commit"`
	Branch     string `json:"branch"`
	Dirty      bool   `json:"dirty"`
}

// BuildSummary holds aggregate bundle statistics.
type BuildSummary struct {
	TotalFiles int   `json:"total_files"`
	TotalSize  int64 `json:"total_size"`
	DocCount   int   `json:"doc_count"`
}

// ManifestFile is one document entry.
type ManifestFile struct {
	Path   string `json:"path"`
	SHA256 string `json:"sha256"`
	Size   int64  `json:"size"`
}

// ManifestVerifier verifies a detached signature over manifest bytes.
// Implemented by cryptoutil.KMSVerifier.
type ManifestVerifier interface {
	VerifySignature(ctx context.Context, message, signature []byte) error
}

// LoadManifest reads and parses the bundle manifest. The raw bytes are
// returned alongside so signature verification covers exactly what was
// parsed.
func LoadManifest(fsys fs.FS) (*Manifest, []byte, error) {
	raw, err := fs.ReadFile(fsys, ManifestFilePath)
	if err != nil {
		return nil, nil, xerrors.Wrapf(err, "read %s", ManifestFilePath)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, nil, xerrors.Wrapf(err, "parse %s", ManifestFilePath)
	}
	return &m, raw, nil
}

// VerifyManifestSignature checks the bundle's detached manifest
// signature. Returns (false, nil) when the bundle carries no
// signature file; an unreadable or failing signature is an error.
func VerifyManifestSignature(ctx context.Context, fsys fs.FS, raw []byte, verifier ManifestVerifier) (bool, error) {
	sigData, err := fs.ReadFile(fsys, SignatureFilePath)
	if err != nil {
		return false, nil
	}
	if verifier == nil {
		return false, xerrors.Newf("%s present but no verifier configured", SignatureFilePath)
	}

	sig, err := base64.StdEncoding.DecodeString(string(sigData))
	if err != nil {
		return false, xerrors.Wrapf(err, "decode %s", SignatureFilePath)
	}
	if err := verifier.VerifySignature(ctx, raw, sig); err != nil {
		return false, xerrors.Wrap(err, "verify manifest signature")
	}
	return true, nil
}
