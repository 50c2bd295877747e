// Package content manages the lifecycle of documentation bundles.
//
// A bundle is a tar.gz holding markdown/page-data documents, an
// optional theme.yaml, static assets, and a manifest.json describing
// the build. Bundles are published to S3 and announced through an SSM
// parameter carrying the bundle's SHA-256.
//
// The core components are:
//   - [Loader]: downloads a bundle, verifies its hash (and optionally
//     the KMS signature over its manifest), and extracts it to an
//     in-memory filesystem
//   - [Manager]: holds the active snapshot behind an atomic pointer
//     for lock-free reads on the serving path
//   - [Watcher]: polls SSM for hash changes, validates new bundles,
//     and hot-swaps them into the Manager
//   - [Snapshot]: an immutable in-memory filesystem plus metadata
//
// Extraction enforces strict limits: maximum compressed size, per-file
// size, total extracted size, and path traversal checks.
package content
