// Package cryptoutil provides cryptographic verification primitives
// for content integrity.
//
// It supports:
//   - KMS-backed signature verification (ECDSA P-256/P-384, RSA-PSS with optional PKCS1v15 fallback)
//   - Constant-time hash comparison to prevent timing side-channels
//   - SHA-256 and SHA-384 hashing utilities
package cryptoutil
