// internal/content/loader.go
package content

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/docsite/internal/cryptoutil"
	"github.com/keithlinneman/docsite/internal/log"
	"github.com/keithlinneman/docsite/internal/xerrors"
)

// S3Getter and SSMGetter are the API subsets the loader needs,
// extracted for test doubles.
type S3Getter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type SSMGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

type LoaderOptions struct {
	Logger log.Logger

	// SSM parameter containing the bundle SHA256 hash
	SSMParam string

	// S3 location for bundles: s3://{bucket}/{prefix}/{hash}.tar.gz
	S3Bucket string
	S3Prefix string

	// Verifier checks the manifest signature of downloaded bundles.
	// Optional; unsigned bundles still load unless RequireSignature.
	Verifier ManifestVerifier

	// RequireSignature rejects bundles without a verified manifest
	// signature.
	RequireSignature bool

	// AWS config (uses default if nil)
	AWSConfig *aws.Config

	// Client overrides for tests; built from AWSConfig when nil.
	S3Client  S3Getter
	SSMClient SSMGetter
}

type Loader struct {
	opts      LoaderOptions
	ssmClient SSMGetter
	s3Client  S3Getter
	logger    log.Logger
}

// NewLoader creates a content Loader with the given options
func NewLoader(ctx context.Context, opts LoaderOptions) (*Loader, error) {
	if opts.SSMParam == "" {
		return nil, xerrors.New("SSMParam is required")
	}
	if opts.S3Bucket == "" {
		return nil, xerrors.New("S3Bucket is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}

	s3Client := opts.S3Client
	ssmClient := opts.SSMClient
	if s3Client == nil || ssmClient == nil {
		var awsCfg aws.Config
		var err error
		if opts.AWSConfig != nil {
			awsCfg = *opts.AWSConfig
		} else {
			awsCfg, err = config.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, xerrors.Wrap(err, "load AWS config")
			}
		}
		if s3Client == nil {
			s3Client = s3.NewFromConfig(awsCfg)
		}
		if ssmClient == nil {
			ssmClient = ssm.NewFromConfig(awsCfg)
		}
	}

	return &Loader{
		opts:      opts,
		ssmClient: ssmClient,
		s3Client:  s3Client,
		logger:    opts.Logger,
	}, nil
}

// FetchCurrentBundleHash gets the current bundle hash from SSM
func (l *Loader) FetchCurrentBundleHash(ctx context.Context) (string, error) {
	out, err := l.ssmClient.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(l.opts.SSMParam),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", xerrors.Wrapf(err, "get SSM parameter %s", l.opts.SSMParam)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", xerrors.Newf("SSM parameter %s has no value", l.opts.SSMParam)
	}

	hash := strings.TrimSpace(*out.Parameter.Value)
	if hash == "" {
		return "", xerrors.Newf("SSM parameter %s is empty", l.opts.SSMParam)
	}

	return hash, nil
}

// s3Key returns the S3 object key for a given hash
func (l *Loader) s3Key(hash string) string {
	if l.opts.S3Prefix != "" {
		return fmt.Sprintf("%s/%s.tar.gz", l.opts.S3Prefix, hash)
	}
	return fmt.Sprintf("%s.tar.gz", hash)
}

// download fetches a bundle from S3 into memory and verifies its hash
func (l *Loader) download(ctx context.Context, hash string) ([]byte, error) {
	key := l.s3Key(hash)

	l.logger.Info(ctx, "downloading content bundle",
		"bucket", l.opts.S3Bucket,
		"key", key,
		"expected_hash", hash,
	)

	out, err := l.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.opts.S3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "get S3 object s3://%s/%s", l.opts.S3Bucket, key)
	}
	defer out.Body.Close()

	data, actualHash, err := readWithHash(out.Body, maxBundleSize)
	if err != nil {
		return nil, xerrors.Wrap(err, "download bundle")
	}

	l.logger.Info(ctx, "downloaded content bundle",
		"bytes", len(data),
		"actual_hash", actualHash,
	)

	// our policy is to always use cryptoutil.HashEqual for comparing hashes, even though
	// this is not user-supplied or a secret value so timing attacks are not a concern here.
	if !cryptoutil.HashEqual(actualHash, hash) {
		return nil, xerrors.Newf("checksum mismatch: expected %s, got %s", hash, actualHash)
	}

	return data, nil
}

// Load fetches the current release and returns a Snapshot
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	hash, err := l.FetchCurrentBundleHash(ctx)
	if err != nil {
		return nil, err
	}

	return l.LoadHash(ctx, hash)
}

// LoadHash fetches a specific bundle by hash and returns a Snapshot
func (l *Loader) LoadHash(ctx context.Context, hash string) (*Snapshot, error) {
	loadedAt := time.Now().UTC()

	data, err := l.download(ctx, hash)
	if err != nil {
		return nil, err
	}

	contentFS, err := extractTarGzToMem(data)
	if err != nil {
		return nil, xerrors.Wrap(err, "extract bundle")
	}

	manifest, raw, err := LoadManifest(contentFS)
	if err != nil {
		// tolerated for now - validation decides whether a bundle
		// without a manifest is servable
		l.logger.Warn(ctx, "bundle has no usable manifest",
			"hash", hash,
			"error", err,
		)
		manifest = nil
	}

	signed := false
	if manifest != nil {
		signed, err = VerifyManifestSignature(ctx, contentFS, raw, l.opts.Verifier)
		if err != nil {
			return nil, err
		}
	}
	if l.opts.RequireSignature && !signed {
		return nil, xerrors.Newf("bundle %s: manifest signature required but not verified", hash)
	}

	if manifest != nil {
		l.logger.Info(ctx, "loaded bundle manifest",
			"version", manifest.Version,
			"doc_count", manifest.Summary.DocCount,
			"commit", manifest.Source.Commit,
			"signed", signed,
		)
	}

	return &Snapshot{
		FS: contentFS,
		Meta: Meta{
			Version:    manifestVersion(manifest),
			SHA256:     hash,
			BuiltAt:    manifestBuiltAt(manifest),
			VerifiedAt: time.Now().UTC(),
			Source:     SourceS3,
			Signed:     signed,
		},
		Manifest: manifest,
		LoadedAt: loadedAt,
	}, nil
}

// FromDir builds a snapshot from a local content directory. Used for
// development and the static exporter; no hash or signature checks.
func FromDir(dir string) (*Snapshot, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, xerrors.Wrapf(err, "stat %s", dir)
	}
	if !info.IsDir() {
		return nil, xerrors.Newf("%s is not a directory", dir)
	}
	return FromFS(os.DirFS(dir), SourceDisk), nil
}

// FromFS builds a snapshot directly from a filesystem, picking up the
// manifest when one is present.
func FromFS(fsys fs.FS, source Source) *Snapshot {
	manifest, _, err := LoadManifest(fsys)
	if err != nil {
		manifest = nil
	}
	return &Snapshot{
		FS: fsys,
		Meta: Meta{
			Version: manifestVersion(manifest),
			BuiltAt: manifestBuiltAt(manifest),
			Source:  source,
		},
		Manifest: manifest,
		LoadedAt: time.Now().UTC(),
	}
}

func manifestVersion(m *Manifest) string {
	if m == nil {
		return ""
	}
	return m.Version
}

func manifestBuiltAt(m *Manifest) time.Time {
	if m == nil {
		return time.Time{}
	}
	return m.BuiltAt
}

// LoadIntoManager fetches the current release, validates it, and swaps
// it into the content manager. Whatever the manager currently serves
// stays active when the fetched bundle fails validation.
func (l *Loader) LoadIntoManager(ctx context.Context, mgr *Manager) error {
	snap, err := l.Load(ctx)
	if err != nil {
		return err
	}
	if err := ValidateSnapshot(snap, DefaultValidationOptions()); err != nil {
		return xerrors.Wrap(err, "validate bundle")
	}
	mgr.Set(*snap)
	return nil
}
