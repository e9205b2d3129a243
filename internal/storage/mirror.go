package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"dengbej/internal/config"
	"dengbej/internal/logging"
)

// Mirror copies served files to an S3-compatible bucket.
type Mirror struct {
	client *minio.Client
	bucket string
	prefix string
	region string
	logger *slog.Logger
}

// New returns a Mirror for cfg, or nil when mirroring is disabled.
func New(cfg config.Storage, logger *slog.Logger) (*Mirror, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &Mirror{
		client: client,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		region: cfg.Region,
		logger: logging.NewComponentLogger(logger, "storage"),
	}, nil
}

// Bucket reports the target bucket name.
func (m *Mirror) Bucket() string {
	if m == nil {
		return ""
	}
	return m.bucket
}

// EnsureBucket creates the bucket when it does not exist yet.
func (m *Mirror) EnsureBucket(ctx context.Context) error {
	if m == nil {
		return nil
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	if exists {
		return nil
	}
	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region}); err != nil {
		return fmt.Errorf("create bucket %s: %w", m.bucket, err)
	}
	m.logger.Info("storage bucket created", logging.String("bucket", m.bucket))
	return nil
}

// BucketExists reports whether the target bucket is reachable and present.
func (m *Mirror) BucketExists(ctx context.Context) (bool, error) {
	if m == nil {
		return false, nil
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return false, fmt.Errorf("check bucket %s: %w", m.bucket, err)
	}
	return exists, nil
}

// Key returns the object key for a local file.
func (m *Mirror) Key(localPath string) string {
	name := filepath.Base(localPath)
	if m == nil || m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// MirrorFiles uploads each file under its base name. Every file is
// attempted; failures are joined into the returned error.
func (m *Mirror) MirrorFiles(ctx context.Context, paths []string) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, local := range paths {
		if strings.TrimSpace(local) == "" {
			continue
		}
		key := m.Key(local)
		info, err := m.client.FPutObject(ctx, m.bucket, key, local, minio.PutObjectOptions{
			ContentType: contentType(local),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("mirror %s: %w", key, err))
			continue
		}
		m.logger.Debug("file mirrored",
			logging.String("key", key),
			logging.Int64("size", info.Size),
		)
	}
	return errors.Join(errs...)
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
