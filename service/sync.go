package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/acroforms/fillserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// TemplateSync mirrors PDF templates from an object-storage bucket into the
// local template root at startup. The local directory stays authoritative:
// sync failures are warnings, never fatal.
type TemplateSync struct {
	client *minio.Client
	bucket string
	prefix string
	root   string
}

// NewTemplateSync creates a sync client for the configured bucket
func NewTemplateSync(cfg *config.MinioConfig, templateRoot string) (*TemplateSync, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &TemplateSync{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		root:   templateRoot,
	}, nil
}

// Sync downloads every .pdf object under the configured prefix into the
// template root, preserving the relative layout. Returns the number of
// templates written.
func (s *TemplateSync) Sync(ctx context.Context) (int, error) {
	count := 0
	objects := s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	})

	for object := range objects {
		if object.Err != nil {
			return count, fmt.Errorf("failed to list bucket %s: %w", s.bucket, object.Err)
		}
		if !strings.HasSuffix(strings.ToLower(object.Key), ".pdf") {
			continue
		}

		dest, err := s.destination(object.Key)
		if err != nil {
			slog.Warn("skipping template with unsafe object key", "object", object.Key, "error", err)
			continue
		}
		if dest == "" {
			continue
		}

		if err := s.download(ctx, object.Key, dest); err != nil {
			slog.Warn("failed to sync template", "object", object.Key, "error", err)
			continue
		}
		count++
	}

	return count, nil
}

// destination maps a bucket object key to a local path under the template
// root. Object keys are as untrusted as request paths: keys whose relative
// part is absolute or still carries ".." after cleaning are rejected so a
// hostile bucket cannot write outside the root. An empty result means the
// key has nothing left under the prefix.
func (s *TemplateSync) destination(key string) (string, error) {
	rel := strings.TrimPrefix(key, s.prefix)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" {
		return "", nil
	}

	rel = filepath.FromSlash(rel)
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("%w: absolute object key", ErrInvalidPath)
	}
	cleaned := filepath.Clean(rel)
	if strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("%w: object key escapes template root", ErrInvalidPath)
	}

	dest := filepath.Join(s.root, cleaned)
	if dest != s.root && !strings.HasPrefix(dest, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: object key escapes template root", ErrInvalidPath)
	}

	return dest, nil
}

func (s *TemplateSync) download(ctx context.Context, key, dest string) error {
	object, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("failed to get object: %w", err)
	}
	defer object.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return fmt.Errorf("failed to create template directory: %w", err)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create template file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, object); err != nil {
		return fmt.Errorf("failed to write template file: %w", err)
	}

	return nil
}
