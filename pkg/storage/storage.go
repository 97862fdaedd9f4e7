// Package storage saves uploaded photos and returns the URL clients use to
// fetch them. Local disk is used in development, Google Cloud Storage in
// production.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

// Uploader stores one object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error)
}

// ObjectName prefixes a sanitized filename with a timestamp to avoid collisions.
func ObjectName(now time.Time, filename string) string {
	base := filepath.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.Map(func(r rune) rune {
		switch {
		case r == ' ':
			return '_'
		case r < 0x20 || r == '/' || r == ':':
			return -1
		}
		return r
	}, base)
	if base == "" || base == "." || base == ".." {
		base = "upload"
	}
	return fmt.Sprintf("%s-%s", now.Format("20060102-150405.000"), base)
}

// Local writes uploads under Dir and serves them from URLPrefix.
type Local struct {
	Dir       string
	URLPrefix string
	now       func() time.Time
}

func NewLocal(dir, urlPrefix string) *Local {
	return &Local{Dir: dir, URLPrefix: strings.TrimSuffix(urlPrefix, "/"), now: time.Now}
}

func (l *Local) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	if err := os.MkdirAll(l.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := ObjectName(l.now(), filename)
	dst, err := os.Create(filepath.Join(l.Dir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return l.URLPrefix + "/" + name, nil
}

// GCS writes uploads to a bucket and returns storage.googleapis.com URLs.
type GCS struct {
	client *gcs.Client
	bucket string
	prefix string
	now    func() time.Time
}

// NewGCS opens a client with application default credentials.
func NewGCS(ctx context.Context, bucket, prefix string) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket is not configured")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), now: time.Now}, nil
}

func (g *GCS) Upload(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	name := path.Join(g.prefix, ObjectName(g.now(), filename))

	w := g.client.Bucket(g.bucket).Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", name, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", g.bucket, name), nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
