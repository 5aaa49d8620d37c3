// Package storage persists uploaded profile images on local disk or in S3.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"admin-dashboard/backend/pkg/config"

	"github.com/google/uuid"
)

// FileStore saves an uploaded file under name and returns the path clients
// use to fetch it, relative to the static assets root.
type FileStore interface {
	Save(ctx context.Context, name string, body io.Reader, contentType string) (string, error)
}

// UniqueName returns a random hex name that keeps the extension of original.
func UniqueName(original string) string {
	return strings.ReplaceAll(uuid.NewString(), "-", "") + cleanExt(original)
}

func cleanExt(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

func publicPath(prefix, name string) string {
	return path.Join(prefix, name)
}

// New builds the store selected by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (FileStore, error) {
	switch cfg.Backend {
	case "", "local":
		return NewLocal(cfg.LocalDir, cfg.URLPrefix), nil
	case "s3":
		return NewS3(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
