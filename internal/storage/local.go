package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/photon/backend/internal/config"
)

// LocalBackend persists image bytes to a directory on the local filesystem.
// References are the generated filenames, relative to the storage root.
type LocalBackend struct {
	root   string
	prefix string
}

// NewLocalBackend configures filesystem storage rooted at cfg.UploadDir.
// The directory is created lazily on first store.
func NewLocalBackend(cfg config.LocalStoreConfig) (*LocalBackend, error) {
	root := strings.TrimSpace(cfg.UploadDir)
	if root == "" {
		return nil, fmt.Errorf("local storage: upload dir is required")
	}

	return &LocalBackend{
		root:   root,
		prefix: strings.TrimSuffix(cfg.PublicPrefix, "/"),
	}, nil
}

// Store writes the stream to a uniquely named file under the storage root.
func (b *LocalBackend) Store(ctx context.Context, originalName, _ string, _ int64, r io.Reader) (string, error) {
	if r == nil {
		return "", ErrEmptyContent
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(b.root, 0o755); err != nil {
		return "", fmt.Errorf("local storage: create upload dir: %w", err)
	}

	name := objectName(originalName)
	target := filepath.Join(b.root, name)

	f, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("local storage: create %s: %w", name, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(target)
		return "", fmt.Errorf("local storage: write %s: %w", name, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(target)
		return "", fmt.Errorf("local storage: close %s: %w", name, err)
	}

	return name, nil
}

// Delete removes the named file. Missing files are treated as already deleted.
func (b *LocalBackend) Delete(_ context.Context, ref string) error {
	if strings.TrimSpace(ref) == "" {
		return nil
	}

	if err := os.Remove(filepath.Join(b.root, filepath.Base(ref))); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("local storage: delete %s: %w", ref, err)
	}

	return nil
}

// URL returns the local serving path for the reference.
func (b *LocalBackend) URL(ref string) string {
	if ref == "" {
		return ""
	}
	return b.prefix + "/" + ref
}

var _ Backend = (*LocalBackend)(nil)
