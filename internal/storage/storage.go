package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrEmptyContent indicates the upload stream carried no readable name or bytes.
	ErrEmptyContent = errors.New("storage: empty content")
)

// Backend abstracts where image bytes live. Exactly one implementation is
// constructed per deployment; callers hold the interface and never branch on
// the concrete type.
type Backend interface {
	// Store persists the stream and returns an opaque reference that later
	// resolves the same bytes via Delete and URL.
	Store(ctx context.Context, originalName, contentType string, size int64, r io.Reader) (string, error)
	// Delete removes previously stored bytes. Deleting an empty or already
	// absent reference is a no-op, not an error.
	Delete(ctx context.Context, ref string) error
	// URL returns a caller-servable location for the reference.
	URL(ref string) string
}

// objectName derives a collision-resistant name for an upload so concurrent
// uploads of identically named files never share a reference.
func objectName(originalName string) string {
	base := filepath.Base(strings.TrimSpace(originalName))
	if base == "." || base == string(filepath.Separator) {
		base = ""
	}
	if base == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "_" + base
}
