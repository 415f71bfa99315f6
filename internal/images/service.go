package images

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/photon/backend/internal/logging"
	"github.com/photon/backend/internal/models"
	"github.com/photon/backend/internal/repositories"
	"github.com/photon/backend/internal/storage"
)

// ErrStorage marks a failed write to the storage backend on the primary
// path. Best-effort cleanup failures are never tagged with it.
var ErrStorage = errors.New("storage backend failure")

// UserFinder resolves user identifiers to accounts.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Upload bundles the caller-supplied parts of an image upload.
type Upload struct {
	OriginalName string
	DisplayName  string
	ContentType  string
	Size         int64
	Content      io.Reader
}

// CleanupResult reports the outcome of a best-effort blob removal. Cleanup
// failures never fail the containing operation; callers inspect the result
// separately from the operation's own error.
type CleanupResult struct {
	Ref string
	Err error
}

// Failed reports whether the blob could not be removed.
func (c CleanupResult) Failed() bool {
	return c.Err != nil
}

// Service owns the image metadata lifecycle, delegating raw bytes to the
// configured storage backend.
type Service struct {
	images  repositories.ImageRepository
	users   UserFinder
	backend storage.Backend

	// NowFunc stamps creation times and is overridable in tests.
	NowFunc func() time.Time
}

// NewService constructs the image service.
func NewService(images repositories.ImageRepository, users UserFinder, backend storage.Backend) *Service {
	return &Service{
		images:  images,
		users:   users,
		backend: backend,
		NowFunc: time.Now,
	}
}

// Create stores the uploaded bytes and persists metadata for the new image.
// If the metadata insert fails after a successful store, the stored bytes are
// orphaned; the leak is logged rather than compensated.
func (s *Service) Create(ctx context.Context, ownerID string, up Upload) (models.Image, error) {
	ctx, span := logging.StartSpan(ctx, "images.create")
	defer span.End()

	if up.Content == nil {
		return models.Image{}, storage.ErrEmptyContent
	}

	if _, err := s.users.FindByID(ctx, ownerID); err != nil {
		return models.Image{}, fmt.Errorf("resolve owner: %w", err)
	}

	ref, err := s.backend.Store(ctx, up.OriginalName, up.ContentType, up.Size, up.Content)
	if err != nil {
		return models.Image{}, fmt.Errorf("store image: %w", errors.Join(ErrStorage, err))
	}

	name := strings.TrimSpace(up.DisplayName)
	if name == "" {
		name = up.OriginalName
	}

	image := models.Image{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      name,
		FileRef:   ref,
		Size:      up.Size,
		CreatedAt: s.NowFunc().UTC(),
	}

	if err := s.images.Create(ctx, image); err != nil {
		logging.FromContext(ctx).Warn("image metadata insert failed, stored bytes orphaned",
			"ref", ref, "owner_id", ownerID, "error", err)
		return models.Image{}, fmt.Errorf("persist image metadata: %w", err)
	}

	return image, nil
}

// Replace swaps the image's content. The old bytes are removed before the new
// upload: a removal failure is non-fatal, but a failed upload leaves the
// record pointing at content that may already be gone.
func (s *Service) Replace(ctx context.Context, imageID string, up Upload) (models.Image, error) {
	ctx, span := logging.StartSpan(ctx, "images.replace")
	defer span.End()

	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return models.Image{}, fmt.Errorf("load image: %w", err)
	}

	if up.Content == nil || up.Size == 0 {
		return image, nil
	}

	if cleanup := s.removeBlob(ctx, image.FileRef); cleanup.Failed() {
		logging.FromContext(ctx).Warn("failed to delete replaced image bytes",
			"ref", cleanup.Ref, "error", cleanup.Err)
	}

	ref, err := s.backend.Store(ctx, up.OriginalName, up.ContentType, up.Size, up.Content)
	if err != nil {
		return models.Image{}, fmt.Errorf("store replacement image: %w", errors.Join(ErrStorage, err))
	}

	image.FileRef = ref
	image.Size = up.Size

	if err := s.images.Update(ctx, image); err != nil {
		return models.Image{}, fmt.Errorf("update image metadata: %w", err)
	}

	return image, nil
}

// Rename updates the display name. Empty names leave the record untouched.
func (s *Service) Rename(ctx context.Context, imageID, name string) (models.Image, error) {
	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return models.Image{}, fmt.Errorf("load image: %w", err)
	}

	name = strings.TrimSpace(name)
	if name == "" || name == image.Name {
		return image, nil
	}

	image.Name = name
	if err := s.images.Update(ctx, image); err != nil {
		return models.Image{}, fmt.Errorf("update image metadata: %w", err)
	}

	return image, nil
}

// ToggleTrash flips the trash flag and returns the new value.
func (s *Service) ToggleTrash(ctx context.Context, imageID string) (bool, error) {
	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("load image: %w", err)
	}

	image.InTrash = !image.InTrash
	if err := s.images.Update(ctx, image); err != nil {
		return false, fmt.Errorf("update image metadata: %w", err)
	}

	return image.InTrash, nil
}

// ToggleFavourite flips the favourite flag and returns the new value.
func (s *Service) ToggleFavourite(ctx context.Context, imageID string) (bool, error) {
	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("load image: %w", err)
	}

	image.Favourite = !image.Favourite
	if err := s.images.Update(ctx, image); err != nil {
		return false, fmt.Errorf("update image metadata: %w", err)
	}

	return image.Favourite, nil
}

// ToggleArchive flips the archive flag and returns the new value.
func (s *Service) ToggleArchive(ctx context.Context, imageID string) (bool, error) {
	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return false, fmt.Errorf("load image: %w", err)
	}

	image.Archived = !image.Archived
	if err := s.images.Update(ctx, image); err != nil {
		return false, fmt.Errorf("update image metadata: %w", err)
	}

	return image.Archived, nil
}

// Delete removes the stored bytes best-effort, then deletes the metadata row.
// Metadata deletion is the source of truth for the image being gone; a failed
// blob removal is logged and never blocks it.
func (s *Service) Delete(ctx context.Context, imageID string) error {
	ctx, span := logging.StartSpan(ctx, "images.delete")
	defer span.End()

	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return fmt.Errorf("load image: %w", err)
	}

	if cleanup := s.removeBlob(ctx, image.FileRef); cleanup.Failed() {
		logging.FromContext(ctx).Warn("failed to delete image bytes",
			"ref", cleanup.Ref, "error", cleanup.Err)
	}

	if err := s.images.Delete(ctx, imageID); err != nil {
		return fmt.Errorf("delete image metadata: %w", err)
	}

	return nil
}

// FindByID returns the metadata for a single image.
func (s *Service) FindByID(ctx context.Context, imageID string) (models.Image, error) {
	return s.images.FindByID(ctx, imageID)
}

// Active returns the owner's images that are neither trashed nor archived.
func (s *Service) Active(ctx context.Context, ownerID string) ([]models.Image, error) {
	return s.images.ListActive(ctx, ownerID)
}

// Favourites returns the owner's favourite images outside trash and archive.
func (s *Service) Favourites(ctx context.Context, ownerID string) ([]models.Image, error) {
	return s.images.ListFavourites(ctx, ownerID)
}

// Archived returns the owner's archived images that are not in the trash.
func (s *Service) Archived(ctx context.Context, ownerID string) ([]models.Image, error) {
	return s.images.ListArchived(ctx, ownerID)
}

// Trashed returns the owner's trashed images regardless of other flags.
func (s *Service) Trashed(ctx context.Context, ownerID string) ([]models.Image, error) {
	return s.images.ListTrashed(ctx, ownerID)
}

// URL resolves the serving location for an image through the active backend.
func (s *Service) URL(image models.Image) string {
	return s.backend.URL(image.FileRef)
}

func (s *Service) removeBlob(ctx context.Context, ref string) CleanupResult {
	return CleanupResult{Ref: ref, Err: s.backend.Delete(ctx, ref)}
}
