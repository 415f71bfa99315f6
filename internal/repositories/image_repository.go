package repositories

import (
	"context"

	"github.com/photon/backend/internal/models"
)

// ImageRepository defines data access for image metadata.
type ImageRepository interface {
	Create(ctx context.Context, image models.Image) error
	FindByID(ctx context.Context, id string) (models.Image, error)
	Update(ctx context.Context, image models.Image) error
	Delete(ctx context.Context, id string) error

	// Owner-scoped views. Trash takes priority over the archive flag: a
	// trashed image never appears in the active, favourite, or archived view.
	ListActive(ctx context.Context, ownerID string) ([]models.Image, error)
	ListFavourites(ctx context.Context, ownerID string) ([]models.Image, error)
	ListArchived(ctx context.Context, ownerID string) ([]models.Image, error)
	ListTrashed(ctx context.Context, ownerID string) ([]models.Image, error)
}
