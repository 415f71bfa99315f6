package repositories

import (
	"context"

	"github.com/photon/backend/internal/models"
)

// ShareRepository defines data access for per-image share grants. The backing
// store guarantees at most one grant per (image, owner, viewer) triple.
type ShareRepository interface {
	Create(ctx context.Context, share models.Share) error
	Find(ctx context.Context, imageID, ownerID, viewerID string) (models.Share, error)
	Delete(ctx context.Context, imageID, ownerID, viewerID string) error
	ListForViewer(ctx context.Context, viewerID string) ([]models.SharedImage, error)
}
