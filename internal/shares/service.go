package shares

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/photon/backend/internal/models"
	"github.com/photon/backend/internal/repositories"
)

var (
	// ErrNotOwner indicates the acting user does not own the image they are
	// trying to share.
	ErrNotOwner = errors.New("image does not belong to the sharing user")
	// ErrSelfShare indicates a user tried to share an image with themselves.
	ErrSelfShare = errors.New("cannot share an image with yourself")
)

// ImageFinder resolves image identifiers to metadata.
type ImageFinder interface {
	FindByID(ctx context.Context, id string) (models.Image, error)
}

// UserFinder resolves user identifiers to accounts.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Service manages per-image access grants from an owner to a viewer. Grants
// are independent of friendship state between the two users.
type Service struct {
	shares repositories.ShareRepository
	images ImageFinder
	users  UserFinder

	// NowFunc stamps grant creation times and is overridable in tests.
	NowFunc func() time.Time
}

// NewService constructs the sharing service.
func NewService(shares repositories.ShareRepository, images ImageFinder, users UserFinder) *Service {
	return &Service{
		shares:  shares,
		images:  images,
		users:   users,
		NowFunc: time.Now,
	}
}

// Share grants viewerID standing access to one of ownerID's images and
// returns the viewer's email for confirmation display. Duplicate grants for
// the same (image, owner, viewer) triple are rejected.
func (s *Service) Share(ctx context.Context, ownerID, viewerID, imageID string) (string, error) {
	if ownerID == viewerID {
		return "", ErrSelfShare
	}

	image, err := s.images.FindByID(ctx, imageID)
	if err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}
	if image.OwnerID != ownerID {
		return "", ErrNotOwner
	}

	viewer, err := s.users.FindByID(ctx, viewerID)
	if err != nil {
		return "", fmt.Errorf("resolve viewer: %w", err)
	}

	share := models.Share{
		ID:        uuid.NewString(),
		ImageID:   imageID,
		OwnerID:   ownerID,
		ViewerID:  viewerID,
		CreatedAt: s.NowFunc().UTC(),
	}

	if err := s.shares.Create(ctx, share); err != nil {
		return "", fmt.Errorf("create share: %w", err)
	}

	return viewer.Email, nil
}

// Unshare revokes a grant the owner previously issued and returns the
// viewer's email for confirmation display.
func (s *Service) Unshare(ctx context.Context, ownerID, viewerID, imageID string) (string, error) {
	viewer, err := s.users.FindByID(ctx, viewerID)
	if err != nil {
		return "", fmt.Errorf("resolve viewer: %w", err)
	}

	if err := s.shares.Delete(ctx, imageID, ownerID, viewerID); err != nil {
		return "", fmt.Errorf("delete share: %w", err)
	}

	return viewer.Email, nil
}

// Remove lets a viewer drop a grant pointed at them.
func (s *Service) Remove(ctx context.Context, viewerID, ownerID, imageID string) error {
	if err := s.shares.Delete(ctx, imageID, ownerID, viewerID); err != nil {
		return fmt.Errorf("delete share: %w", err)
	}
	return nil
}

// Check reports whether the exact (image, owner, viewer) grant exists,
// returning its id or the empty string. Absence is not an error.
func (s *Service) Check(ctx context.Context, ownerID, viewerID, imageID string) (string, error) {
	share, err := s.shares.Find(ctx, imageID, ownerID, viewerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("find share: %w", err)
	}
	return share.ID, nil
}

// SharedWithMe returns every image shared with the viewer, each joined with
// its current metadata snapshot and the owner's contact details.
func (s *Service) SharedWithMe(ctx context.Context, viewerID string) ([]models.SharedImage, error) {
	return s.shares.ListForViewer(ctx, viewerID)
}
