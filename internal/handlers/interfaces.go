package handlers

import (
	"context"

	"github.com/photon/backend/internal/images"
	"github.com/photon/backend/internal/models"
)

// UserStore captures the persistence operations required by the auth handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
}

// SessionManager issues and refreshes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
}

// ImageService captures the image lifecycle operations exposed over HTTP.
type ImageService interface {
	Create(ctx context.Context, ownerID string, up images.Upload) (models.Image, error)
	Replace(ctx context.Context, imageID string, up images.Upload) (models.Image, error)
	Rename(ctx context.Context, imageID, name string) (models.Image, error)
	ToggleTrash(ctx context.Context, imageID string) (bool, error)
	ToggleFavourite(ctx context.Context, imageID string) (bool, error)
	ToggleArchive(ctx context.Context, imageID string) (bool, error)
	Delete(ctx context.Context, imageID string) error
	FindByID(ctx context.Context, imageID string) (models.Image, error)
	Active(ctx context.Context, ownerID string) ([]models.Image, error)
	Favourites(ctx context.Context, ownerID string) ([]models.Image, error)
	Archived(ctx context.Context, ownerID string) ([]models.Image, error)
	Trashed(ctx context.Context, ownerID string) ([]models.Image, error)
	URL(image models.Image) string
}

// PairService captures the friend request state machine exposed over HTTP.
type PairService interface {
	SendRequest(ctx context.Context, fromID, toID string) (models.Pair, error)
	AcceptRequest(ctx context.Context, byID, requesterID string) (models.Pair, error)
	RejectRequest(ctx context.Context, byID, requesterID string) error
	WithdrawRequest(ctx context.Context, byID, targetID string) error
	RemoveFriend(ctx context.Context, aID, bID string) error
	AvailableUsers(ctx context.Context, userID string) ([]models.User, error)
	Friends(ctx context.Context, userID string) ([]models.User, error)
	IncomingRequests(ctx context.Context, userID string) ([]models.User, error)
	SentRequestIDs(ctx context.Context, userID string) ([]string, error)
}

// ShareService captures the per-image viewer grant operations exposed over HTTP.
type ShareService interface {
	Share(ctx context.Context, ownerID, viewerID, imageID string) (string, error)
	Unshare(ctx context.Context, ownerID, viewerID, imageID string) (string, error)
	Remove(ctx context.Context, viewerID, ownerID, imageID string) error
	Check(ctx context.Context, ownerID, viewerID, imageID string) (string, error)
	SharedWithMe(ctx context.Context, viewerID string) ([]models.SharedImage, error)
}
