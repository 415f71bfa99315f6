package repositories

import (
	"context"

	"github.com/photon/backend/internal/models"
)

// PairRepository defines data access for friend pairings. The backing store
// guarantees at most one record per unordered user pair.
type PairRepository interface {
	Create(ctx context.Context, pair models.Pair) error
	// FindBetween returns the record for the unordered pair {aID, bID}
	// regardless of which side requested it.
	FindBetween(ctx context.Context, aID, bID string) (models.Pair, error)
	UpdateStatus(ctx context.Context, pairID, status string) error
	Delete(ctx context.Context, pairID string) error

	ListFriends(ctx context.Context, userID string) ([]models.User, error)
	ListIncoming(ctx context.Context, userID string) ([]models.User, error)
	ListSentTargetIDs(ctx context.Context, userID string) ([]string, error)
	// ListAvailableUsers returns all users excluding the caller and anyone
	// the caller already has a record with, in either direction or state.
	ListAvailableUsers(ctx context.Context, userID string) ([]models.User, error)
}
