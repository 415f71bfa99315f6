package pairs

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
	// ErrSelfRequest indicates a user tried to pair with themselves.
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")
	// ErrInvalidState indicates the pairing is not in a state that permits
	// the attempted transition.
	ErrInvalidState = errors.New("pairing is not in the expected state")
)

// UserFinder resolves user identifiers to accounts.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// Service drives the friend-request workflow between two users. Each
// unordered pair holds at most one record, moving from pending to accepted;
// rejection, withdrawal, and unfriending delete the record outright.
type Service struct {
	pairs repositories.PairRepository
	users UserFinder

	// NowFunc stamps request creation times and is overridable in tests.
	NowFunc func() time.Time
}

// NewService constructs the pairing service.
func NewService(pairs repositories.PairRepository, users UserFinder) *Service {
	return &Service{
		pairs:   pairs,
		users:   users,
		NowFunc: time.Now,
	}
}

// SendRequest creates a pending request from fromID to toID. It fails when
// the two ids match, when either user does not exist, or when any record
// already exists between the pair in either direction.
func (s *Service) SendRequest(ctx context.Context, fromID, toID string) (models.Pair, error) {
	if fromID == toID {
		return models.Pair{}, ErrSelfRequest
	}

	if _, err := s.users.FindByID(ctx, fromID); err != nil {
		return models.Pair{}, fmt.Errorf("resolve requester: %w", err)
	}
	if _, err := s.users.FindByID(ctx, toID); err != nil {
		return models.Pair{}, fmt.Errorf("resolve receiver: %w", err)
	}

	pair := models.Pair{
		ID:        uuid.NewString(),
		Requester: fromID,
		Receiver:  toID,
		Status:    models.PairStatusPending,
		CreatedAt: s.NowFunc().UTC(),
	}

	// The unordered-pair unique index is the arbiter here: a concurrent
	// request in either direction surfaces as ErrConflict.
	if err := s.pairs.Create(ctx, pair); err != nil {
		return models.Pair{}, fmt.Errorf("create pair: %w", err)
	}

	return pair, nil
}

// AcceptRequest transitions a pending request aimed at byID into a friendship.
func (s *Service) AcceptRequest(ctx context.Context, byID, requesterID string) (models.Pair, error) {
	pair, err := s.pairs.FindBetween(ctx, byID, requesterID)
	if err != nil {
		return models.Pair{}, fmt.Errorf("load pair: %w", err)
	}

	if pair.Status != models.PairStatusPending || pair.Requester != requesterID || pair.Receiver != byID {
		return models.Pair{}, ErrInvalidState
	}

	if err := s.pairs.UpdateStatus(ctx, pair.ID, models.PairStatusAccepted); err != nil {
		return models.Pair{}, fmt.Errorf("accept pair: %w", err)
	}

	pair.Status = models.PairStatusAccepted
	return pair, nil
}

// RejectRequest lets the recipient delete a pending request aimed at them.
func (s *Service) RejectRequest(ctx context.Context, byID, requesterID string) error {
	pair, err := s.pairs.FindBetween(ctx, byID, requesterID)
	if err != nil {
		return fmt.Errorf("load pair: %w", err)
	}

	if pair.Status != models.PairStatusPending || pair.Requester != requesterID || pair.Receiver != byID {
		return ErrInvalidState
	}

	if err := s.pairs.Delete(ctx, pair.ID); err != nil {
		return fmt.Errorf("delete pair: %w", err)
	}

	return nil
}

// WithdrawRequest lets the requester delete their own pending request.
func (s *Service) WithdrawRequest(ctx context.Context, byID, targetID string) error {
	pair, err := s.pairs.FindBetween(ctx, byID, targetID)
	if err != nil {
		return fmt.Errorf("load pair: %w", err)
	}

	if pair.Status != models.PairStatusPending || pair.Requester != byID || pair.Receiver != targetID {
		return ErrInvalidState
	}

	if err := s.pairs.Delete(ctx, pair.ID); err != nil {
		return fmt.Errorf("delete pair: %w", err)
	}

	return nil
}

// RemoveFriend dissolves an accepted pairing; either side may initiate it.
func (s *Service) RemoveFriend(ctx context.Context, aID, bID string) error {
	pair, err := s.pairs.FindBetween(ctx, aID, bID)
	if err != nil {
		return fmt.Errorf("load pair: %w", err)
	}

	if pair.Status != models.PairStatusAccepted {
		return ErrInvalidState
	}

	if err := s.pairs.Delete(ctx, pair.ID); err != nil {
		return fmt.Errorf("delete pair: %w", err)
	}

	return nil
}

// AvailableUsers returns users the caller can still send a request to:
// everyone except themselves, their friends, and anyone with an outstanding
// request in either direction.
func (s *Service) AvailableUsers(ctx context.Context, userID string) ([]models.User, error) {
	return s.pairs.ListAvailableUsers(ctx, userID)
}

// Friends returns the users on the far side of accepted pairings.
func (s *Service) Friends(ctx context.Context, userID string) ([]models.User, error) {
	return s.pairs.ListFriends(ctx, userID)
}

// IncomingRequests returns users with a pending request aimed at the caller.
func (s *Service) IncomingRequests(ctx context.Context, userID string) ([]models.User, error) {
	return s.pairs.ListIncoming(ctx, userID)
}

// SentRequestIDs returns the ids of users the caller has pending requests to.
func (s *Service) SentRequestIDs(ctx context.Context, userID string) ([]string, error) {
	return s.pairs.ListSentTargetIDs(ctx, userID)
}
