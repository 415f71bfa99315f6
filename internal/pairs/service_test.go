package pairs

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/photon/backend/internal/models"
	"github.com/photon/backend/internal/repositories"
)

type fakePairRepo struct {
	pairs map[string]models.Pair
	users map[string]models.User
}

func newFakePairRepo(users map[string]models.User) *fakePairRepo {
	return &fakePairRepo{pairs: make(map[string]models.Pair), users: users}
}

func (r *fakePairRepo) Create(_ context.Context, pair models.Pair) error {
	for _, existing := range r.pairs {
		if samePair(existing, pair.Requester, pair.Receiver) {
			return repositories.ErrConflict
		}
	}
	r.pairs[pair.ID] = pair
	return nil
}

func (r *fakePairRepo) FindBetween(_ context.Context, aID, bID string) (models.Pair, error) {
	for _, pair := range r.pairs {
		if samePair(pair, aID, bID) {
			return pair, nil
		}
	}
	return models.Pair{}, repositories.ErrNotFound
}

func (r *fakePairRepo) UpdateStatus(_ context.Context, pairID, status string) error {
	pair, ok := r.pairs[pairID]
	if !ok {
		return repositories.ErrNotFound
	}
	pair.Status = status
	r.pairs[pairID] = pair
	return nil
}

func (r *fakePairRepo) Delete(_ context.Context, pairID string) error {
	if _, ok := r.pairs[pairID]; !ok {
		return repositories.ErrNotFound
	}
	delete(r.pairs, pairID)
	return nil
}

func (r *fakePairRepo) ListFriends(_ context.Context, userID string) ([]models.User, error) {
	var out []models.User
	for _, pair := range r.pairs {
		if pair.Status != models.PairStatusAccepted {
			continue
		}
		switch userID {
		case pair.Requester:
			out = append(out, r.users[pair.Receiver])
		case pair.Receiver:
			out = append(out, r.users[pair.Requester])
		}
	}
	return out, nil
}

func (r *fakePairRepo) ListIncoming(_ context.Context, userID string) ([]models.User, error) {
	var out []models.User
	for _, pair := range r.pairs {
		if pair.Status == models.PairStatusPending && pair.Receiver == userID {
			out = append(out, r.users[pair.Requester])
		}
	}
	return out, nil
}

func (r *fakePairRepo) ListSentTargetIDs(_ context.Context, userID string) ([]string, error) {
	var out []string
	for _, pair := range r.pairs {
		if pair.Status == models.PairStatusPending && pair.Requester == userID {
			out = append(out, pair.Receiver)
		}
	}
	return out, nil
}

func (r *fakePairRepo) ListAvailableUsers(_ context.Context, userID string) ([]models.User, error) {
	var out []models.User
	for id, user := range r.users {
		if id == userID {
			continue
		}
		if _, err := r.FindBetween(context.Background(), userID, id); err == nil {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func samePair(pair models.Pair, aID, bID string) bool {
	return (pair.Requester == aID && pair.Receiver == bID) ||
		(pair.Requester == bID && pair.Receiver == aID)
}

type fakeUserFinder struct {
	users map[string]models.User
}

func (f *fakeUserFinder) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func newTestService() (*Service, *fakePairRepo) {
	users := map[string]models.User{
		"user-1": {ID: "user-1", Email: "one@example.com"},
		"user-2": {ID: "user-2", Email: "two@example.com"},
		"user-3": {ID: "user-3", Email: "three@example.com"},
	}
	repo := newFakePairRepo(users)
	return NewService(repo, &fakeUserFinder{users: users}), repo
}

func TestSendRequestValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SendRequest(ctx, "user-1", "user-1"); !errors.Is(err, ErrSelfRequest) {
		t.Fatalf("expected ErrSelfRequest, got %v", err)
	}
	if _, err := svc.SendRequest(ctx, "ghost", "user-2"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown requester, got %v", err)
	}
	if _, err := svc.SendRequest(ctx, "user-1", "ghost"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown receiver, got %v", err)
	}
}

func TestSendRequestRejectsEitherDirectionDuplicate(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("first request: %v", err)
	}

	if _, err := svc.SendRequest(ctx, "user-2", "user-1"); !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected ErrConflict for reverse request, got %v", err)
	}
	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected ErrConflict for repeated request, got %v", err)
	}
}

func TestRequestLifecycleToFriendship(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	incoming, err := svc.IncomingRequests(ctx, "user-2")
	if err != nil {
		t.Fatalf("incoming: %v", err)
	}
	if len(incoming) != 1 || incoming[0].ID != "user-1" {
		t.Fatalf("expected incoming request from user-1, got %+v", incoming)
	}

	sent, err := svc.SentRequestIDs(ctx, "user-1")
	if err != nil {
		t.Fatalf("sent ids: %v", err)
	}
	if len(sent) != 1 || sent[0] != "user-2" {
		t.Fatalf("expected sent request to user-2, got %v", sent)
	}

	pair, err := svc.AcceptRequest(ctx, "user-2", "user-1")
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if pair.Status != models.PairStatusAccepted {
		t.Fatalf("expected accepted status, got %q", pair.Status)
	}

	for _, userID := range []string{"user-1", "user-2"} {
		friends, err := svc.Friends(ctx, userID)
		if err != nil {
			t.Fatalf("friends of %s: %v", userID, err)
		}
		if len(friends) != 1 {
			t.Fatalf("expected one friend for %s, got %d", userID, len(friends))
		}
	}

	available, err := svc.AvailableUsers(ctx, "user-1")
	if err != nil {
		t.Fatalf("available: %v", err)
	}
	for _, user := range available {
		if user.ID == "user-2" {
			t.Fatal("expected friend to be excluded from available users")
		}
	}
	if len(available) != 1 || available[0].ID != "user-3" {
		t.Fatalf("expected only user-3 available, got %+v", available)
	}
}

func TestAcceptRequiresPendingAimedAtCaller(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.AcceptRequest(ctx, "user-2", "user-1"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without a request, got %v", err)
	}

	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	// The requester cannot accept their own request.
	if _, err := svc.AcceptRequest(ctx, "user-1", "user-2"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for wrong direction, got %v", err)
	}

	if _, err := svc.AcceptRequest(ctx, "user-2", "user-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Accepting twice finds an already accepted record.
	if _, err := svc.AcceptRequest(ctx, "user-2", "user-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for accepted record, got %v", err)
	}
}

func TestRejectAndWithdrawDeleteTheRecord(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("send request: %v", err)
	}
	if err := svc.RejectRequest(ctx, "user-2", "user-1"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if len(repo.pairs) != 0 {
		t.Fatal("expected record to be deleted after rejection")
	}

	// The pair is free again after rejection.
	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("resend after rejection: %v", err)
	}
	if err := svc.WithdrawRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if len(repo.pairs) != 0 {
		t.Fatal("expected record to be deleted after withdrawal")
	}

	// Only the requester may withdraw; only the recipient may reject.
	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if err := svc.WithdrawRequest(ctx, "user-2", "user-1"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for recipient withdrawal, got %v", err)
	}
	if err := svc.RejectRequest(ctx, "user-1", "user-2"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for requester rejection, got %v", err)
	}
}

func TestRemoveFriend(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.SendRequest(ctx, "user-1", "user-2"); err != nil {
		t.Fatalf("send request: %v", err)
	}

	if err := svc.RemoveFriend(ctx, "user-1", "user-2"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for pending pair, got %v", err)
	}

	if _, err := svc.AcceptRequest(ctx, "user-2", "user-1"); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Either side may dissolve the friendship.
	if err := svc.RemoveFriend(ctx, "user-2", "user-1"); err != nil {
		t.Fatalf("remove friend: %v", err)
	}
	if len(repo.pairs) != 0 {
		t.Fatal("expected record to be deleted after unfriending")
	}

	if err := svc.RemoveFriend(ctx, "user-1", "user-2"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}
