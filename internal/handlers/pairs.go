package handlers

import (
	"context"
	"net/http"

	"github.com/photon/backend/internal/logging"
	"github.com/photon/backend/internal/models"
)

// PairHandler implements the friend request endpoints. The authenticated
// caller is always one side of the pair; the request body names the other.
type PairHandler struct {
	Pairs PairService
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func toUserResponses(users []models.User) []userResponse {
	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, userResponse{ID: user.ID, Email: user.Email})
	}
	return out
}

type pairRequest struct {
	UserID string `json:"userId"`
}

// AvailableUsers handles GET /api/v1/pairs/users, listing accounts the caller
// has no relationship with yet.
func (h PairHandler) AvailableUsers(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.Pairs.AvailableUsers)
}

// Friends handles GET /api/v1/pairs/friends.
func (h PairHandler) Friends(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.Pairs.Friends)
}

// IncomingRequests handles GET /api/v1/pairs/requests, listing the users whose
// pending requests await the caller's answer.
func (h PairHandler) IncomingRequests(w http.ResponseWriter, r *http.Request) {
	h.listUsers(w, r, h.Pairs.IncomingRequests)
}

// SentRequests handles GET /api/v1/pairs/requests/sent, returning the ids of
// users the caller has pending requests toward.
func (h PairHandler) SentRequests(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	ids, err := h.Pairs.SentRequestIDs(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("listing sent requests failed", "error", err, "userId", userID)
		respondError(ctx, w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	respondJSON(ctx, w, http.StatusOK, map[string][]string{"userIds": ids})
}

// Send handles POST /api/v1/pairs/request.
func (h PairHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req pairRequest
	if !decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	pair, err := h.Pairs.SendRequest(ctx, userID, req.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"status": pair.Status})
}

// Accept handles POST /api/v1/pairs/accept; the body names the requester.
func (h PairHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req pairRequest
	if !decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	pair, err := h.Pairs.AcceptRequest(ctx, userID, req.UserID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": pair.Status})
}

// Reject handles POST /api/v1/pairs/reject; the body names the requester.
func (h PairHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.mutatePair(w, r, h.Pairs.RejectRequest, "rejected")
}

// Withdraw handles POST /api/v1/pairs/withdraw; the body names the target of
// the caller's own pending request.
func (h PairHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.mutatePair(w, r, h.Pairs.WithdrawRequest, "withdrawn")
}

// Remove handles POST /api/v1/pairs/remove, dissolving an accepted friendship.
func (h PairHandler) Remove(w http.ResponseWriter, r *http.Request) {
	h.mutatePair(w, r, h.Pairs.RemoveFriend, "removed")
}

func (h PairHandler) listUsers(w http.ResponseWriter, r *http.Request, list func(context.Context, string) ([]models.User, error)) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	users, err := list(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("listing users failed", "error", err, "userId", userID)
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, toUserResponses(users))
}

func (h PairHandler) mutatePair(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error, status string) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	var req pairRequest
	if !decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.UserID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}

	if err := op(ctx, userID, req.UserID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": status})
}
