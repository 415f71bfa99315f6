package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/photon/backend/internal/images"
	"github.com/photon/backend/internal/logging"
	"github.com/photon/backend/internal/pairs"
	"github.com/photon/backend/internal/repositories"
	"github.com/photon/backend/internal/shares"
)

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, err error) {
	respondJSON(ctx, w, statusForError(err), map[string]string{"error": messageForError(err)})
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shares.ErrNotOwner):
		return http.StatusForbidden
	case errors.Is(err, repositories.ErrConflict),
		errors.Is(err, pairs.ErrSelfRequest),
		errors.Is(err, shares.ErrSelfShare),
		errors.Is(err, pairs.ErrInvalidState):
		return http.StatusConflict
	case errors.Is(err, images.ErrStorage):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageForError(err error) string {
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return "not found"
	case errors.Is(err, shares.ErrNotOwner):
		return "image does not belong to you"
	case errors.Is(err, pairs.ErrSelfRequest):
		return "cannot send a friend request to yourself"
	case errors.Is(err, shares.ErrSelfShare):
		return "cannot share an image with yourself"
	case errors.Is(err, pairs.ErrInvalidState):
		return "operation does not match the current relationship state"
	case errors.Is(err, repositories.ErrConflict):
		return "already exists"
	case errors.Is(err, images.ErrStorage):
		return "storage backend failure"
	default:
		return "internal error"
	}
}

// currentUserID returns the authenticated caller placed in the context by the
// auth middleware. An empty id means the route was not wrapped.
func currentUserID(r *http.Request) string {
	return logging.UserIDFromContext(r.Context())
}

func decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logging.FromContext(ctx).Warn("invalid request payload", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}
