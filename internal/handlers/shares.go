package handlers

import (
	"net/http"
	"time"

	"github.com/photon/backend/internal/logging"
)

// ShareHandler implements the per-image viewer grant endpoints. ResolveURL
// maps a stored file reference to its serving location through the active
// storage backend.
type ShareHandler struct {
	Shares     ShareService
	ResolveURL func(ref string) string
}

type sharedImageResponse struct {
	ImageID    string    `json:"imageId"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	CreatedAt  time.Time `json:"createdAt"`
	OwnerID    string    `json:"ownerId"`
	OwnerEmail string    `json:"ownerEmail"`
}

type shareRequest struct {
	ImageID  string `json:"imageId"`
	ViewerID string `json:"viewerId"`
}

// Collection handles GET (images shared with the caller) and POST (grant a
// viewer access) on /api/v1/shares.
func (h ShareHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.list(w, r)
	case http.MethodPost:
		h.share(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h ShareHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	shared, err := h.Shares.SharedWithMe(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("listing shared images failed", "error", err, "userId", userID)
		respondError(ctx, w, err)
		return
	}

	out := make([]sharedImageResponse, 0, len(shared))
	for _, s := range shared {
		url := s.FileRef
		if h.ResolveURL != nil {
			url = h.ResolveURL(s.FileRef)
		}
		out = append(out, sharedImageResponse{
			ImageID:    s.ImageID,
			Name:       s.Name,
			URL:        url,
			CreatedAt:  s.CreatedAt,
			OwnerID:    s.OwnerID,
			OwnerEmail: s.OwnerEmail,
		})
	}

	respondJSON(ctx, w, http.StatusOK, out)
}

// share grants a viewer access to one of the caller's images. The response
// echoes the viewer's email.
func (h ShareHandler) share(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	req, ok := h.decodeShare(w, r)
	if !ok {
		return
	}

	email, err := h.Shares.Share(ctx, userID, req.ViewerID, req.ImageID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]string{"viewerEmail": email})
}

// Unshare handles POST /api/v1/shares/unshare, revoking a grant the caller
// issued as owner.
func (h ShareHandler) Unshare(w http.ResponseWriter, r *http.Request) {
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

	req, ok := h.decodeShare(w, r)
	if !ok {
		return
	}

	email, err := h.Shares.Unshare(ctx, userID, req.ViewerID, req.ImageID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"viewerEmail": email})
}

// Remove handles POST /api/v1/shares/remove. It is the viewer's side of the
// relationship: the caller drops an image someone shared with them.
func (h ShareHandler) Remove(w http.ResponseWriter, r *http.Request) {
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

	var req struct {
		ImageID string `json:"imageId"`
		OwnerID string `json:"ownerId"`
	}
	if !decodeJSON(ctx, w, r, &req) {
		return
	}
	if req.ImageID == "" || req.OwnerID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "imageId and ownerId are required"})
		return
	}

	if err := h.Shares.Remove(ctx, userID, req.OwnerID, req.ImageID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "removed"})
}

// Check handles GET /api/v1/shares/check?imageId=<id>&viewerId=<id>. An empty
// shareId means no grant exists; that is not an error.
func (h ShareHandler) Check(w http.ResponseWriter, r *http.Request) {
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

	imageID := r.URL.Query().Get("imageId")
	viewerID := r.URL.Query().Get("viewerId")
	if imageID == "" || viewerID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "imageId and viewerId are required"})
		return
	}

	shareID, err := h.Shares.Check(ctx, userID, viewerID, imageID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"shareId": shareID})
}

func (h ShareHandler) decodeShare(w http.ResponseWriter, r *http.Request) (shareRequest, bool) {
	ctx := r.Context()

	var req shareRequest
	if !decodeJSON(ctx, w, r, &req) {
		return shareRequest{}, false
	}
	if req.ImageID == "" || req.ViewerID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "imageId and viewerId are required"})
		return shareRequest{}, false
	}
	return req, true
}
