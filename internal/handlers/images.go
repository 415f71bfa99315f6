package handlers

import (
	"context"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/photon/backend/internal/images"
	"github.com/photon/backend/internal/logging"
	"github.com/photon/backend/internal/models"
)

// ImageHandler implements the image lifecycle endpoints. Every route requires
// an authenticated caller; ownership of the target image is enforced here so
// the service layer can stay id-based.
type ImageHandler struct {
	Images         ImageService
	Limiter        RateLimiter
	MaxUploadBytes int64
}

type imageResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Size      int64     `json:"size"`
	InTrash   bool      `json:"inTrash"`
	Favourite bool      `json:"favourite"`
	Archived  bool      `json:"archived"`
	CreatedAt time.Time `json:"createdAt"`
}

func (h ImageHandler) toResponse(image models.Image) imageResponse {
	return imageResponse{
		ID:        image.ID,
		Name:      image.Name,
		URL:       h.Images.URL(image),
		Size:      image.Size,
		InTrash:   image.InTrash,
		Favourite: image.Favourite,
		Archived:  image.Archived,
		CreatedAt: image.CreatedAt,
	}
}

func (h ImageHandler) toResponses(list []models.Image) []imageResponse {
	out := make([]imageResponse, 0, len(list))
	for _, image := range list {
		out = append(out, h.toResponse(image))
	}
	return out
}

// Collection handles GET (active view) and POST (upload) on /api/v1/images.
func (h ImageHandler) Collection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listView(w, r, h.Images.Active)
	case http.MethodPost:
		h.upload(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// Favourites handles GET /api/v1/images/favourites.
func (h ImageHandler) Favourites(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.listView(w, r, h.Images.Favourites)
}

// Archived handles GET /api/v1/images/archived.
func (h ImageHandler) Archived(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.listView(w, r, h.Images.Archived)
}

// Trashed handles GET /api/v1/images/trashed.
func (h ImageHandler) Trashed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	h.listView(w, r, h.Images.Trashed)
}

func (h ImageHandler) listView(w http.ResponseWriter, r *http.Request, view func(context.Context, string) ([]models.Image, error)) {
	ctx := r.Context()

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	list, err := view(ctx, userID)
	if err != nil {
		logging.FromContext(ctx).Error("image listing failed", "error", err, "userId", userID)
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.toResponses(list))
}

func (h ImageHandler) upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	if !allowRequest(h.Limiter, r, "upload") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many uploads, slow down"})
		return
	}

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	up := images.Upload{
		OriginalName: header.Filename,
		DisplayName:  r.FormValue("name"),
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Content:      file,
	}

	image, err := h.Images.Create(ctx, userID, up)
	if err != nil {
		logger.Error("image upload failed", "error", err, "userId", userID)
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, h.toResponse(image))
}

// Replace handles POST /api/v1/images/replace with a multipart body carrying
// the image id and the new file.
func (h ImageHandler) Replace(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	logger := logging.FromContext(ctx)

	userID := currentUserID(r)
	if userID == "" {
		respondJSON(ctx, w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
		return
	}

	if !allowRequest(h.Limiter, r, "upload") {
		respondJSON(ctx, w, http.StatusTooManyRequests, map[string]string{"error": "too many uploads, slow down"})
		return
	}

	file, header, ok := h.formFile(w, r)
	if !ok {
		return
	}
	defer file.Close()

	imageID := r.FormValue("imageId")
	if _, ok := h.ownedImage(w, r, imageID, userID); !ok {
		return
	}

	up := images.Upload{
		OriginalName: header.Filename,
		ContentType:  header.Header.Get("Content-Type"),
		Size:         header.Size,
		Content:      file,
	}

	image, err := h.Images.Replace(ctx, imageID, up)
	if err != nil {
		logger.Error("image replace failed", "error", err, "imageId", imageID)
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.toResponse(image))
}

// Rename handles POST /api/v1/images/rename.
func (h ImageHandler) Rename(w http.ResponseWriter, r *http.Request) {
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
		Name    string `json:"name"`
	}
	if !decodeJSON(ctx, w, r, &req) {
		return
	}

	if _, ok := h.ownedImage(w, r, req.ImageID, userID); !ok {
		return
	}

	image, err := h.Images.Rename(ctx, req.ImageID, req.Name)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, h.toResponse(image))
}

// ToggleTrash handles POST /api/v1/images/trash and reports the new flag.
func (h ImageHandler) ToggleTrash(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Images.ToggleTrash, "inTrash")
}

// ToggleFavourite handles POST /api/v1/images/favourite and reports the new flag.
func (h ImageHandler) ToggleFavourite(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Images.ToggleFavourite, "favourite")
}

// ToggleArchive handles POST /api/v1/images/archive and reports the new flag.
func (h ImageHandler) ToggleArchive(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Images.ToggleArchive, "archived")
}

func (h ImageHandler) toggle(w http.ResponseWriter, r *http.Request, op func(context.Context, string) (bool, error), field string) {
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
	}
	if !decodeJSON(ctx, w, r, &req) {
		return
	}

	if _, ok := h.ownedImage(w, r, req.ImageID, userID); !ok {
		return
	}

	value, err := op(ctx, req.ImageID)
	if err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]bool{field: value})
}

// Delete handles POST /api/v1/images/delete.
func (h ImageHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	}
	if !decodeJSON(ctx, w, r, &req) {
		return
	}

	if _, ok := h.ownedImage(w, r, req.ImageID, userID); !ok {
		return
	}

	if err := h.Images.Delete(ctx, req.ImageID); err != nil {
		respondError(ctx, w, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"status": "deleted"})
}

// URL handles GET /api/v1/images/url?id=<imageId>.
func (h ImageHandler) URL(w http.ResponseWriter, r *http.Request) {
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

	image, ok := h.ownedImage(w, r, r.URL.Query().Get("id"), userID)
	if !ok {
		return
	}

	respondJSON(ctx, w, http.StatusOK, map[string]string{"url": h.Images.URL(image)})
}

// formFile extracts the uploaded file, bounding the request body first.
func (h ImageHandler) formFile(w http.ResponseWriter, r *http.Request) (multipart.File, *multipart.FileHeader, bool) {
	ctx := r.Context()

	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		logging.FromContext(ctx).Warn("invalid upload form", "error", err)
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "a file field is required"})
		return nil, nil, false
	}
	return file, header, true
}

// ownedImage loads the target image and rejects callers that do not own it.
func (h ImageHandler) ownedImage(w http.ResponseWriter, r *http.Request, imageID, userID string) (models.Image, bool) {
	ctx := r.Context()

	if imageID == "" {
		respondJSON(ctx, w, http.StatusBadRequest, map[string]string{"error": "imageId is required"})
		return models.Image{}, false
	}

	image, err := h.Images.FindByID(ctx, imageID)
	if err != nil {
		respondError(ctx, w, err)
		return models.Image{}, false
	}

	if image.OwnerID != userID {
		respondJSON(ctx, w, http.StatusForbidden, map[string]string{"error": "image does not belong to you"})
		return models.Image{}, false
	}

	return image, true
}
