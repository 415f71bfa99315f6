package handlers

import (
	"net/http"

	"github.com/photon/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users    UserStore
	Sessions SessionManager
	Resolver middleware.TokenResolver

	Images ImageService
	Pairs  PairService
	Shares ShareService

	// ResolveURL maps a stored file reference to its public location.
	ResolveURL func(ref string) string

	AuthLimiter    RateLimiter
	UploadLimiter  RateLimiter
	MaxUploadBytes int64
}

// RegisterRoutes wires HTTP handlers into the provided ServeMux. Everything
// under /api/v1 except the auth endpoints requires a bearer token.
func RegisterRoutes(mux *http.ServeMux, deps Dependencies) {
	health := HealthHandler{}
	auth := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Limiter: deps.AuthLimiter}
	images := ImageHandler{Images: deps.Images, Limiter: deps.UploadLimiter, MaxUploadBytes: deps.MaxUploadBytes}
	pairs := PairHandler{Pairs: deps.Pairs}
	shares := ShareHandler{Shares: deps.Shares, ResolveURL: deps.ResolveURL}

	mux.HandleFunc("/healthz", health.Handle)
	mux.HandleFunc("/api/v1/auth/login", auth.Login)
	mux.HandleFunc("/api/v1/auth/signup", auth.SignUp)
	mux.HandleFunc("/api/v1/auth/refresh", auth.Refresh)
	mux.HandleFunc("/api/v1/auth/password-reset", auth.RequestPasswordReset)

	requireUser := middleware.RequireUser(deps.Resolver)
	protected := func(h http.HandlerFunc) http.Handler {
		return requireUser(h)
	}

	mux.Handle("/api/v1/images", protected(images.Collection))
	mux.Handle("/api/v1/images/favourites", protected(images.Favourites))
	mux.Handle("/api/v1/images/archived", protected(images.Archived))
	mux.Handle("/api/v1/images/trashed", protected(images.Trashed))
	mux.Handle("/api/v1/images/rename", protected(images.Rename))
	mux.Handle("/api/v1/images/replace", protected(images.Replace))
	mux.Handle("/api/v1/images/trash", protected(images.ToggleTrash))
	mux.Handle("/api/v1/images/favourite", protected(images.ToggleFavourite))
	mux.Handle("/api/v1/images/archive", protected(images.ToggleArchive))
	mux.Handle("/api/v1/images/delete", protected(images.Delete))
	mux.Handle("/api/v1/images/url", protected(images.URL))

	mux.Handle("/api/v1/pairs/users", protected(pairs.AvailableUsers))
	mux.Handle("/api/v1/pairs/friends", protected(pairs.Friends))
	mux.Handle("/api/v1/pairs/requests", protected(pairs.IncomingRequests))
	mux.Handle("/api/v1/pairs/requests/sent", protected(pairs.SentRequests))
	mux.Handle("/api/v1/pairs/request", protected(pairs.Send))
	mux.Handle("/api/v1/pairs/accept", protected(pairs.Accept))
	mux.Handle("/api/v1/pairs/reject", protected(pairs.Reject))
	mux.Handle("/api/v1/pairs/withdraw", protected(pairs.Withdraw))
	mux.Handle("/api/v1/pairs/remove", protected(pairs.Remove))

	mux.Handle("/api/v1/shares", protected(shares.Collection))
	mux.Handle("/api/v1/shares/unshare", protected(shares.Unshare))
	mux.Handle("/api/v1/shares/remove", protected(shares.Remove))
	mux.Handle("/api/v1/shares/check", protected(shares.Check))
}
