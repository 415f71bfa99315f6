package app

import (
	"context"
	"fmt"

	"github.com/photon/backend/internal/auth"
	"github.com/photon/backend/internal/config"
	"github.com/photon/backend/internal/db"
	"github.com/photon/backend/internal/handlers"
	"github.com/photon/backend/internal/images"
	"github.com/photon/backend/internal/middleware"
	"github.com/photon/backend/internal/pairs"
	"github.com/photon/backend/internal/repositories"
	"github.com/photon/backend/internal/shares"
	"github.com/photon/backend/internal/storage"
)

// buildDependencies wires together concrete implementations used by the HTTP
// handlers. The storage backend is selected here so nothing downstream knows
// which one is active.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config) (handlers.Dependencies, error) {
	backend, err := buildStorageBackend(ctx, cfg)
	if err != nil {
		return handlers.Dependencies{}, err
	}

	userRepo := repositories.NewPostgresUserRepository(pool)
	imageRepo := repositories.NewPostgresImageRepository(pool)
	pairRepo := repositories.NewPostgresPairRepository(pool)
	shareRepo := repositories.NewPostgresShareRepository(pool)
	sessionStore := repositories.NewPostgresSessionStore(pool)

	manager := auth.NewManager(cfg.AccessTokenTTL, cfg.RefreshTokenTTL, sessionStore)
	imageSvc := images.NewService(imageRepo, userRepo, backend)
	pairSvc := pairs.NewService(pairRepo, userRepo)
	shareSvc := shares.NewService(shareRepo, imageRepo, userRepo)

	return handlers.Dependencies{
		Users:          userRepo,
		Sessions:       manager,
		Resolver:       manager,
		Images:         imageSvc,
		Pairs:          pairSvc,
		Shares:         shareSvc,
		ResolveURL:     backend.URL,
		AuthLimiter:    middleware.NewIPRateLimiter(cfg.AuthRateLimit.Requests, cfg.AuthRateLimit.Window, cfg.AuthRateLimit.Burst, cfg.AuthRateLimit.TTL),
		UploadLimiter:  middleware.NewIPRateLimiter(cfg.UploadRateLimit.Requests, cfg.UploadRateLimit.Window, cfg.UploadRateLimit.Burst, cfg.UploadRateLimit.TTL),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, nil
}

func buildStorageBackend(ctx context.Context, cfg config.Config) (storage.Backend, error) {
	switch cfg.Storage {
	case config.StorageS3:
		backend, err := storage.NewS3Backend(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("configure s3 backend: %w", err)
		}
		return backend, nil
	case config.StorageLocal:
		backend, err := storage.NewLocalBackend(cfg.LocalStore)
		if err != nil {
			return nil, fmt.Errorf("configure local backend: %w", err)
		}
		return backend, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}
