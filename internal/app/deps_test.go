package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photon/backend/internal/config"
)

type fakePool struct{}

func (fakePool) Acquire(context.Context) (*pgxpool.Conn, error) {
	return nil, errors.New("not implemented")
}

func (fakePool) Close() {}

func baseConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Storage:         config.StorageLocal,
		LocalStore:      config.LocalStoreConfig{UploadDir: t.TempDir(), PublicPrefix: "/uploads"},
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		MaxUploadBytes:  1 << 20,
		AuthRateLimit:   config.RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 5, TTL: time.Minute},
		UploadRateLimit: config.RateLimitConfig{Requests: 10, Window: time.Minute, Burst: 5, TTL: time.Minute},
	}
}

func TestBuildDependenciesLocalStorage(t *testing.T) {
	deps, err := buildDependencies(context.Background(), fakePool{}, baseConfig(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deps.Users == nil {
		t.Fatal("expected user repository to be configured")
	}
	if deps.Sessions == nil {
		t.Fatal("expected session manager to be configured")
	}
	if deps.Resolver == nil {
		t.Fatal("expected token resolver to be configured")
	}
	if deps.Images == nil {
		t.Fatal("expected image service to be configured")
	}
	if deps.Pairs == nil {
		t.Fatal("expected pair service to be configured")
	}
	if deps.Shares == nil {
		t.Fatal("expected share service to be configured")
	}
	if deps.ResolveURL == nil {
		t.Fatal("expected url resolver to be configured")
	}
	if got := deps.ResolveURL("ref.jpg"); got != "/uploads/ref.jpg" {
		t.Fatalf("expected local url, got %q", got)
	}
}

func TestBuildDependenciesLocalStorageMissingDir(t *testing.T) {
	cfg := baseConfig(t)
	cfg.LocalStore.UploadDir = ""

	if _, err := buildDependencies(context.Background(), fakePool{}, cfg); err == nil {
		t.Fatal("expected error for missing upload dir")
	}
}

func TestBuildDependenciesS3Storage(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Storage = config.StorageS3
	cfg.ObjectStore = config.ObjectStoreConfig{
		Bucket:   "test-bucket",
		Region:   "us-east-1",
		Endpoint: "http://localhost:9000",
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")

	deps, err := buildDependencies(context.Background(), fakePool{}, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deps.ResolveURL == nil {
		t.Fatal("expected url resolver to be configured")
	}
}

func TestBuildDependenciesUnknownStorage(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Storage = "tape"

	if _, err := buildDependencies(context.Background(), fakePool{}, cfg); err == nil {
		t.Fatal("expected error for unknown storage backend")
	}
}
