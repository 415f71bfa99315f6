package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/cockroach-go/v2/testserver"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/photon/backend/internal/auth"
	"github.com/photon/backend/internal/models"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	server, err := testserver.NewTestServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "start cockroach test server: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, server.PGURL().String())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to cockroach test server: %v\n", err)
		server.Stop()
		os.Exit(1)
	}

	if err := applyMigrations(ctx, pool); err != nil {
		fmt.Fprintf(os.Stderr, "apply migrations: %v\n", err)
		pool.Close()
		server.Stop()
		os.Exit(1)
	}

	testPool = pool

	code := m.Run()

	pool.Close()
	server.Stop()

	os.Exit(code)
}

func TestPostgresUserRepository_CreateFindAndUpdate(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	repo := NewPostgresUserRepository(testPool)

	user := models.User{
		ID:        uuid.NewString(),
		Email:     "alice@example.com",
		Password:  "secret-hash",
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	dup := models.User{
		ID:        uuid.NewString(),
		Email:     user.Email,
		Password:  "another-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict when creating duplicate email, got %v", err)
	}

	fetched, err := repo.FindByEmail(ctx, user.Email)
	if err != nil {
		t.Fatalf("find by email: %v", err)
	}

	if fetched.ID != user.ID || fetched.Email != user.Email || fetched.Password != user.Password {
		t.Fatalf("unexpected user fetched: %+v", fetched)
	}

	byID, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	if byID.Email != user.Email {
		t.Fatalf("unexpected user by id: %+v", byID)
	}

	updated := user
	updated.Email = "updated@example.com"
	updated.Password = "rotated-hash"
	updated.UpdatedAt = time.Now().UTC().Add(time.Minute)

	if err := repo.Update(ctx, updated); err != nil {
		t.Fatalf("update user: %v", err)
	}

	fetched, err = repo.FindByEmail(ctx, updated.Email)
	if err != nil {
		t.Fatalf("find by updated email: %v", err)
	}

	if fetched.Email != updated.Email || fetched.Password != updated.Password {
		t.Fatalf("expected updated fields to persist, got %+v", fetched)
	}

	missing := models.User{
		ID:        uuid.NewString(),
		Email:     "missing@example.com",
		Password:  "hash",
		UpdatedAt: time.Now().UTC(),
	}

	if err := repo.Update(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound updating missing user, got %v", err)
	}
}

func TestPostgresPairRepository_UnorderedUniqueness(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, userRepo, "alice@example.com")
	bob := createTestUser(t, userRepo, "bob@example.com")

	repo := NewPostgresPairRepository(testPool)

	pair := models.Pair{
		ID:        uuid.NewString(),
		Requester: alice.ID,
		Receiver:  bob.ID,
		Status:    models.PairStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, pair); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	same := pair
	same.ID = uuid.NewString()
	if err := repo.Create(ctx, same); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate pair, got %v", err)
	}

	reversed := models.Pair{
		ID:        uuid.NewString(),
		Requester: bob.ID,
		Receiver:  alice.ID,
		Status:    models.PairStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, reversed); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for reversed pair, got %v", err)
	}

	found, err := repo.FindBetween(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("find between reversed: %v", err)
	}
	if found.ID != pair.ID || found.Requester != alice.ID {
		t.Fatalf("unexpected pair found: %+v", found)
	}
}

func TestPostgresPairRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	alice := createTestUser(t, userRepo, "alice@example.com")
	bob := createTestUser(t, userRepo, "bob@example.com")
	carol := createTestUser(t, userRepo, "carol@example.com")

	repo := NewPostgresPairRepository(testPool)

	pair := models.Pair{
		ID:        uuid.NewString(),
		Requester: alice.ID,
		Receiver:  bob.ID,
		Status:    models.PairStatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, pair); err != nil {
		t.Fatalf("create pair: %v", err)
	}

	incoming, err := repo.ListIncoming(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list incoming: %v", err)
	}
	if len(incoming) != 1 || incoming[0].ID != alice.ID {
		t.Fatalf("expected alice in bob's incoming requests, got %+v", incoming)
	}

	sent, err := repo.ListSentTargetIDs(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list sent: %v", err)
	}
	if len(sent) != 1 || sent[0] != bob.ID {
		t.Fatalf("expected bob in alice's sent targets, got %+v", sent)
	}

	available, err := repo.ListAvailableUsers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list available: %v", err)
	}
	if len(available) != 1 || available[0].ID != carol.ID {
		t.Fatalf("expected only carol available to alice, got %+v", available)
	}

	if err := repo.UpdateStatus(ctx, pair.ID, models.PairStatusAccepted); err != nil {
		t.Fatalf("accept pair: %v", err)
	}

	accepted, err := repo.FindBetween(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("find accepted pair: %v", err)
	}
	if accepted.Status != models.PairStatusAccepted {
		t.Fatalf("expected accepted status, got %q", accepted.Status)
	}
	if accepted.RespondedAt == nil {
		t.Fatal("expected responded_at to be set after acceptance")
	}

	friendsOfBob, err := repo.ListFriends(ctx, bob.ID)
	if err != nil {
		t.Fatalf("list friends: %v", err)
	}
	if len(friendsOfBob) != 1 || friendsOfBob[0].ID != alice.ID {
		t.Fatalf("expected alice in bob's friends, got %+v", friendsOfBob)
	}

	if err := repo.Delete(ctx, pair.ID); err != nil {
		t.Fatalf("delete pair: %v", err)
	}
	if _, err := repo.FindBetween(ctx, alice.ID, bob.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.UpdateStatus(ctx, uuid.NewString(), models.PairStatusAccepted); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown pair, got %v", err)
	}
}

func TestPostgresImageRepository_ViewPartition(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner@example.com")
	other := createTestUser(t, userRepo, "other@example.com")

	repo := NewPostgresImageRepository(testPool)

	plain := createTestImage(t, repo, owner.ID, "plain.jpg", func(*models.Image) {})
	favourite := createTestImage(t, repo, owner.ID, "favourite.jpg", func(i *models.Image) { i.Favourite = true })
	archived := createTestImage(t, repo, owner.ID, "archived.jpg", func(i *models.Image) { i.Archived = true })
	trashed := createTestImage(t, repo, owner.ID, "trashed.jpg", func(i *models.Image) {
		i.InTrash = true
		i.Archived = true
	})
	createTestImage(t, repo, other.ID, "foreign.jpg", func(*models.Image) {})

	active, err := repo.ListActive(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if got := imageIDs(active); len(got) != 2 || !got[plain.ID] || !got[favourite.ID] {
		t.Fatalf("unexpected active view: %+v", active)
	}

	favourites, err := repo.ListFavourites(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list favourites: %v", err)
	}
	if got := imageIDs(favourites); len(got) != 1 || !got[favourite.ID] {
		t.Fatalf("unexpected favourites view: %+v", favourites)
	}

	archivedList, err := repo.ListArchived(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list archived: %v", err)
	}
	if got := imageIDs(archivedList); len(got) != 1 || !got[archived.ID] {
		t.Fatalf("unexpected archived view: %+v", archivedList)
	}

	trashedList, err := repo.ListTrashed(ctx, owner.ID)
	if err != nil {
		t.Fatalf("list trashed: %v", err)
	}
	if got := imageIDs(trashedList); len(got) != 1 || !got[trashed.ID] {
		t.Fatalf("unexpected trashed view: %+v", trashedList)
	}

	plain.Name = "Renamed"
	plain.InTrash = true
	if err := repo.Update(ctx, plain); err != nil {
		t.Fatalf("update image: %v", err)
	}
	reloaded, err := repo.FindByID(ctx, plain.ID)
	if err != nil {
		t.Fatalf("reload image: %v", err)
	}
	if reloaded.Name != "Renamed" || !reloaded.InTrash {
		t.Fatalf("expected update to persist, got %+v", reloaded)
	}

	if err := repo.Delete(ctx, plain.ID); err != nil {
		t.Fatalf("delete image: %v", err)
	}
	if _, err := repo.FindByID(ctx, plain.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, plain.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}
}

func TestPostgresShareRepository_TripleUniquenessAndListing(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner@example.com")
	viewer := createTestUser(t, userRepo, "viewer@example.com")

	imageRepo := NewPostgresImageRepository(testPool)
	image := createTestImage(t, imageRepo, owner.ID, "shared.jpg", func(*models.Image) {})

	repo := NewPostgresShareRepository(testPool)

	share := models.Share{
		ID:        uuid.NewString(),
		ImageID:   image.ID,
		OwnerID:   owner.ID,
		ViewerID:  viewer.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := repo.Create(ctx, share); err != nil {
		t.Fatalf("create share: %v", err)
	}

	dup := share
	dup.ID = uuid.NewString()
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate grant, got %v", err)
	}

	found, err := repo.Find(ctx, image.ID, owner.ID, viewer.ID)
	if err != nil {
		t.Fatalf("find share: %v", err)
	}
	if found.ID != share.ID {
		t.Fatalf("unexpected share found: %+v", found)
	}

	shared, err := repo.ListForViewer(ctx, viewer.ID)
	if err != nil {
		t.Fatalf("list for viewer: %v", err)
	}
	if len(shared) != 1 {
		t.Fatalf("expected one shared image, got %d", len(shared))
	}
	if shared[0].ImageID != image.ID || shared[0].OwnerEmail != owner.Email || shared[0].FileRef != image.FileRef {
		t.Fatalf("unexpected shared image projection: %+v", shared[0])
	}

	if err := repo.Delete(ctx, image.ID, owner.ID, viewer.ID); err != nil {
		t.Fatalf("delete share: %v", err)
	}
	if _, err := repo.Find(ctx, image.ID, owner.ID, viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.Delete(ctx, image.ID, owner.ID, viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting twice, got %v", err)
	}

	// The triple is grantable again once removed.
	again := share
	again.ID = uuid.NewString()
	if err := repo.Create(ctx, again); err != nil {
		t.Fatalf("re-create share after delete: %v", err)
	}
}

func TestPostgresShareRepository_CascadeOnImageDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	owner := createTestUser(t, userRepo, "owner@example.com")
	viewer := createTestUser(t, userRepo, "viewer@example.com")

	imageRepo := NewPostgresImageRepository(testPool)
	image := createTestImage(t, imageRepo, owner.ID, "gone.jpg", func(*models.Image) {})

	shareRepo := NewPostgresShareRepository(testPool)
	share := models.Share{
		ID:        uuid.NewString(),
		ImageID:   image.ID,
		OwnerID:   owner.ID,
		ViewerID:  viewer.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := shareRepo.Create(ctx, share); err != nil {
		t.Fatalf("create share: %v", err)
	}

	if err := imageRepo.Delete(ctx, image.ID); err != nil {
		t.Fatalf("delete image: %v", err)
	}

	if _, err := shareRepo.Find(ctx, image.ID, owner.ID, viewer.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected grant to cascade away with the image, got %v", err)
	}
}

func TestPostgresSessionStore_SaveFindAndDelete(t *testing.T) {
	ctx := context.Background()
	resetDatabase(t)

	userRepo := NewPostgresUserRepository(testPool)
	user := createTestUser(t, userRepo, "owner@example.com")

	store := NewPostgresSessionStore(testPool)
	expires := time.Now().UTC().Add(24 * time.Hour)
	session := auth.Session{
		RefreshToken: uuid.NewString(),
		UserID:       user.ID,
		ExpiresAt:    expires,
	}

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save session: %v", err)
	}

	loaded, err := store.Find(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("find session: %v", err)
	}

	if loaded.UserID != session.UserID || !timesClose(loaded.ExpiresAt, expires.UTC(), time.Millisecond) {
		t.Fatalf("unexpected session loaded: %+v", loaded)
	}

	updated := session
	updated.ExpiresAt = expires.Add(48 * time.Hour)
	if err := store.Save(ctx, updated); err != nil {
		t.Fatalf("update session: %v", err)
	}

	loaded, err = store.Find(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("find session after update: %v", err)
	}

	if !timesClose(loaded.ExpiresAt, updated.ExpiresAt.UTC(), time.Millisecond) {
		t.Fatalf("expected updated expiry, got %v", loaded.ExpiresAt)
	}

	if err := store.Delete(ctx, session.RefreshToken); err != nil {
		t.Fatalf("delete session: %v", err)
	}

	if _, err := store.Find(ctx, session.RefreshToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}

	if err := store.Delete(ctx, session.RefreshToken); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound deleting twice, got %v", err)
	}
}

func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrationsDir := filepath.Join("..", "..", "migrations")
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		contents, err := os.ReadFile(filepath.Join(migrationsDir, entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}

		if _, err := pool.Exec(ctx, string(contents)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

func resetDatabase(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	conn, err := testPool.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire connection: %v", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "TRUNCATE TABLE shares, pairs, images, sessions, users CASCADE"); err != nil {
		t.Fatalf("truncate tables: %v", err)
	}
}

func createTestUser(t *testing.T, repo *PostgresUserRepository, email string) models.User {
	t.Helper()
	user := models.User{
		ID:        uuid.NewString(),
		Email:     email,
		Password:  "password-hash",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func createTestImage(t *testing.T, repo *PostgresImageRepository, ownerID, ref string, mutate func(*models.Image)) models.Image {
	t.Helper()
	image := models.Image{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Name:      ref,
		FileRef:   ref,
		Size:      1024,
		CreatedAt: time.Now().UTC(),
	}
	mutate(&image)
	if err := repo.Create(context.Background(), image); err != nil {
		t.Fatalf("create test image: %v", err)
	}
	return image
}

func imageIDs(list []models.Image) map[string]bool {
	out := make(map[string]bool, len(list))
	for _, image := range list {
		out[image.ID] = true
	}
	return out
}

func timesClose(a, b time.Time, delta time.Duration) bool {
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= delta
}
