package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/photon/backend/internal/db"
	"github.com/photon/backend/internal/models"
)

// PostgresUserRepository provides PostgreSQL-backed persistence for users.
type PostgresUserRepository struct {
	pool db.Pool
}

// NewPostgresUserRepository constructs a user repository backed by PostgreSQL.
func NewPostgresUserRepository(pool db.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record.
func (r *PostgresUserRepository) Create(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO users (id, email, password_hash, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, user.ID, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// FindByID fetches a user by identifier.
func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users
        WHERE id = $1
    `, id)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by id: %w", err)
	}

	return user, nil
}

// FindByEmail fetches a user by their email address.
func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.User{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, email, password_hash, created_at, updated_at
        FROM users
        WHERE email = $1
    `, email)

	var user models.User
	if err := row.Scan(&user.ID, &user.Email, &user.Password, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("select user by email: %w", err)
	}

	return user, nil
}

// Update modifies an existing user record.
func (r *PostgresUserRepository) Update(ctx context.Context, user models.User) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE users
        SET email = $2, password_hash = $3, updated_at = $4
        WHERE id = $1
    `, user.ID, user.Email, user.Password, user.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return fmt.Errorf("update user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// PostgresImageRepository provides PostgreSQL-backed persistence for image metadata.
type PostgresImageRepository struct {
	pool db.Pool
}

// NewPostgresImageRepository constructs an image repository backed by PostgreSQL.
func NewPostgresImageRepository(pool db.Pool) *PostgresImageRepository {
	return &PostgresImageRepository{pool: pool}
}

// Create persists metadata for a newly stored image.
func (r *PostgresImageRepository) Create(ctx context.Context, image models.Image) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO images (id, owner_id, name, file_ref, size, in_trash, favourite, archived, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `, image.ID, image.OwnerID, image.Name, image.FileRef, image.Size, image.InTrash, image.Favourite, image.Archived, image.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert image: %w", err)
	}

	return nil
}

// FindByID fetches image metadata by identifier.
func (r *PostgresImageRepository) FindByID(ctx context.Context, id string) (models.Image, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Image{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, name, file_ref, size, in_trash, favourite, archived, created_at
        FROM images
        WHERE id = $1
    `, id)

	image, err := scanImageRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrNotFound
		}
		return models.Image{}, fmt.Errorf("select image by id: %w", err)
	}

	return image, nil
}

// Update swaps the mutable fields of an image record in a single statement.
func (r *PostgresImageRepository) Update(ctx context.Context, image models.Image) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        UPDATE images
        SET name = $2, file_ref = $3, size = $4, in_trash = $5, favourite = $6, archived = $7
        WHERE id = $1
    `, image.ID, image.Name, image.FileRef, image.Size, image.InTrash, image.Favourite, image.Archived)
	if err != nil {
		return fmt.Errorf("update image: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes an image record. Share grants pointing at the image are
// removed by the cascading foreign key.
func (r *PostgresImageRepository) Delete(ctx context.Context, id string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM images
        WHERE id = $1
    `, id)
	if err != nil {
		return fmt.Errorf("delete image: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListActive returns images that are neither trashed nor archived.
func (r *PostgresImageRepository) ListActive(ctx context.Context, ownerID string) ([]models.Image, error) {
	return r.list(ctx, ownerID, `NOT in_trash AND NOT archived`)
}

// ListFavourites returns favourite images outside the trash and archive.
func (r *PostgresImageRepository) ListFavourites(ctx context.Context, ownerID string) ([]models.Image, error) {
	return r.list(ctx, ownerID, `favourite AND NOT in_trash AND NOT archived`)
}

// ListArchived returns archived images that are not in the trash.
func (r *PostgresImageRepository) ListArchived(ctx context.Context, ownerID string) ([]models.Image, error) {
	return r.list(ctx, ownerID, `archived AND NOT in_trash`)
}

// ListTrashed returns trashed images regardless of their other flags.
func (r *PostgresImageRepository) ListTrashed(ctx context.Context, ownerID string) ([]models.Image, error) {
	return r.list(ctx, ownerID, `in_trash`)
}

func (r *PostgresImageRepository) list(ctx context.Context, ownerID, predicate string) ([]models.Image, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT id, owner_id, name, file_ref, size, in_trash, favourite, archived, created_at
        FROM images
        WHERE owner_id = $1 AND `+predicate+`
        ORDER BY created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var images []models.Image
	for rows.Next() {
		image, err := scanImageRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, image)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}

	return images, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImageRow(row rowScanner) (models.Image, error) {
	var image models.Image
	err := row.Scan(&image.ID, &image.OwnerID, &image.Name, &image.FileRef, &image.Size,
		&image.InTrash, &image.Favourite, &image.Archived, &image.CreatedAt)
	return image, err
}

// PostgresPairRepository provides PostgreSQL-backed persistence for friend pairings.
type PostgresPairRepository struct {
	pool db.Pool
}

// NewPostgresPairRepository constructs a pair repository backed by PostgreSQL.
func NewPostgresPairRepository(pool db.Pool) *PostgresPairRepository {
	return &PostgresPairRepository{pool: pool}
}

// Create persists a new pair record. A unique index over the unordered user
// pair rejects a second record in either direction.
func (r *PostgresPairRepository) Create(ctx context.Context, pair models.Pair) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO pairs (id, requester_id, receiver_id, status, created_at, responded_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, pair.ID, pair.Requester, pair.Receiver, pair.Status, pair.CreatedAt, pair.RespondedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert pair: %w", err)
	}

	return nil
}

// FindBetween returns the record for the unordered pair {aID, bID}.
func (r *PostgresPairRepository) FindBetween(ctx context.Context, aID, bID string) (models.Pair, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Pair{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, requester_id, receiver_id, status, created_at, responded_at
        FROM pairs
        WHERE (requester_id = $1 AND receiver_id = $2)
           OR (requester_id = $2 AND receiver_id = $1)
    `, aID, bID)

	var (
		pair        models.Pair
		respondedAt sql.NullTime
	)
	if err := row.Scan(&pair.ID, &pair.Requester, &pair.Receiver, &pair.Status, &pair.CreatedAt, &respondedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Pair{}, ErrNotFound
		}
		return models.Pair{}, fmt.Errorf("select pair: %w", err)
	}

	if respondedAt.Valid {
		t := respondedAt.Time.UTC()
		pair.RespondedAt = &t
	}

	return pair, nil
}

// UpdateStatus updates the status (and responded_at) for a pair record.
func (r *PostgresPairRepository) UpdateStatus(ctx context.Context, pairID, status string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	respondedAt := sql.NullTime{}
	if status != models.PairStatusPending {
		respondedAt = sql.NullTime{Valid: true, Time: time.Now().UTC()}
	}

	tag, err := conn.Exec(ctx, `
        UPDATE pairs
        SET status = $2, responded_at = $3
        WHERE id = $1
    `, pairID, status, respondedAt)
	if err != nil {
		return fmt.Errorf("update pair: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// Delete removes a pair record outright. Rejected, withdrawn, and dissolved
// pairings are deleted rather than archived.
func (r *PostgresPairRepository) Delete(ctx context.Context, pairID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM pairs
        WHERE id = $1
    `, pairID)
	if err != nil {
		return fmt.Errorf("delete pair: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListFriends returns the users on the far side of accepted pairings.
func (r *PostgresPairRepository) ListFriends(ctx context.Context, userID string) ([]models.User, error) {
	return r.listUsers(ctx, `
        SELECT u.id, u.email, u.created_at
        FROM pairs p
        JOIN users u ON u.id = CASE WHEN p.requester_id = $1 THEN p.receiver_id ELSE p.requester_id END
        WHERE p.status = 'accepted'
          AND (p.requester_id = $1 OR p.receiver_id = $1)
        ORDER BY u.email
    `, userID)
}

// ListIncoming returns the users with a pending request aimed at userID.
func (r *PostgresPairRepository) ListIncoming(ctx context.Context, userID string) ([]models.User, error) {
	return r.listUsers(ctx, `
        SELECT u.id, u.email, u.created_at
        FROM pairs p
        JOIN users u ON u.id = p.requester_id
        WHERE p.receiver_id = $1 AND p.status = 'pending'
        ORDER BY p.created_at DESC
    `, userID)
}

// ListSentTargetIDs returns the ids of users with a pending request from userID.
func (r *PostgresPairRepository) ListSentTargetIDs(ctx context.Context, userID string) ([]string, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT receiver_id
        FROM pairs
        WHERE requester_id = $1 AND status = 'pending'
        ORDER BY created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query sent requests: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan sent request: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sent requests: %w", err)
	}

	return ids, nil
}

// ListAvailableUsers returns users the caller may still send a request to.
func (r *PostgresPairRepository) ListAvailableUsers(ctx context.Context, userID string) ([]models.User, error) {
	return r.listUsers(ctx, `
        SELECT u.id, u.email, u.created_at
        FROM users u
        WHERE u.id <> $1
          AND NOT EXISTS (
              SELECT 1 FROM pairs p
              WHERE (p.requester_id = $1 AND p.receiver_id = u.id)
                 OR (p.requester_id = u.id AND p.receiver_id = $1)
          )
        ORDER BY u.email
    `, userID)
}

func (r *PostgresPairRepository) listUsers(ctx context.Context, query, userID string) ([]models.User, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query pair users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Email, &user.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pair user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pair users: %w", err)
	}

	return users, nil
}

// PostgresShareRepository provides PostgreSQL-backed persistence for share grants.
type PostgresShareRepository struct {
	pool db.Pool
}

// NewPostgresShareRepository constructs a share repository backed by PostgreSQL.
func NewPostgresShareRepository(pool db.Pool) *PostgresShareRepository {
	return &PostgresShareRepository{pool: pool}
}

// Create persists a new share grant. The unique index on the
// (image, owner, viewer) triple rejects duplicate grants.
func (r *PostgresShareRepository) Create(ctx context.Context, share models.Share) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO shares (id, image_id, owner_id, viewer_id, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `, share.ID, share.ImageID, share.OwnerID, share.ViewerID, share.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return ErrConflict
			case "23503":
				return ErrNotFound
			}
		}
		return fmt.Errorf("insert share: %w", err)
	}

	return nil
}

// Find returns the grant for the exact (image, owner, viewer) triple.
func (r *PostgresShareRepository) Find(ctx context.Context, imageID, ownerID, viewerID string) (models.Share, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Share{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, image_id, owner_id, viewer_id, created_at
        FROM shares
        WHERE image_id = $1 AND owner_id = $2 AND viewer_id = $3
    `, imageID, ownerID, viewerID)

	var share models.Share
	if err := row.Scan(&share.ID, &share.ImageID, &share.OwnerID, &share.ViewerID, &share.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Share{}, ErrNotFound
		}
		return models.Share{}, fmt.Errorf("select share: %w", err)
	}

	return share, nil
}

// Delete removes the grant for the exact (image, owner, viewer) triple.
func (r *PostgresShareRepository) Delete(ctx context.Context, imageID, ownerID, viewerID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM shares
        WHERE image_id = $1 AND owner_id = $2 AND viewer_id = $3
    `, imageID, ownerID, viewerID)
	if err != nil {
		return fmt.Errorf("delete share: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	return nil
}

// ListForViewer returns every image shared with the viewer, joined with the
// current image snapshot and the owner's contact details.
func (r *PostgresShareRepository) ListForViewer(ctx context.Context, viewerID string) ([]models.SharedImage, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT i.id, i.file_ref, i.name, i.created_at, o.id, o.email
        FROM shares s
        JOIN images i ON i.id = s.image_id
        JOIN users o ON o.id = s.owner_id
        WHERE s.viewer_id = $1
        ORDER BY s.created_at
    `, viewerID)
	if err != nil {
		return nil, fmt.Errorf("query shared images: %w", err)
	}
	defer rows.Close()

	var shared []models.SharedImage
	for rows.Next() {
		var item models.SharedImage
		if err := rows.Scan(&item.ImageID, &item.FileRef, &item.Name, &item.CreatedAt, &item.OwnerID, &item.OwnerEmail); err != nil {
			return nil, fmt.Errorf("scan shared image: %w", err)
		}
		shared = append(shared, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shared images: %w", err)
	}

	return shared, nil
}

var _ UserRepository = (*PostgresUserRepository)(nil)
var _ ImageRepository = (*PostgresImageRepository)(nil)
var _ PairRepository = (*PostgresPairRepository)(nil)
var _ ShareRepository = (*PostgresShareRepository)(nil)
