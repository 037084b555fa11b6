package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"discograph/api/internal/correction"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// querier is satisfied by *sql.DB and *sql.Tx so snapshot reads can run
// inside or outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, passwordHash, role string) (User, error) {
	const insertUser = `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, password_hash, role, created_at
	`
	var user User
	err := s.db.QueryRowContext(ctx, insertUser, username, email, passwordHash, role).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	const query = `
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE email = $1
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, correction.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user by email: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (User, error) {
	const query = `
		SELECT id, username, email, password_hash, role, created_at
		FROM users WHERE id = $1
	`
	var user User
	err := s.db.QueryRowContext(ctx, query, id).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, correction.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("lookup user: %w", err)
	}
	return user, nil
}

// EnsureAdmin creates the bootstrap admin account, or promotes the
// existing account with that email. Runs once at startup.
func (s *PostgresStore) EnsureAdmin(ctx context.Context, username, email, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, role)
		VALUES ($1, $2, $3, 'admin')
		ON CONFLICT (email) DO UPDATE SET role = 'admin'
	`, username, email, passwordHash)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertArtistImage(ctx context.Context, artistID int64, objectKey, mimeType string, uploadedBy int64) (ArtistImage, error) {
	const insertImage = `
		INSERT INTO artist_images (artist_id, object_key, mime_type, uploaded_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, artist_id, object_key, mime_type, uploaded_by, created_at
	`
	var img ArtistImage
	err := s.db.QueryRowContext(ctx, insertImage, artistID, objectKey, mimeType, uploadedBy).
		Scan(&img.ID, &img.ArtistID, &img.ObjectKey, &img.MimeType, &img.UploadedBy, &img.CreatedAt)
	if err != nil {
		return ArtistImage{}, fmt.Errorf("insert artist image: %w", err)
	}
	return img, nil
}

func (s *PostgresStore) ListArtistImages(ctx context.Context, artistID int64) ([]ArtistImage, error) {
	const query = `
		SELECT id, artist_id, object_key, mime_type, uploaded_by, created_at
		FROM artist_images WHERE artist_id = $1 ORDER BY id
	`
	rows, err := s.db.QueryContext(ctx, query, artistID)
	if err != nil {
		return nil, fmt.Errorf("list artist images: %w", err)
	}
	defer rows.Close()

	var images []ArtistImage
	for rows.Next() {
		var img ArtistImage
		if err := rows.Scan(&img.ID, &img.ArtistID, &img.ObjectKey, &img.MimeType, &img.UploadedBy, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artist image: %w", err)
		}
		images = append(images, img)
	}
	return images, rows.Err()
}

// ArtistExists reports whether a live artist row exists. Used before an
// image upload is accepted.
func (s *PostgresStore) ArtistExists(ctx context.Context, artistID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM artists WHERE id=$1)`, artistID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check artist: %w", err)
	}
	return exists, nil
}
