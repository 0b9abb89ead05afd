package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CredentialRepository handles credential database operations.
//
// Schema:
//
//	CREATE TABLE spotify_credentials (
//	    user_id       TEXT PRIMARY KEY,
//	    display_name  TEXT NOT NULL,
//	    email         TEXT NOT NULL,
//	    access_token  TEXT NOT NULL,
//	    refresh_token TEXT NOT NULL,
//	    expires_at    TIMESTAMPTZ NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL
//	);
type CredentialRepository struct {
	pool *pgxpool.Pool
}

// Upsert creates or replaces the credential for its user id. The write is
// a single statement, so all fields change together or not at all.
func (r *CredentialRepository) Upsert(ctx context.Context, cred *Credential) error {
	query := `
		INSERT INTO spotify_credentials
			(user_id, display_name, email, access_token, refresh_token, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			email = EXCLUDED.email,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
		RETURNING created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		cred.UserID,
		cred.DisplayName,
		cred.Email,
		cred.AccessToken,
		cred.RefreshToken,
		cred.ExpiresAt,
	).Scan(&cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting credential: %w", err)
	}
	return nil
}

// Get retrieves the credential for a user id. Expired credentials are
// returned as stored; checking ExpiresAt is the caller's job.
func (r *CredentialRepository) Get(ctx context.Context, userID string) (*Credential, error) {
	query := `
		SELECT user_id, display_name, email, access_token, refresh_token, expires_at, created_at, updated_at
		FROM spotify_credentials
		WHERE user_id = $1
	`
	var cred Credential
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&cred.UserID,
		&cred.DisplayName,
		&cred.Email,
		&cred.AccessToken,
		&cred.RefreshToken,
		&cred.ExpiresAt,
		&cred.CreatedAt,
		&cred.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying credential: %w", err)
	}
	return &cred, nil
}
