package db

import "time"

// Credential is the persisted OAuth state for one Spotify user.
// ExpiresAt is always an absolute timestamp derived at exchange time.
type Credential struct {
	UserID       string
	DisplayName  string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is past its expiry.
func (c *Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
