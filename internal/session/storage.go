// Package session owns the client-side token lifecycle: durable credential
// storage and the startup state machine that decides whether to reuse,
// refresh or re-authenticate.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	configDirName   = "spotify-insights"
	credentialsFile = "credentials.json"
)

// ErrCredentialCorrupt is returned when durable storage holds partial or
// unparseable credential fields. Callers treat it as absent credentials.
var ErrCredentialCorrupt = errors.New("stored credentials are corrupt")

// Credentials mirrors the four durable client storage keys. All four are
// saved or cleared together, never partially.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenExpiry  int64  `json:"token_expiry"` // absolute epoch millis
	UserID       string `json:"platform_user_id"`
}

// Valid reports whether all required fields are present.
func (c *Credentials) Valid() bool {
	return c != nil && c.AccessToken != "" && c.RefreshToken != "" && c.TokenExpiry > 0 && c.UserID != ""
}

// Expired reports whether the access token is past its expiry.
func (c *Credentials) Expired(now time.Time) bool {
	return now.UnixMilli() >= c.TokenExpiry
}

// Storage is the durable credential store.
type Storage interface {
	Load() (*Credentials, error)
	Save(*Credentials) error
	Clear() error
}

// FileStorage persists credentials as a single JSON file, so the four
// fields always change together.
type FileStorage struct {
	path string
}

// DefaultStorage returns a FileStorage at the default location:
// ~/.config/spotify-insights/credentials.json
func DefaultStorage() (*FileStorage, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}
	return NewFileStorage(filepath.Join(configDir, configDirName, credentialsFile)), nil
}

// NewFileStorage creates a FileStorage with a custom path.
func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

// Path returns the file path where credentials are stored.
func (s *FileStorage) Path() string {
	return s.path
}

// Load reads stored credentials.
// Returns (nil, nil) if nothing is stored, ErrCredentialCorrupt if the
// file exists but does not hold a complete credential set.
func (s *FileStorage) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, ErrCredentialCorrupt
	}
	if !creds.Valid() {
		return nil, ErrCredentialCorrupt
	}
	return &creds, nil
}

// Save writes credentials to disk, creating the parent directory if needed.
// Partial credential sets are rejected.
func (s *FileStorage) Save(creds *Credentials) error {
	if !creds.Valid() {
		return errors.New("refusing to save partial credentials")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// Clear removes the stored credentials.
// Returns nil if nothing is stored.
func (s *FileStorage) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

var _ Storage = (*FileStorage)(nil)
