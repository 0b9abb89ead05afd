package auth

import (
	"context"
	"sync"
	"time"

	"github.com/insightify/spotify-insights/internal/db"
)

// Store persists credential records keyed by Spotify user id.
// Upsert must be atomic per key; expired records remain readable.
type Store interface {
	Upsert(ctx context.Context, cred *db.Credential) error
	Get(ctx context.Context, userID string) (*db.Credential, error)
}

// MemoryStore keeps credentials in memory, for development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]db.Credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creds: make(map[string]db.Credential)}
}

// Upsert replaces the record for cred's user id.
func (s *MemoryStore) Upsert(_ context.Context, cred *db.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if existing, ok := s.creds[cred.UserID]; ok {
		cred.CreatedAt = existing.CreatedAt
	} else {
		cred.CreatedAt = now
	}
	cred.UpdatedAt = now
	s.creds[cred.UserID] = *cred
	return nil
}

// Get retrieves the record for a user id.
func (s *MemoryStore) Get(_ context.Context, userID string) (*db.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[userID]
	if !ok {
		return nil, db.ErrNotFound
	}
	return &cred, nil
}

// Ensure both stores implement Store.
var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*db.CredentialRepository)(nil)
)
