package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Phase is the session lifecycle state. Transitions are one-way per page
// load: Initializing moves to Authenticated or Unauthenticated exactly
// once and never returns.
type Phase int

const (
	Initializing Phase = iota
	Authenticated
	Unauthenticated
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Redirect names the navigation a transition must trigger. It is reported
// at most once per page load; later evaluations return RedirectNone.
type Redirect int

const (
	RedirectNone Redirect = iota
	RedirectHome
	RedirectLogin
)

// TokenGrant is an upstream token response adopted by the session.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
	UserID       string
}

// Exchanger trades an authorization code or refresh token for tokens.
type Exchanger interface {
	ExchangeCode(ctx context.Context, code string) (*TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
}

// Result is the terminal outcome of one Initialize evaluation.
type Result struct {
	Phase       Phase
	Credentials *Credentials
	Redirect    Redirect
	Err         error
}

// Manager owns the single current credential set for one page load. It is
// the only mutator of session state; Initialize is its entry point and is
// idempotent: re-evaluation returns the settled result without repeating
// network calls, code exchanges or navigations.
type Manager struct {
	storage  Storage
	exchange Exchanger
	now      func() time.Time

	mu       sync.Mutex
	phase    Phase
	creds    *Credentials
	codeUsed bool
	settled  bool
	result   Result
}

// NewManager creates a Manager over the given storage and exchanger.
func NewManager(storage Storage, exchange Exchanger) *Manager {
	return &Manager{
		storage:  storage,
		exchange: exchange,
		now:      time.Now,
	}
}

// Phase returns the current lifecycle state.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Token returns the current access token, if authenticated.
func (m *Manager) Token() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != Authenticated || m.creds == nil {
		return "", false
	}
	return m.creds.AccessToken, true
}

// Initialize evaluates the startup sequence once and settles into a
// terminal phase. navCode is the one-time authorization code carried by
// the current navigation, or empty. At most one network round trip
// (refresh or exchange) is performed.
//
// Priority order: adopt valid stored credentials; refresh with a stored
// refresh token; exchange the navigation code; otherwise unauthenticated.
func (m *Manager) Initialize(ctx context.Context, navCode string) Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settled {
		// Re-entrant evaluation: same terminal state, no side effects.
		r := m.result
		r.Redirect = RedirectNone
		return r
	}

	result := m.initialize(ctx, navCode)

	m.settled = true
	m.phase = result.Phase
	m.creds = result.Credentials
	m.result = result
	return result
}

func (m *Manager) initialize(ctx context.Context, navCode string) Result {
	stored, err := m.storage.Load()
	if errors.Is(err, ErrCredentialCorrupt) {
		// Partial or unparseable fields count as absent credentials.
		_ = m.storage.Clear()
		stored = nil
	} else if err != nil {
		stored = nil
	}

	if stored != nil {
		if !stored.Expired(m.now()) {
			// Fresh stored credentials: adopt without any network call.
			return Result{Phase: Authenticated, Credentials: stored, Redirect: RedirectHome}
		}
		return m.refresh(ctx, stored)
	}

	if navCode != "" && !m.codeUsed {
		m.codeUsed = true
		return m.exchangeCode(ctx, navCode)
	}

	return Result{Phase: Unauthenticated, Redirect: RedirectLogin}
}

func (m *Manager) refresh(ctx context.Context, stored *Credentials) Result {
	grant, err := m.exchange.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		_ = m.storage.Clear()
		return Result{Phase: Unauthenticated, Redirect: RedirectLogin, Err: err}
	}

	creds := &Credentials{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenExpiry:  m.now().UnixMilli() + grant.ExpiresIn*1000,
		UserID:       grant.UserID,
	}
	// Refresh responses may omit the rotated refresh token and user id.
	if creds.RefreshToken == "" {
		creds.RefreshToken = stored.RefreshToken
	}
	if creds.UserID == "" {
		creds.UserID = stored.UserID
	}

	if err := m.storage.Save(creds); err != nil {
		return Result{Phase: Unauthenticated, Redirect: RedirectLogin, Err: err}
	}
	return Result{Phase: Authenticated, Credentials: creds, Redirect: RedirectHome}
}

func (m *Manager) exchangeCode(ctx context.Context, code string) Result {
	grant, err := m.exchange.ExchangeCode(ctx, code)
	if err != nil {
		return Result{Phase: Unauthenticated, Redirect: RedirectLogin, Err: err}
	}

	creds := &Credentials{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		TokenExpiry:  m.now().UnixMilli() + grant.ExpiresIn*1000,
		UserID:       grant.UserID,
	}

	if err := m.storage.Save(creds); err != nil {
		return Result{Phase: Unauthenticated, Redirect: RedirectLogin, Err: err}
	}
	return Result{Phase: Authenticated, Credentials: creds, Redirect: RedirectHome}
}

// Logout erases stored credentials and the in-memory session. Server-side
// credential rows are untouched; logout is client-side erasure only.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds = nil
	m.phase = Unauthenticated
	return m.storage.Clear()
}
