// Package auth implements the Spotify OAuth code-exchange and refresh service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/insightify/spotify-insights/internal/db"
	"github.com/insightify/spotify-insights/internal/spotify"
)

// Spotify accounts endpoints.
var spotifyEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// scopes requested during authorization.
var scopes = []string{
	"user-top-read",
	"user-read-recently-played",
	"playlist-read-private",
	"user-read-private",
	"user-library-read",
	"user-read-email",
}

// upstreamTimeout bounds every token endpoint round trip.
const upstreamTimeout = 10 * time.Second

// ExchangeError reports an upstream rejection of a code or refresh token.
// Status is the upstream HTTP status, or 0 for transport failures.
type ExchangeError struct {
	Status  int
	Message string
}

func (e *ExchangeError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("auth exchange failed: %s", e.Message)
	}
	return fmt.Sprintf("auth exchange failed: upstream status %d: %s", e.Status, e.Message)
}

// ProfileFunc resolves the identity behind a freshly issued token.
type ProfileFunc func(ctx context.Context, token *oauth2.Token) (*spotify.Profile, error)

// Config holds exchange service configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// Endpoint overrides the Spotify accounts endpoint, for tests.
	Endpoint oauth2.Endpoint

	// Profile overrides the identity lookup, for tests.
	Profile ProfileFunc
}

// Service exchanges authorization codes and refresh tokens for credentials
// and persists the result.
type Service struct {
	conf    *oauth2.Config
	store   Store
	profile ProfileFunc
}

// NewService creates an exchange service writing to the given store.
func NewService(cfg Config, store Store) *Service {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = spotifyEndpoint
	}

	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Endpoint:     endpoint,
		Scopes:       scopes,
	}

	s := &Service{
		conf:  conf,
		store: store,
	}
	s.profile = cfg.Profile
	if s.profile == nil {
		s.profile = s.defaultProfile
	}
	return s
}

// AuthURL builds the authorization URL users are sent to for consent.
func (s *Service) AuthURL(state string) string {
	return s.conf.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// ExchangeCode trades a one-time authorization code for tokens, resolves
// the user's identity and upserts the credential record. The code must not
// be exchanged twice; single-use enforcement is the caller's job.
func (s *Service) ExchangeCode(ctx context.Context, code string) (*db.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	token, err := s.conf.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeErr(err)
	}

	return s.persist(ctx, token)
}

// Refresh mints a new access token from a refresh token and upserts the
// credential record. Spotify may omit a rotated refresh token, in which
// case the old one stays valid and is kept.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*db.Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, upstreamTimeout)
	defer cancel()

	stale := &oauth2.Token{RefreshToken: refreshToken}
	token, err := s.conf.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, exchangeErr(err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}

	return s.persist(ctx, token)
}

// persist resolves the token bearer's identity and writes the credential.
func (s *Service) persist(ctx context.Context, token *oauth2.Token) (*db.Credential, error) {
	profile, err := s.profile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("resolving profile: %w", err)
	}

	cred := &db.Credential{
		UserID:       profile.ID,
		DisplayName:  profile.DisplayName,
		Email:        profile.Email,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    token.Expiry,
	}

	if err := s.store.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("storing credential: %w", err)
	}
	return cred, nil
}

// defaultProfile reads the Spotify "who am I" endpoint with the new token.
func (s *Service) defaultProfile(ctx context.Context, token *oauth2.Token) (*spotify.Profile, error) {
	client := spotify.NewWithToken(ctx, token.AccessToken)
	return client.CurrentProfile(ctx)
}

// exchangeErr maps an oauth2 failure to an ExchangeError.
// Upstream errors are never retried here; retry is the caller's decision.
func exchangeErr(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		msg := retrieveErr.ErrorDescription
		if msg == "" {
			msg = strings.TrimSpace(string(retrieveErr.Body))
		}
		if msg == "" {
			msg = retrieveErr.ErrorCode
		}
		return &ExchangeError{
			Status:  retrieveErr.Response.StatusCode,
			Message: msg,
		}
	}
	return &ExchangeError{Message: err.Error()}
}

// ExpiresIn converts a credential's absolute expiry back to the relative
// seconds the HTTP API reports.
func ExpiresIn(cred *db.Credential, now time.Time) int64 {
	seconds := int64(cred.ExpiresAt.Sub(now).Seconds())
	if seconds < 0 {
		return 0
	}
	return seconds
}
