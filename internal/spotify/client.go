// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Profile identifies a Spotify user. Email and display name are
// best-effort; Spotify accounts can lack both.
type Profile struct {
	ID          string
	DisplayName string
	Email       string
}

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewWithToken creates a client wrapper authenticated with a bare access
// token, as supplied by browser callers.
func NewWithToken(ctx context.Context, accessToken string) *Client {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	httpClient := oauth2.NewClient(ctx, ts)
	return &Client{api: spotify.New(httpClient, spotify.WithRetry(true))}
}

// CurrentProfile resolves the authenticated user's identity, synthesizing
// placeholders when the account exposes no display name or email.
func (c *Client) CurrentProfile(ctx context.Context) (*Profile, error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting current user: %w", err)
	}

	profile := &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
	}
	if profile.DisplayName == "" {
		profile.DisplayName = "Unknown"
	}
	if profile.Email == "" {
		profile.Email = fmt.Sprintf("user-%s@unknown.com", user.ID)
	}
	return profile, nil
}

// TopArtists returns the display names of the user's top artists.
func (c *Client) TopArtists(ctx context.Context, limit int) ([]string, error) {
	page, err := c.api.CurrentUsersTopArtists(ctx, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("getting top artists: %w", err)
	}

	names := make([]string, 0, len(page.Artists))
	for _, artist := range page.Artists {
		names = append(names, artist.Name)
	}
	return names, nil
}

// TopArtistsWithToken fetches top artists for the bearer of the given
// access token. It matches recommend.TopArtistsFunc.
func TopArtistsWithToken(ctx context.Context, accessToken string, limit int) ([]string, error) {
	return NewWithToken(ctx, accessToken).TopArtists(ctx, limit)
}
