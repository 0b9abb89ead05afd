// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"os"
)

// DefaultDatasetURL is the public CSV the recommendation dataset is loaded from.
const DefaultDatasetURL = "https://raw.githubusercontent.com/rfordatascience/tidytuesday/master/data/2020/2020-01-21/spotify_songs.csv"

const (
	defaultAddr        = "127.0.0.1:3002"
	defaultRedirectURI = "http://127.0.0.1:5174"
	defaultBackendURL  = "http://127.0.0.1:3002"
)

// ErrMissingCredentials is returned when SPOTIFY_ID or SPOTIFY_SECRET is not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET environment variable")

// Config holds all server configuration.
type Config struct {
	Addr         string // listen address
	ClientID     string // Spotify application client ID
	ClientSecret string // Spotify application client secret
	RedirectURI  string // OAuth redirect URI registered with Spotify
	DatabaseURL  string // Postgres URL for the credential store; empty selects the in-memory store
	DatasetURL   string // remote CSV with the song dataset
	LastFMAPIKey string // enables the personalized recommendation path when set
	Script       string // newsletter chart/email script; empty disables the endpoint
	BackendURL   string // base URL clients use to reach this server
}

// Load reads configuration from the environment.
// Returns ErrMissingCredentials if the Spotify client credentials are not set.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:         envOr("INSIGHTS_ADDR", defaultAddr),
		ClientID:     os.Getenv("SPOTIFY_ID"),
		ClientSecret: os.Getenv("SPOTIFY_SECRET"),
		RedirectURI:  envOr("SPOTIFY_REDIRECT_URI", defaultRedirectURI),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatasetURL:   envOr("DATASET_URL", DefaultDatasetURL),
		LastFMAPIKey: os.Getenv("LASTFM_API_KEY"),
		Script:       os.Getenv("NEWSLETTER_SCRIPT"),
		BackendURL:   envOr("INSIGHTS_BACKEND_URL", defaultBackendURL),
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
