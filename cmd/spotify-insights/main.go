package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/insightify/spotify-insights/internal/auth"
	"github.com/insightify/spotify-insights/internal/config"
	"github.com/insightify/spotify-insights/internal/dataset"
	"github.com/insightify/spotify-insights/internal/db"
	"github.com/insightify/spotify-insights/internal/lastfm"
	"github.com/insightify/spotify-insights/internal/newsletter"
	"github.com/insightify/spotify-insights/internal/recommend"
	"github.com/insightify/spotify-insights/internal/spotify"
	"github.com/insightify/spotify-insights/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			return fmt.Errorf("%w (set SPOTIFY_ID and SPOTIFY_SECRET, or add them to .env)", err)
		}
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()

	var store auth.Store
	if cfg.DatabaseURL != "" {
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connecting to database: %w", err)
		}
		defer database.Close()
		store = database.Credentials()
		log.Info("using postgres credential store")
	} else {
		store = auth.NewMemoryStore()
		log.Warn("DATABASE_URL not set, credentials are kept in memory only")
	}

	authSvc := auth.NewService(auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
	}, store)

	loader := dataset.NewLoader(cfg.DatasetURL, log)
	go func() {
		if err := loader.Load(ctx); err != nil {
			log.WithError(err).Error("dataset load failed, recommendations stay unavailable")
		}
	}()

	source := &recommend.Selector{Static: recommend.NewFilter(loader)}
	if cfg.LastFMAPIKey != "" {
		fm := lastfm.NewClient(cfg.LastFMAPIKey)
		source.Personalized = &recommend.Personalized{
			TopArtists: spotify.TopArtistsWithToken,
			TopTracks:  fm.TopTracks,
		}
		log.Info("personalized recommendations enabled")
	}

	var news *newsletter.Runner
	if cfg.Script != "" {
		news = &newsletter.Runner{Script: cfg.Script, Log: log}
		log.WithField("script", cfg.Script).Info("newsletter dispatch enabled")
	}

	handlers := web.NewHandlers(authSvc, source, loader, news, log)
	server := web.NewServer(cfg.Addr, handlers, log)

	return server.Run()
}
