package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/insightify/spotify-insights/internal/auth"
	"github.com/insightify/spotify-insights/internal/dataset"
	"github.com/insightify/spotify-insights/internal/insights"
	"github.com/insightify/spotify-insights/internal/lastfm"
	"github.com/insightify/spotify-insights/internal/newsletter"
	"github.com/insightify/spotify-insights/internal/recommend"
)

const noMatchesMessage = "No songs found matching the criteria."

// Handlers holds the dependencies for the HTTP handlers.
type Handlers struct {
	auth        *auth.Service
	source      recommend.Source
	loader      *dataset.Loader
	insightsCfg insights.Config
	news        *newsletter.Runner
	log         *logrus.Logger
}

// NewHandlers creates the handler set. news may be nil when no newsletter
// script is configured.
func NewHandlers(authSvc *auth.Service, source recommend.Source, loader *dataset.Loader, news *newsletter.Runner, log *logrus.Logger) *Handlers {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handlers{
		auth:        authSvc,
		source:      source,
		loader:      loader,
		insightsCfg: insights.DefaultConfig(),
		news:        news,
		log:         log,
	}
}

type tokenRequest struct {
	Code string `json:"code"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id,omitempty"`
}

// Token exchanges an authorization code for tokens.
func (h *Handlers) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing authorization code"})
		return
	}

	cred, err := h.auth.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		h.writeExchangeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresIn:    auth.ExpiresIn(cred, time.Now()),
		UserID:       cred.UserID,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken exchanges a refresh token for a fresh access token.
func (h *Handlers) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing refresh token"})
		return
	}

	cred, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.writeExchangeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: cred.AccessToken,
		ExpiresIn:   auth.ExpiresIn(cred, time.Now()),
	})
}

func (h *Handlers) writeExchangeError(w http.ResponseWriter, err error) {
	var exErr *auth.ExchangeError
	if errors.As(err, &exErr) {
		h.log.WithFields(logrus.Fields{
			"status":  exErr.Status,
			"message": exErr.Message,
		}).Warn("token exchange failed")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": exErr.Message})
		return
	}

	h.log.WithError(err).Error("token exchange failed")
	writeJSON(w, http.StatusBadGateway, map[string]string{"error": "token exchange failed"})
}

type recommendationsRequest struct {
	Genres      []string `json:"genres"`
	Moods       []string `json:"moods"`
	AccessToken string   `json:"access_token"`
}

type recommendationsResponse struct {
	Data  []recommend.RankedSong `json:"data"`
	Error string                 `json:"error,omitempty"`
}

// Recommendations returns ranked songs for the requested genres and moods.
func (h *Handlers) Recommendations(w http.ResponseWriter, r *http.Request) {
	var req recommendationsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	songs, err := h.source.Recommend(r.Context(), recommend.Request{
		Genres:      req.Genres,
		Moods:       req.Moods,
		AccessToken: req.AccessToken,
	})
	if err != nil {
		h.writeRecommendError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, recommendationsResponse{Data: songs})
}

// writeRecommendError maps source errors to responses. An empty or
// still-loading dataset reads as "no songs found"; upstream failures on the
// personalized path keep their status so clients can back off or re-login.
func (h *Handlers) writeRecommendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recommend.ErrNoMatches),
		errors.Is(err, recommend.ErrDatasetUnavailable):
		if errors.Is(err, recommend.ErrDatasetUnavailable) {
			h.log.Warn("recommendation requested before dataset load finished")
		}
		writeJSON(w, http.StatusNotFound, recommendationsResponse{
			Data:  []recommend.RankedSong{},
			Error: noMatchesMessage,
		})
		return
	case errors.Is(err, lastfm.ErrRateLimited):
		h.log.Warn("personalized recommendation rate limited")
		writeJSON(w, http.StatusTooManyRequests, recommendationsResponse{
			Data:  []recommend.RankedSong{},
			Error: "upstream rate limit exceeded",
		})
		return
	}

	var exErr *auth.ExchangeError
	if errors.As(err, &exErr) {
		status := http.StatusBadGateway
		if exErr.Status == http.StatusTooManyRequests {
			status = http.StatusTooManyRequests
		}
		h.log.WithField("status", exErr.Status).Warn("personalized recommendation upstream failure")
		writeJSON(w, status, recommendationsResponse{
			Data:  []recommend.RankedSong{},
			Error: exErr.Message,
		})
		return
	}

	h.log.WithError(err).Error("recommendation failed")
	writeJSON(w, http.StatusBadGateway, recommendationsResponse{
		Data:  []recommend.RankedSong{},
		Error: "recommendation source unavailable",
	})
}

type genreInsightsRequest struct {
	Genre string `json:"genre"`
}

// GenreInsights clusters a genre's songs into mood profiles.
func (h *Handlers) GenreInsights(w http.ResponseWriter, r *http.Request) {
	var req genreInsightsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Genre == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing genre"})
		return
	}

	if h.loader == nil || !h.loader.Loaded() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "dataset is not loaded yet"})
		return
	}

	profile, err := insights.GenreMoodProfile(h.loader.AllRows(), req.Genre, h.insightsCfg)
	if err != nil {
		if errors.Is(err, insights.ErrInsufficientData) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not enough songs in this genre"})
			return
		}
		h.log.WithError(err).WithField("genre", req.Genre).Error("genre clustering failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "clustering failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"genre": req.Genre, "clusters": profile})
}

type newsletterRequest struct {
	UserID            string          `json:"user_id"`
	ListeningTrends   json.RawMessage `json:"listening_trends"`
	GenreDistribution json.RawMessage `json:"genre_distribution"`
}

// SendNewsletter dispatches the newsletter script for a user.
func (h *Handlers) SendNewsletter(w http.ResponseWriter, r *http.Request) {
	if h.news == nil {
		writeJSON(w, http.StatusNotImplemented, map[string]string{"error": "newsletter dispatch is not configured"})
		return
	}

	var req newsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing user id"})
		return
	}

	result, err := h.news.Run(r.Context(), newsletter.Job{
		UserID:            req.UserID,
		ListeningTrends:   req.ListeningTrends,
		GenreDistribution: req.GenreDistribution,
	})
	if err != nil {
		var runErr *newsletter.RunError
		switch {
		case errors.Is(err, newsletter.ErrTimeout):
			writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "newsletter script timed out"})
		case errors.As(err, &runErr):
			h.log.WithField("exit_code", runErr.ExitCode).Error("newsletter script failed")
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": runErr.Stderr})
		default:
			h.log.WithError(err).Error("newsletter dispatch failed")
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "newsletter dispatch failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"job_id": result.JobID, "status": "sent"})
}

// Login returns the Spotify authorization URL the client should visit.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	state, err := generateOAuthState()
	if err != nil {
		h.log.WithError(err).Error("failed to generate oauth state")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to generate state"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": h.auth.AuthURL(state), "state": state})
}

// Health reports server and dataset status.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	rows := 0
	loaded := false
	if h.loader != nil {
		loaded = h.loader.Loaded()
		rows = len(h.loader.AllRows())
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"dataset_loaded": loaded,
		"rows":           rows,
	})
}

// generateOAuthState creates a random state string for CSRF protection.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
