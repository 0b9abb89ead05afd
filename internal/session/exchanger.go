package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/insightify/spotify-insights/internal/auth"
)

// HTTPExchanger implements Exchanger against the backend token endpoints.
type HTTPExchanger struct {
	// BaseURL is the backend base URL, e.g. "http://127.0.0.1:3002".
	BaseURL string

	// Client overrides the default HTTP client when set.
	Client *http.Client
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
	Error        string `json:"error"`
}

// ExchangeCode calls POST /api/token.
func (e *HTTPExchanger) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	return e.post(ctx, "/api/token", map[string]string{"code": code})
}

// Refresh calls POST /api/refresh-token.
func (e *HTTPExchanger) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	return e.post(ctx, "/api/refresh-token", map[string]string{"refresh_token": refreshToken})
}

func (e *HTTPExchanger) post(ctx context.Context, path string, payload map[string]string) (*TokenGrant, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &auth.ExchangeError{Message: err.Error()}
	}
	defer resp.Body.Close()

	var decoded tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := decoded.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &auth.ExchangeError{Status: resp.StatusCode, Message: msg}
	}

	return &TokenGrant{
		AccessToken:  decoded.AccessToken,
		RefreshToken: decoded.RefreshToken,
		ExpiresIn:    decoded.ExpiresIn,
		UserID:       decoded.UserID,
	}, nil
}

var _ Exchanger = (*HTTPExchanger)(nil)
