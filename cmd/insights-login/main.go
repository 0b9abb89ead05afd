// Command insights-login runs the OAuth authorization code flow against a
// running spotify-insights backend and stores the resulting credentials in
// the local credential file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/insightify/spotify-insights/internal/config"
	"github.com/insightify/spotify-insights/internal/session"
)

const callbackTimeout = 2 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	storage, err := session.DefaultStorage()
	if err != nil {
		return fmt.Errorf("opening credential storage: %w", err)
	}
	exchanger := &session.HTTPExchanger{BaseURL: cfg.BackendURL}

	ctx := context.Background()

	// First pass: adopt or refresh stored credentials without user action.
	result := session.NewManager(storage, exchanger).Initialize(ctx, "")
	if result.Phase == session.Authenticated {
		fmt.Printf("Already authenticated as %s\n", displayUser(result.Credentials))
		return nil
	}

	authURL, state, err := fetchLoginURL(ctx, cfg.BackendURL)
	if err != nil {
		return fmt.Errorf("fetching login URL: %w", err)
	}

	code, err := waitForCallback(ctx, cfg.RedirectURI, authURL, state)
	if err != nil {
		return err
	}

	// Fresh manager: the code belongs to a new navigation.
	result = session.NewManager(storage, exchanger).Initialize(ctx, code)
	if result.Phase != session.Authenticated {
		if result.Err != nil {
			return fmt.Errorf("authentication failed: %w", result.Err)
		}
		return errors.New("authentication failed")
	}

	fmt.Printf("Authenticated as %s\n", displayUser(result.Credentials))
	fmt.Printf("Credentials saved to %s\n", storage.Path())
	return nil
}

func displayUser(creds *session.Credentials) string {
	if creds == nil || creds.UserID == "" {
		return "(unknown user)"
	}
	return creds.UserID
}

// fetchLoginURL asks the backend for the Spotify authorization URL.
func fetchLoginURL(ctx context.Context, backendURL string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, backendURL+"/api/login", nil)
	if err != nil {
		return "", "", err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("backend returned status %d", resp.StatusCode)
	}

	var decoded struct {
		URL   string `json:"url"`
		State string `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", "", fmt.Errorf("decoding response: %w", err)
	}
	if decoded.URL == "" {
		return "", "", errors.New("backend returned empty login URL")
	}
	return decoded.URL, decoded.State, nil
}

// waitForCallback serves the OAuth redirect URI on the loopback interface
// and returns the authorization code from the first matching callback.
func waitForCallback(ctx context.Context, redirectURI, authURL, state string) (string, error) {
	parsed, err := url.Parse(redirectURI)
	if err != nil {
		return "", fmt.Errorf("parsing redirect URI: %w", err)
	}
	path := parsed.Path
	if path == "" {
		path = "/"
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if state != "" && r.URL.Query().Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			errCh <- errors.New("oauth state mismatch")
			return
		}
		if errMsg := r.URL.Query().Get("error"); errMsg != "" {
			http.Error(w, "Authentication failed: "+errMsg, http.StatusBadRequest)
			errCh <- fmt.Errorf("spotify auth error: %s", errMsg)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "Missing authorization code", http.StatusBadRequest)
			errCh <- errors.New("callback missing authorization code")
			return
		}
		fmt.Fprintln(w, "Authentication complete. You can close this window.")
		codeCh <- code
	})

	server := &http.Server{
		Addr:    parsed.Host,
		Handler: mux,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server error: %w", err)
		}
	}()

	fmt.Println("\nTo authenticate, open this URL in your browser:")
	fmt.Println(authURL)
	fmt.Println("\nWaiting for authentication...")

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		_ = server.Shutdown(ctx)
		return "", err
	case <-time.After(callbackTimeout):
		_ = server.Shutdown(ctx)
		return "", errors.New("timed out waiting for authentication")
	case <-ctx.Done():
		_ = server.Shutdown(ctx)
		return "", ctx.Err()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)

	return code, nil
}
