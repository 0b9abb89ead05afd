package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync/atomic"
	"testing"
	"time"
)

func topTracksBody(names ...string) topTracksResponse {
	var resp topTracksResponse
	for _, n := range names {
		resp.TopTracks.Track = append(resp.TopTracks.Track, Track{Name: n, URL: "http://last.fm/" + n})
	}
	return resp
}

func TestTopTracks(t *testing.T) {
	tests := []struct {
		name     string
		artist   string
		response any
		want     []string
		wantErr  error
	}{
		{
			name:     "artist has tracks",
			artist:   "Radiohead",
			response: topTracksBody("Creep", "Karma Police"),
			want:     []string{"Creep", "Karma Police"},
		},
		{
			name:     "artist has no tracks",
			artist:   "Unknown Artist",
			response: topTracksBody(),
			want:     []string{},
		},
		{
			name:     "invalid API key",
			artist:   "Test",
			response: apiError{Error: 10, Message: "Invalid API key"},
			wantErr:  ErrInvalidAPIKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if got := r.URL.Query().Get("method"); got != "artist.getTopTracks" {
					t.Errorf("method = %q, want artist.getTopTracks", got)
				}
				if got := r.URL.Query().Get("artist"); got != tt.artist {
					t.Errorf("artist = %q, want %q", got, tt.artist)
				}
				_ = json.NewEncoder(w).Encode(tt.response)
			}))
			defer server.Close()

			client := NewClient("test-key")
			client.baseURL = server.URL

			got, err := client.TopTracks(context.Background(), tt.artist, 5)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("TopTracks() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("TopTracks() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("TopTracks() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopTracksCaching(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = json.NewEncoder(w).Encode(topTracksBody("Song"))
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.baseURL = server.URL

	for i := 0; i < 3; i++ {
		if _, err := client.TopTracks(context.Background(), "Cher", 5); err != nil {
			t.Fatalf("TopTracks() error = %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("upstream calls = %d, want 1 (cached)", got)
	}
}

func TestTopTracksRateLimitRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_ = json.NewEncoder(w).Encode(apiError{Error: 29, Message: "Rate limit exceeded"})
			return
		}
		_ = json.NewEncoder(w).Encode(topTracksBody("Song"))
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.baseURL = server.URL

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	got, err := client.TopTracks(ctx, "Cher", 5)
	if err != nil {
		t.Fatalf("TopTracks() error = %v", err)
	}
	if len(got) != 1 || got[0] != "Song" {
		t.Errorf("TopTracks() = %v, want [Song]", got)
	}
	if calls.Load() != 2 {
		t.Errorf("upstream calls = %d, want 2 (one retry)", calls.Load())
	}
}
