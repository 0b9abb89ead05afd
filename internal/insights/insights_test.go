package insights

import (
	"errors"
	"fmt"
	"testing"

	"github.com/insightify/spotify-insights/internal/dataset"
)

func TestMoodName(t *testing.T) {
	tests := []struct {
		name     string
		centroid map[string]float64
		want     string
	}{
		{
			name:     "high energy high valence",
			centroid: map[string]float64{"energy": 0.8, "valence": 0.7, "acousticness": 0.1},
			want:     "Upbeat Party",
		},
		{
			name:     "high energy low valence",
			centroid: map[string]float64{"energy": 0.8, "valence": 0.3, "acousticness": 0.1},
			want:     "Intense & Dark",
		},
		{
			name:     "low energy high valence",
			centroid: map[string]float64{"energy": 0.3, "valence": 0.7, "acousticness": 0.1},
			want:     "Chill & Happy",
		},
		{
			name:     "low energy low valence",
			centroid: map[string]float64{"energy": 0.3, "valence": 0.3, "acousticness": 0.1},
			want:     "Reflective & Melancholy",
		},
		{
			name:     "acoustic modifier",
			centroid: map[string]float64{"energy": 0.3, "valence": 0.7, "acousticness": 0.8},
			want:     "Chill & Happy (Acoustic)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := moodName(tt.centroid); got != tt.want {
				t.Errorf("moodName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// genreSongs builds n songs clustered tightly around the given feature values.
func genreSongs(genre string, n int, energy, valence float64) []dataset.Song {
	songs := make([]dataset.Song, n)
	for i := range songs {
		jitter := float64(i) * 0.001
		songs[i] = dataset.Song{
			TrackName:    fmt.Sprintf("%s-%.1f-%.1f-%d", genre, energy, valence, i),
			Artist:       "Artist",
			Genre:        genre,
			Popularity:   50 + i,
			Energy:       energy + jitter,
			Valence:      valence + jitter,
			Danceability: 0.5,
			Acousticness: 0.1,
		}
	}
	return songs
}

func TestGenreMoodProfile(t *testing.T) {
	var songs []dataset.Song
	songs = append(songs, genreSongs("pop", 10, 0.9, 0.9)...)  // upbeat
	songs = append(songs, genreSongs("pop", 10, 0.2, 0.2)...)  // melancholy
	songs = append(songs, genreSongs("pop", 10, 0.9, 0.15)...) // dark
	songs = append(songs, genreSongs("rock", 10, 0.5, 0.5)...) // other genre, ignored

	profile, err := GenreMoodProfile(songs, "Pop", Config{NumClusters: 3, MinClusterSize: 3, ExampleCount: 2})
	if err != nil {
		t.Fatalf("GenreMoodProfile() error = %v", err)
	}

	if len(profile) == 0 {
		t.Fatal("GenreMoodProfile() returned no clusters")
	}

	total := 0
	names := make(map[string]bool)
	for _, cluster := range profile {
		total += cluster.Count
		names[cluster.Name] = true
		if len(cluster.Examples) == 0 || len(cluster.Examples) > 2 {
			t.Errorf("cluster %q has %d examples, want 1-2", cluster.Name, len(cluster.Examples))
		}
		for _, feature := range []string{"energy", "valence", "danceability", "acousticness"} {
			if _, ok := cluster.Centroid[feature]; !ok {
				t.Errorf("cluster %q centroid missing %q", cluster.Name, feature)
			}
		}
	}
	if total != 30 {
		t.Errorf("clustered songs = %d, want 30 (rock excluded)", total)
	}

	// Sorted largest first.
	for i := 1; i < len(profile); i++ {
		if profile[i-1].Count < profile[i].Count {
			t.Errorf("clusters not sorted by size at index %d", i)
		}
	}
}

func TestGenreMoodProfileInsufficientData(t *testing.T) {
	songs := genreSongs("pop", 2, 0.5, 0.5)

	_, err := GenreMoodProfile(songs, "pop", DefaultConfig())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}

func TestGenreMoodProfileUnknownGenre(t *testing.T) {
	songs := genreSongs("pop", 10, 0.5, 0.5)

	_, err := GenreMoodProfile(songs, "jazz", DefaultConfig())
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("error = %v, want ErrInsufficientData", err)
	}
}
