// Package recommend filters the song dataset by genre and mood.
package recommend

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"

	"github.com/insightify/spotify-insights/internal/dataset"
)

// MaxResults caps the number of songs a recommendation returns.
const MaxResults = 20

// Sentinel errors.
var (
	// ErrNoMatches is returned when the filter ran but found nothing.
	ErrNoMatches = errors.New("no songs found matching the criteria")

	// ErrDatasetUnavailable is returned when the song table never loaded.
	ErrDatasetUnavailable = errors.New("song dataset is not available")
)

// RankedSong is one recommendation result.
type RankedSong struct {
	Serial int    `json:"serial"`
	Name   string `json:"name"`
	Artist string `json:"artist"`
	Genre  string `json:"genre,omitempty"`
	Mood   string `json:"mood,omitempty"`
}

// Table provides read access to the loaded song dataset.
type Table interface {
	AllRows() []dataset.Song
}

// Filter recommends songs from the static dataset.
type Filter struct {
	table Table

	// Tolerance overrides the package default when non-zero.
	Tolerance float64
}

// NewFilter creates a Filter over the given table.
func NewFilter(table Table) *Filter {
	return &Filter{table: table}
}

// Recommend implements Source. When both genre and mood sets are empty the
// caller is signaling "use my listening history"; the static filter returns
// an empty result without scanning the dataset.
func (f *Filter) Recommend(_ context.Context, req Request) ([]RankedSong, error) {
	if len(req.Genres) == 0 && len(req.Moods) == 0 {
		return []RankedSong{}, nil
	}
	return f.Rank(req.Genres, req.Moods)
}

// Rank filters the dataset by the given genre and mood sets, sorts by
// popularity descending (stable on dataset order) and returns at most
// MaxResults rows with 1-based serials.
func (f *Filter) Rank(genres, moods []string) ([]RankedSong, error) {
	if len(genres) == 0 {
		genres = DefaultGenres
	}
	if len(moods) == 0 {
		moods = DefaultMoods
	}

	tolerance := f.Tolerance
	if tolerance == 0 {
		tolerance = Tolerance
	}

	genreSet := make(map[string]bool, len(genres))
	for _, g := range genres {
		genreSet[strings.ToLower(g)] = true
	}

	targets := make([]float64, len(moods))
	for i, m := range moods {
		targets[i] = TargetValence(m)
	}

	rows := f.table.AllRows()
	if len(rows) == 0 {
		return nil, ErrDatasetUnavailable
	}

	var matched []dataset.Song
	for _, song := range rows {
		if !genreSet[strings.ToLower(song.Genre)] {
			continue
		}
		for _, target := range targets {
			if math.Abs(song.Valence-target) <= tolerance {
				matched = append(matched, song)
				break
			}
		}
	}

	if len(matched) == 0 {
		return nil, ErrNoMatches
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Popularity > matched[j].Popularity
	})
	if len(matched) > MaxResults {
		matched = matched[:MaxResults]
	}

	results := make([]RankedSong, len(matched))
	for i, song := range matched {
		results[i] = RankedSong{
			Serial: i + 1,
			Name:   song.TrackName,
			Artist: song.Artist,
			Genre:  song.Genre,
			Mood:   ValenceMood(song.Valence),
		}
	}
	return results, nil
}
