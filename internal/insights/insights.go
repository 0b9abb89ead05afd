// Package insights derives mood profiles from the song dataset using
// audio-feature clustering.
package insights

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"

	"github.com/insightify/spotify-insights/internal/dataset"
)

// ErrInsufficientData is returned when a genre has too few songs to cluster.
var ErrInsufficientData = errors.New("not enough songs to derive a mood profile")

// Config holds clustering parameters.
type Config struct {
	NumClusters    int // number of mood clusters to create (default: 3)
	MinClusterSize int // clusters smaller than this are dropped (default: 3)
	ExampleCount   int // example tracks reported per cluster (default: 5)
}

// DefaultConfig returns the recommended default configuration.
func DefaultConfig() Config {
	return Config{
		NumClusters:    3,
		MinClusterSize: 3,
		ExampleCount:   5,
	}
}

// MoodCluster is one mood grouping within a genre.
type MoodCluster struct {
	Name     string             `json:"name"`
	Count    int                `json:"count"`
	Centroid map[string]float64 `json:"centroid"`
	Examples []string           `json:"examples"`
}

// featureNames defines the audio features used for clustering.
var featureNames = []string{"energy", "valence", "danceability", "acousticness"}

// songObservation wraps a Song to implement clusters.Observation.
type songObservation struct {
	song   *dataset.Song
	coords clusters.Coordinates
}

func (o songObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o songObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// GenreMoodProfile clusters the songs of one genre by audio feature
// similarity and names each cluster after its centroid's mood.
// Clusters smaller than cfg.MinClusterSize are dropped. The result is
// sorted by cluster size, largest first.
func GenreMoodProfile(songs []dataset.Song, genre string, cfg Config) ([]MoodCluster, error) {
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultConfig().NumClusters
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = DefaultConfig().MinClusterSize
	}
	if cfg.ExampleCount <= 0 {
		cfg.ExampleCount = DefaultConfig().ExampleCount
	}

	var matched []*dataset.Song
	for i := range songs {
		if strings.EqualFold(songs[i].Genre, genre) {
			matched = append(matched, &songs[i])
		}
	}
	if len(matched) < cfg.NumClusters {
		return nil, ErrInsufficientData
	}

	var obs clusters.Observations
	for _, song := range matched {
		obs = append(obs, songObservation{
			song: song,
			coords: clusters.Coordinates{
				song.Energy,
				song.Valence,
				song.Danceability,
				song.Acousticness,
			},
		})
	}

	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil, fmt.Errorf("clustering genre %q: %w", genre, err)
	}

	var profile []MoodCluster
	for _, cluster := range result {
		var clusterSongs []*dataset.Song
		for _, o := range cluster.Observations {
			if so, ok := o.(songObservation); ok {
				clusterSongs = append(clusterSongs, so.song)
			}
		}
		if len(clusterSongs) < cfg.MinClusterSize {
			continue
		}

		centroid := make(map[string]float64, len(featureNames))
		for i, name := range featureNames {
			centroid[name] = cluster.Center[i]
		}

		// Most popular tracks represent the cluster.
		sort.SliceStable(clusterSongs, func(i, j int) bool {
			return clusterSongs[i].Popularity > clusterSongs[j].Popularity
		})
		examples := make([]string, 0, cfg.ExampleCount)
		for _, song := range clusterSongs {
			examples = append(examples, song.TrackName)
			if len(examples) == cfg.ExampleCount {
				break
			}
		}

		profile = append(profile, MoodCluster{
			Name:     moodName(centroid),
			Count:    len(clusterSongs),
			Centroid: centroid,
			Examples: examples,
		})
	}

	if len(profile) == 0 {
		return nil, ErrInsufficientData
	}

	sort.SliceStable(profile, func(i, j int) bool {
		return profile[i].Count > profile[j].Count
	})
	return profile, nil
}
