package recommend

import (
	"context"
	"fmt"
)

const (
	topArtistCount  = 4
	tracksPerArtist = 5
)

// TopArtistsFunc lists the display names of a listener's top artists.
type TopArtistsFunc func(ctx context.Context, accessToken string, limit int) ([]string, error)

// TopTracksFunc lists an artist's most popular track names.
type TopTracksFunc func(ctx context.Context, artist string, limit int) ([]string, error)

// Personalized recommends songs from the listener's top artists instead of
// the static dataset. Genre and mood are unknown on this path and are left
// empty in the results.
type Personalized struct {
	TopArtists TopArtistsFunc
	TopTracks  TopTracksFunc
}

// Recommend implements Source.
func (p *Personalized) Recommend(ctx context.Context, req Request) ([]RankedSong, error) {
	artists, err := p.TopArtists(ctx, req.AccessToken, topArtistCount)
	if err != nil {
		return nil, fmt.Errorf("fetching top artists: %w", err)
	}
	if len(artists) == 0 {
		return nil, ErrNoMatches
	}

	var results []RankedSong
	var lastErr error
	for _, artist := range artists {
		tracks, err := p.TopTracks(ctx, artist, tracksPerArtist)
		if err != nil {
			// One artist failing should not sink the whole request.
			lastErr = err
			continue
		}
		for _, name := range tracks {
			results = append(results, RankedSong{
				Serial: len(results) + 1,
				Name:   name,
				Artist: artist,
			})
			if len(results) == MaxResults {
				return results, nil
			}
		}
	}

	if len(results) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("fetching top tracks: %w", lastErr)
		}
		return nil, ErrNoMatches
	}
	return results, nil
}
