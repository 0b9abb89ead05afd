package recommend

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/insightify/spotify-insights/internal/dataset"
)

// tableFunc adapts a function to the Table interface.
type tableFunc func() []dataset.Song

func (f tableFunc) AllRows() []dataset.Song { return f() }

func staticTable(songs []dataset.Song) Table {
	return tableFunc(func() []dataset.Song { return songs })
}

func TestRankValenceWindow(t *testing.T) {
	songs := []dataset.Song{
		{TrackName: "In Window", Artist: "A", Genre: "pop", Popularity: 50, Valence: 0.81},
		{TrackName: "Out Of Window", Artist: "B", Genre: "pop", Popularity: 90, Valence: 0.5},
	}
	filter := NewFilter(staticTable(songs))

	got, err := filter.Rank([]string{"pop"}, []string{"happy"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}

	want := []RankedSong{
		{Serial: 1, Name: "In Window", Artist: "A", Genre: "pop", Mood: "Happy"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Rank() = %+v, want %+v", got, want)
	}
}

func TestRankEveryMoodRespectsTolerance(t *testing.T) {
	// One song exactly on each target, one just inside, one just outside.
	var songs []dataset.Song
	for _, mood := range DefaultMoods {
		target := TargetValence(mood)
		songs = append(songs,
			dataset.Song{TrackName: mood + "-exact", Genre: "pop", Popularity: 50, Valence: target},
			dataset.Song{TrackName: mood + "-inside", Genre: "pop", Popularity: 40, Valence: target + 0.02},
			dataset.Song{TrackName: mood + "-outside", Genre: "pop", Popularity: 99, Valence: target + 0.03},
		)
	}
	filter := NewFilter(staticTable(songs))

	for _, mood := range DefaultMoods {
		t.Run(mood, func(t *testing.T) {
			got, err := filter.Rank(DefaultGenres, []string{mood})
			if err != nil {
				t.Fatalf("Rank() error = %v", err)
			}
			target := TargetValence(mood)
			for _, song := range got {
				var valence float64
				for _, s := range songs {
					if s.TrackName == song.Name {
						valence = s.Valence
					}
				}
				if diff := valence - target; diff > Tolerance || diff < -Tolerance {
					t.Errorf("song %q valence %v outside tolerance of target %v", song.Name, valence, target)
				}
			}
		})
	}
}

func TestRankSortAndCap(t *testing.T) {
	var songs []dataset.Song
	for i := 0; i < 30; i++ {
		songs = append(songs, dataset.Song{
			TrackName:  fmt.Sprintf("song-%02d", i),
			Genre:      "rock",
			Popularity: i % 25,
			Valence:    0.8,
		})
	}
	filter := NewFilter(staticTable(songs))

	got, err := filter.Rank([]string{"rock"}, []string{"happy"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}

	if len(got) != MaxResults {
		t.Fatalf("len = %d, want %d", len(got), MaxResults)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Serial != i+1 {
			t.Errorf("serial[%d] = %d, want %d", i, got[i].Serial, i+1)
		}
	}

	popularity := func(name string) int {
		for _, s := range songs {
			if s.TrackName == name {
				return s.Popularity
			}
		}
		t.Fatalf("unknown song %q", name)
		return 0
	}
	for i := 1; i < len(got); i++ {
		if popularity(got[i-1].Name) < popularity(got[i].Name) {
			t.Errorf("results not sorted by popularity descending at index %d", i)
		}
	}
}

func TestRankStableTies(t *testing.T) {
	songs := []dataset.Song{
		{TrackName: "first", Genre: "pop", Popularity: 50, Valence: 0.8},
		{TrackName: "second", Genre: "pop", Popularity: 50, Valence: 0.8},
		{TrackName: "third", Genre: "pop", Popularity: 50, Valence: 0.8},
	}
	filter := NewFilter(staticTable(songs))

	got, err := filter.Rank([]string{"pop"}, []string{"happy"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	for i, want := range []string{"first", "second", "third"} {
		if got[i].Name != want {
			t.Errorf("tie order[%d] = %q, want %q (dataset order)", i, got[i].Name, want)
		}
	}
}

func TestRankIdempotent(t *testing.T) {
	songs := []dataset.Song{
		{TrackName: "a", Genre: "pop", Popularity: 10, Valence: 0.8},
		{TrackName: "b", Genre: "pop", Popularity: 90, Valence: 0.79},
		{TrackName: "c", Genre: "rock", Popularity: 50, Valence: 0.8},
	}
	filter := NewFilter(staticTable(songs))

	first, err := filter.Rank([]string{"pop", "rock"}, []string{"happy"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	second, err := filter.Rank([]string{"pop", "rock"}, []string{"happy"})
	if err != nil {
		t.Fatalf("Rank() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Rank() not idempotent: %+v vs %+v", first, second)
	}
}

func TestRankErrors(t *testing.T) {
	t.Run("empty table", func(t *testing.T) {
		filter := NewFilter(staticTable(nil))
		_, err := filter.Rank([]string{"pop"}, []string{"happy"})
		if !errors.Is(err, ErrDatasetUnavailable) {
			t.Errorf("error = %v, want ErrDatasetUnavailable", err)
		}
	})

	t.Run("no matches", func(t *testing.T) {
		songs := []dataset.Song{
			{TrackName: "a", Genre: "jazz", Popularity: 10, Valence: 0.8},
		}
		filter := NewFilter(staticTable(songs))
		_, err := filter.Rank([]string{"pop"}, []string{"happy"})
		if !errors.Is(err, ErrNoMatches) {
			t.Errorf("error = %v, want ErrNoMatches", err)
		}
	})
}

func TestFilterBothEmptySkipsScan(t *testing.T) {
	scanned := false
	table := tableFunc(func() []dataset.Song {
		scanned = true
		return nil
	})
	filter := NewFilter(table)

	got, err := filter.Recommend(context.Background(), Request{})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Recommend() = %+v, want empty", got)
	}
	if scanned {
		t.Error("dataset was scanned for an empty request")
	}
}

// sourceFunc adapts a function to the Source interface.
type sourceFunc func(ctx context.Context, req Request) ([]RankedSong, error)

func (f sourceFunc) Recommend(ctx context.Context, req Request) ([]RankedSong, error) {
	return f(ctx, req)
}

func TestSelector(t *testing.T) {
	staticCalled, personalCalled := false, false
	sel := &Selector{
		Static: sourceFunc(func(ctx context.Context, req Request) ([]RankedSong, error) {
			staticCalled = true
			return []RankedSong{{Serial: 1, Name: "static"}}, nil
		}),
		Personalized: sourceFunc(func(ctx context.Context, req Request) ([]RankedSong, error) {
			personalCalled = true
			return []RankedSong{{Serial: 1, Name: "personal"}}, nil
		}),
	}

	t.Run("filters select static path", func(t *testing.T) {
		staticCalled, personalCalled = false, false
		_, err := sel.Recommend(context.Background(), Request{Genres: []string{"pop"}, AccessToken: "tok"})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if !staticCalled || personalCalled {
			t.Errorf("static=%v personalized=%v, want static only", staticCalled, personalCalled)
		}
	})

	t.Run("empty sets with token select personalized path", func(t *testing.T) {
		staticCalled, personalCalled = false, false
		_, err := sel.Recommend(context.Background(), Request{AccessToken: "tok"})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if staticCalled || !personalCalled {
			t.Errorf("static=%v personalized=%v, want personalized only", staticCalled, personalCalled)
		}
	})

	t.Run("empty sets without token return empty", func(t *testing.T) {
		staticCalled, personalCalled = false, false
		got, err := sel.Recommend(context.Background(), Request{})
		if err != nil {
			t.Fatalf("Recommend() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("Recommend() = %+v, want empty", got)
		}
		if staticCalled || personalCalled {
			t.Error("no source should be invoked for an empty unauthenticated request")
		}
	})
}

func TestPersonalized(t *testing.T) {
	p := &Personalized{
		TopArtists: func(ctx context.Context, token string, limit int) ([]string, error) {
			return []string{"Artist One", "Artist Two"}, nil
		},
		TopTracks: func(ctx context.Context, artist string, limit int) ([]string, error) {
			if artist == "Artist Two" {
				return nil, errors.New("lastfm down")
			}
			return []string{"Track A", "Track B"}, nil
		},
	}

	got, err := p.Recommend(context.Background(), Request{AccessToken: "tok"})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	want := []RankedSong{
		{Serial: 1, Name: "Track A", Artist: "Artist One"},
		{Serial: 2, Name: "Track B", Artist: "Artist One"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Recommend() = %+v, want %+v", got, want)
	}
}

func TestPersonalizedAllArtistsFail(t *testing.T) {
	upstream := errors.New("rate limit exceeded")
	p := &Personalized{
		TopArtists: func(ctx context.Context, token string, limit int) ([]string, error) {
			return []string{"Artist One", "Artist Two"}, nil
		},
		TopTracks: func(ctx context.Context, artist string, limit int) ([]string, error) {
			return nil, upstream
		},
	}

	_, err := p.Recommend(context.Background(), Request{AccessToken: "tok"})
	if !errors.Is(err, upstream) {
		t.Errorf("error = %v, want wrapped %v", err, upstream)
	}
	if errors.Is(err, ErrNoMatches) {
		t.Error("upstream failure must not read as ErrNoMatches")
	}
}

func TestPersonalizedNoArtists(t *testing.T) {
	p := &Personalized{
		TopArtists: func(ctx context.Context, token string, limit int) ([]string, error) {
			return nil, nil
		},
		TopTracks: func(ctx context.Context, artist string, limit int) ([]string, error) {
			return []string{"x"}, nil
		},
	}
	_, err := p.Recommend(context.Background(), Request{AccessToken: "tok"})
	if !errors.Is(err, ErrNoMatches) {
		t.Errorf("error = %v, want ErrNoMatches", err)
	}
}
