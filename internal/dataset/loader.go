// Package dataset loads the song dataset from a remote CSV into memory.
//
// The table is loaded once at process start and is read-only afterwards.
// Requests arriving before the load completes observe an empty table.
package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const fetchTimeout = 30 * time.Second

// ErrAlreadyLoaded is returned when Load is called more than once.
var ErrAlreadyLoaded = errors.New("dataset already loaded")

// Song is one row of the dataset. Immutable after load.
type Song struct {
	TrackName    string
	Artist       string
	Genre        string
	Popularity   int
	Valence      float64
	Energy       float64
	Danceability float64
	Acousticness float64
}

// columns the loader requires in the CSV header.
var requiredColumns = []string{
	"track_name", "track_artist", "playlist_genre", "track_popularity",
	"valence", "energy", "danceability", "acousticness",
}

// Loader fetches and holds the song table.
type Loader struct {
	url    string
	client *resty.Client
	log    *logrus.Logger

	mu      sync.RWMutex
	songs   []Song
	loaded  bool
	started bool
}

// NewLoader creates a Loader for the given CSV URL.
func NewLoader(url string, log *logrus.Logger) *Loader {
	if log == nil {
		log = logrus.StandardLogger()
	}
	client := resty.New().
		SetTimeout(fetchTimeout).
		SetDoNotParseResponse(true)

	return &Loader{
		url:    url,
		client: client,
		log:    log,
	}
}

// Load fetches and parses the dataset. It runs at most once; a failed
// attempt is not retried and leaves the table empty. Malformed rows are
// skipped, not fatal.
func (l *Loader) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return ErrAlreadyLoaded
	}
	l.started = true
	l.mu.Unlock()

	resp, err := l.client.R().SetContext(ctx).Get(l.url)
	if err != nil {
		return fmt.Errorf("fetching dataset: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != 200 {
		return fmt.Errorf("fetching dataset: unexpected status %d", resp.StatusCode())
	}

	songs, skipped, err := parse(body)
	if err != nil {
		return err
	}

	l.mu.Lock()
	l.songs = songs
	l.loaded = true
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"rows":    len(songs),
		"skipped": skipped,
	}).Info("dataset loaded")
	return nil
}

// AllRows returns the loaded table, or an empty slice if loading has not
// completed or failed. The returned slice must not be modified.
func (l *Loader) AllRows() []Song {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.songs
}

// Loaded reports whether the dataset finished loading successfully.
func (l *Loader) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// parse reads CSV rows into Songs, skipping rows that cannot be parsed.
func parse(r io.Reader) ([]Song, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("reading dataset header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, 0, fmt.Errorf("dataset header missing column %q", col)
		}
	}

	var songs []Song
	skipped := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			skipped++
			continue
		}

		song, ok := parseRow(record, index)
		if !ok {
			skipped++
			continue
		}
		songs = append(songs, song)
	}

	return songs, skipped, nil
}

func parseRow(record []string, index map[string]int) (Song, bool) {
	field := func(name string) (string, bool) {
		i := index[name]
		if i >= len(record) {
			return "", false
		}
		return record[i], true
	}

	name, ok1 := field("track_name")
	artist, ok2 := field("track_artist")
	genre, ok3 := field("playlist_genre")
	if !ok1 || !ok2 || !ok3 || genre == "" {
		return Song{}, false
	}

	popStr, ok := field("track_popularity")
	if !ok {
		return Song{}, false
	}
	popularity, err := strconv.Atoi(popStr)
	if err != nil {
		return Song{}, false
	}

	floats := make(map[string]float64, 4)
	for _, col := range []string{"valence", "energy", "danceability", "acousticness"} {
		raw, ok := field(col)
		if !ok {
			return Song{}, false
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Song{}, false
		}
		floats[col] = v
	}

	return Song{
		TrackName:    name,
		Artist:       artist,
		Genre:        genre,
		Popularity:   popularity,
		Valence:      floats["valence"],
		Energy:       floats["energy"],
		Danceability: floats["danceability"],
		Acousticness: floats["acousticness"],
	}, true
}
