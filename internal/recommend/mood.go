package recommend

import "strings"

// moodValence maps a mood label to the target valence used for filtering.
// Unknown moods fall back to neutral.
var moodValence = map[string]float64{
	"happy":     0.8,
	"sad":       0.2,
	"energetic": 0.9,
	"relaxed":   0.3,
	"angry":     0.1,
	"calm":      0.4,
}

const neutralValence = 0.5

// Tolerance is the maximum distance between a song's valence and a target
// valence for the song to match. Widening it trades precision for recall.
const Tolerance = 0.025

// DefaultGenres is the canonical genre set used when the caller selects none.
var DefaultGenres = []string{"Pop", "Rock", "Rap", "Latin", "EDM", "R&B"}

// DefaultMoods is the full mood set used when the caller selects none.
var DefaultMoods = []string{"Happy", "Sad", "Energetic", "Relaxed", "Angry", "Calm"}

// TargetValence returns the target valence for a mood label.
func TargetValence(mood string) float64 {
	if v, ok := moodValence[strings.ToLower(mood)]; ok {
		return v
	}
	return neutralValence
}

// ValenceMood maps a valence back to a display mood label.
//
// These buckets are independent of the moodValence table above; the two
// have never been inverses of each other (calm targets 0.4 but 0.4 decodes
// to "Calm" only because it clears the 0.35 threshold) and downstream
// consumers rely on these exact boundaries.
func ValenceMood(valence float64) string {
	switch {
	case valence > 0.85:
		return "Energetic"
	case valence > 0.6:
		return "Happy"
	case valence > 0.35:
		return "Calm"
	case valence > 0.25:
		return "Relaxed"
	case valence > 0.15:
		return "Sad"
	default:
		return "Angry"
	}
}
