// Package music defines the provider-agnostic track model and the catalog
// interface consumed by the rest of the application. Implementations wrap the
// companion Spotify proxy, the Spotify Web API directly, YouTube or any other
// source. Tracks are referenced by ID across the queue, history and liked
// songs so providers prefix their IDs where collisions are possible.
package music

import (
	"context"
	"errors"
	"strings"
)

// ErrNoTracks is returned by services when a query matched nothing.
var ErrNoTracks = errors.New("no tracks found")

// Track is a playable item. Values are treated as immutable once built.
type Track struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album,omitempty"`
	Duration   float64 `json:"duration"` // seconds
	CoverURL   string  `json:"cover_url,omitempty"`
	PreviewURL string  `json:"preview_url,omitempty"`
	SpotifyURL string  `json:"spotify_url,omitempty"`
	Energy     float64 `json:"energy"`
	Valence    float64 `json:"valence"`
	Tempo      float64 `json:"tempo"`
	Liked      bool    `json:"liked"`
}

// DurationMillis returns the duration rounded to whole milliseconds, the unit
// used by the persistence collaborator.
func (t Track) DurationMillis() int {
	return int(t.Duration*1000 + 0.5)
}

// JoinArtists flattens an artist list the way collaborator payloads are
// displayed.
func JoinArtists(names []string) string {
	return strings.Join(names, ", ")
}

// Service exposes catalog search and mood based recommendations.
type Service interface {
	// SearchTrack returns at most limit tracks matching the free-text query.
	// ErrNoTracks is returned when nothing matched.
	SearchTrack(ctx context.Context, query string, limit int) ([]Track, error)

	// MoodRecommendations returns tracks suited to a mood label. language is
	// optional and narrows results to songs in that language.
	MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]Track, error)
}

var moodQueries = map[string]string{
	"happy":     "happy upbeat songs",
	"sad":       "sad emotional songs",
	"angry":     "angry rock metal songs",
	"neutral":   "chill indie songs",
	"fear":      "dark ambient songs",
	"disgust":   "punk grunge songs",
	"surprise":  "exciting uplifting songs",
	"energetic": "energetic workout songs",
	"calm":      "calm relaxing songs",
	"romantic":  "romantic love songs",
	"confident": "confident empowering songs",
	"chill":     "chill lofi songs",
}

// MoodQuery builds the search text used by providers that have no native
// mood endpoint. The language qualifier is appended space separated.
func MoodQuery(mood, language string) string {
	m := strings.ToLower(strings.TrimSpace(mood))
	q, ok := moodQueries[m]
	if !ok {
		q = m + " songs"
	}
	if language != "" {
		q += " " + language
	}
	return q
}
