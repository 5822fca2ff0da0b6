package music

import (
	"context"
	"strings"
)

// Offline serves a small built-in dataset. It is the last source in the
// fallback chain so search and recommendations still return something when
// every network collaborator is unreachable.
type Offline struct {
	Tracks []Track
}

var _ Service = Offline{}

// NewOffline returns an Offline service seeded with the default dataset.
func NewOffline() Offline {
	return Offline{Tracks: defaultDataset()}
}

// SearchTrack matches the query case-insensitively against title, artist and
// album.
func (o Offline) SearchTrack(ctx context.Context, q string, limit int) ([]Track, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	var out []Track
	for _, t := range o.Tracks {
		if q == "" ||
			strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Artist), q) ||
			strings.Contains(strings.ToLower(t.Album), q) {
			out = append(out, t)
		}
	}
	return limitTracks(out, limit)
}

// MoodRecommendations ranks the dataset by distance to the mood's target
// valence and energy. The language qualifier is ignored.
func (o Offline) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]Track, error) {
	tv, te := moodTarget(mood)
	ranked := make([]Track, len(o.Tracks))
	copy(ranked, o.Tracks)
	dist := func(t Track) float64 {
		dv, de := t.Valence-tv, t.Energy-te
		return dv*dv + de*de
	}
	// insertion sort keeps the dataset order for ties
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && dist(ranked[j]) < dist(ranked[j-1]); j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}
	return limitTracks(ranked, limit)
}

func limitTracks(ts []Track, limit int) ([]Track, error) {
	if len(ts) == 0 {
		return nil, ErrNoTracks
	}
	if limit > 0 && len(ts) > limit {
		ts = ts[:limit]
	}
	return ts, nil
}

// moodTarget maps a mood label onto a (valence, energy) point.
func moodTarget(mood string) (float64, float64) {
	switch strings.ToLower(mood) {
	case "happy":
		return 0.9, 0.7
	case "sad":
		return 0.15, 0.3
	case "energetic":
		return 0.7, 0.95
	case "calm":
		return 0.55, 0.2
	case "angry":
		return 0.2, 0.9
	case "romantic":
		return 0.7, 0.4
	case "confident":
		return 0.75, 0.8
	case "chill":
		return 0.6, 0.35
	case "fear":
		return 0.1, 0.5
	case "surprise":
		return 0.8, 0.85
	case "disgust":
		return 0.25, 0.75
	default:
		return 0.5, 0.5
	}
}

func defaultDataset() []Track {
	return []Track{
		{ID: "offline-1", Title: "Walking on Sunshine", Artist: "Katrina and the Waves", Album: "Walking on Sunshine", Duration: 239, Energy: 0.8, Valence: 0.95, Tempo: 110},
		{ID: "offline-2", Title: "Happy", Artist: "Pharrell Williams", Album: "G I R L", Duration: 233, Energy: 0.82, Valence: 0.96, Tempo: 160},
		{ID: "offline-3", Title: "Someone Like You", Artist: "Adele", Album: "21", Duration: 285, Energy: 0.32, Valence: 0.28, Tempo: 68},
		{ID: "offline-4", Title: "Hurt", Artist: "Johnny Cash", Album: "American IV", Duration: 218, Energy: 0.2, Valence: 0.1, Tempo: 94},
		{ID: "offline-5", Title: "Eye of the Tiger", Artist: "Survivor", Album: "Eye of the Tiger", Duration: 245, Energy: 0.9, Valence: 0.55, Tempo: 109},
		{ID: "offline-6", Title: "Killing in the Name", Artist: "Rage Against the Machine", Album: "Rage Against the Machine", Duration: 314, Energy: 0.95, Valence: 0.2, Tempo: 89},
		{ID: "offline-7", Title: "Weightless", Artist: "Marconi Union", Album: "Weightless", Duration: 480, Energy: 0.1, Valence: 0.4, Tempo: 60},
		{ID: "offline-8", Title: "Clair de Lune", Artist: "Claude Debussy", Album: "Suite bergamasque", Duration: 300, Energy: 0.05, Valence: 0.45, Tempo: 66},
		{ID: "offline-9", Title: "Perfect", Artist: "Ed Sheeran", Album: "Divide", Duration: 263, Energy: 0.45, Valence: 0.68, Tempo: 95},
		{ID: "offline-10", Title: "Stronger", Artist: "Kanye West", Album: "Graduation", Duration: 312, Energy: 0.72, Valence: 0.5, Tempo: 104},
		{ID: "offline-11", Title: "Sunset Lover", Artist: "Petit Biscuit", Album: "Presence", Duration: 237, Energy: 0.4, Valence: 0.6, Tempo: 91},
		{ID: "offline-12", Title: "Mr. Blue Sky", Artist: "Electric Light Orchestra", Album: "Out of the Blue", Duration: 303, Energy: 0.78, Valence: 0.85, Tempo: 178},
	}
}
