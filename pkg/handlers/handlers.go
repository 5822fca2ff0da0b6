// Package handlers exposes the client core over a local JSON API. Every
// dependency is injected through Application; nothing here reaches for
// package level state.
package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/oauth2"

	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/events"
	"Mood-Music-Go/pkg/feedback"
	"Mood-Music-Go/pkg/library"
	"Mood-Music-Go/pkg/mood"
	"Mood-Music-Go/pkg/music"
	"Mood-Music-Go/pkg/persistence"
	"Mood-Music-Go/pkg/player"
	"Mood-Music-Go/pkg/prefs"
)

// Authenticator is the part of the Spotify OAuth flow used by Login and
// OAuthCallback. spotify.Authenticator satisfies it.
type Authenticator interface {
	AuthURL(state string) string
	Token(state string, r *http.Request) (*oauth2.Token, error)
}

// MoodDetector is implemented by *mood.Detector.
type MoodDetector interface {
	Detect(ctx context.Context) (mood.Detection, error)
	SetManual(ctx context.Context, m mood.Mood) (mood.Detection, error)
	Current(ctx context.Context) (mood.Detection, bool)
	CooldownRemaining(ctx context.Context) time.Duration
}

// RemoteHistory is the listening history kept by the persistence
// collaborator. *persistence.Client satisfies it.
type RemoteHistory interface {
	ListHistory(ctx context.Context, limit, offset int) ([]persistence.HistoryEntry, int, error)
	DeleteHistory(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
}

// Application holds the dependencies shared by the handlers.
type Application struct {
	Player        *player.Player
	Mood          MoodDetector
	Catalog       music.Service
	Likes         *library.Likes
	DB            *db.DB
	Board         *feedback.Board
	Bus           *events.Bus
	Prefs         *prefs.Prefs
	Authenticator Authenticator
	// RemoteHistory is nil when there is no signed in session.
	RemoteHistory RemoteHistory
	SignKey       []byte
	// UserID owns local rows such as playlists, history and tokens.
	UserID string
}

// Routes registers every endpoint on a new mux wrapped in SecurityHeaders.
func (app *Application) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/player", app.PlayerState)
	mux.HandleFunc("POST /api/player/play", app.PlayerPlay)
	mux.HandleFunc("POST /api/player/toggle", app.playerAction(func(p *player.Player) { p.TogglePlayPause() }))
	mux.HandleFunc("POST /api/player/next", app.playerAction(func(p *player.Player) { p.Next() }))
	mux.HandleFunc("POST /api/player/previous", app.playerAction(func(p *player.Player) { p.Previous() }))
	mux.HandleFunc("POST /api/player/shuffle", app.playerAction(func(p *player.Player) { p.ToggleShuffle() }))
	mux.HandleFunc("POST /api/player/repeat", app.playerAction(func(p *player.Player) { p.ToggleRepeat() }))
	mux.HandleFunc("POST /api/player/clear", app.playerAction(func(p *player.Player) { p.ClearQueue() }))
	mux.HandleFunc("POST /api/player/seek", app.PlayerSeek)
	mux.HandleFunc("POST /api/player/volume", app.PlayerVolume)
	mux.HandleFunc("DELETE /api/player/queue/{index}", app.PlayerRemove)

	mux.HandleFunc("GET /api/mood", app.MoodCurrent)
	mux.HandleFunc("POST /api/mood", app.MoodSet)
	mux.HandleFunc("POST /api/mood/detect", app.MoodDetect)
	mux.HandleFunc("GET /api/mood/history", app.MoodHistoryJSON)
	mux.HandleFunc("GET /api/mood/stats", app.MoodStatsJSON)

	mux.HandleFunc("GET /api/search", app.SearchJSON)
	mux.HandleFunc("GET /api/recommendations/mood", app.RecommendationsMood)

	mux.HandleFunc("GET /api/liked", app.LikedJSON)
	mux.HandleFunc("POST /api/liked", app.ToggleLike)
	mux.HandleFunc("DELETE /api/liked/{id}", app.Unlike)

	mux.HandleFunc("GET /api/history", app.HistoryJSON)
	mux.HandleFunc("DELETE /api/history", app.ClearHistory)
	mux.HandleFunc("DELETE /api/history/{id}", app.DeleteHistory)
	mux.HandleFunc("GET /api/history/remote", app.RemoteHistoryJSON)
	mux.HandleFunc("DELETE /api/history/remote/{id}", app.DeleteRemoteHistory)
	mux.HandleFunc("GET /api/insights", app.InsightsJSON)
	mux.HandleFunc("GET /api/insights/tracks", app.InsightsTracksJSON)
	mux.HandleFunc("GET /api/insights/monthly", app.InsightsMonthlyJSON)

	mux.HandleFunc("GET /api/playlists", app.PlaylistsJSON)
	mux.HandleFunc("POST /api/playlists", app.CreatePlaylist)
	mux.HandleFunc("PUT /api/playlists/{id}", app.RenamePlaylist)
	mux.HandleFunc("DELETE /api/playlists/{id}", app.DeletePlaylist)
	mux.HandleFunc("GET /api/playlists/{id}/tracks", app.PlaylistTracks)
	mux.HandleFunc("POST /api/playlists/{id}/tracks", app.AddPlaylistTrack)
	mux.HandleFunc("DELETE /api/playlists/{id}/tracks/{track}", app.RemovePlaylistTrack)

	mux.HandleFunc("GET /api/feedback", app.FeedbackJSON)
	mux.HandleFunc("POST /api/feedback", app.AddFeedback)
	mux.HandleFunc("POST /api/feedback/{id}/vote", app.VoteFeedback)

	mux.HandleFunc("GET /api/theme", app.Theme)
	mux.HandleFunc("PUT /api/theme", app.SetTheme)
	mux.HandleFunc("GET /api/preferences/languages", app.Languages)
	mux.HandleFunc("PUT /api/preferences/languages", app.SetLanguages)

	mux.HandleFunc("GET /api/events", app.Events)

	mux.HandleFunc("GET /login", app.Login)
	mux.HandleFunc("GET /callback", app.OAuthCallback)
	mux.Handle("GET /metrics", promhttp.Handler())

	return SecurityHeaders(mux)
}

// queryInt reads a positive integer query parameter, returning def when it
// is missing or invalid.
func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
