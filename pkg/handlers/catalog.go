package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/mood"
	"Mood-Music-Go/pkg/music"
)

const defaultLimit = 20

// SearchJSON searches the catalog for the q parameter. An empty match is an
// empty list, not an error.
func (app *Application) SearchJSON(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		respondJSONError(w, http.StatusBadRequest, "missing q parameter")
		return
	}
	tracks, err := app.Catalog.SearchTrack(r.Context(), q, queryInt(r, "limit", defaultLimit))
	app.respondTracks(w, r, tracks, err)
}

// RecommendationsMood returns tracks for the mood parameter. When it is
// omitted the stored detection is used, and the happy fallback when there is
// none.
func (app *Application) RecommendationsMood(w http.ResponseWriter, r *http.Request) {
	label := r.URL.Query().Get("mood")
	var m mood.Mood
	if label == "" {
		m = mood.Happy
		if det, ok := app.Mood.Current(r.Context()); ok {
			m = det.Mood
		}
	} else {
		parsed, err := mood.Parse(label)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		m = parsed
	}
	language := strings.TrimSpace(r.URL.Query().Get("language"))
	if language == "" && app.Prefs != nil {
		language = app.Prefs.RecommendationLanguage(r.Context())
	}
	tracks, err := app.Catalog.MoodRecommendations(r.Context(), string(m), language, queryInt(r, "limit", defaultLimit))
	app.respondTracks(w, r, tracks, err)
}

func (app *Application) respondTracks(w http.ResponseWriter, r *http.Request, tracks []music.Track, err error) {
	if errors.Is(err, music.ErrNoTracks) {
		respondJSON(w, http.StatusOK, []music.Track{})
		return
	}
	if err != nil {
		log.WithError(err).Warn("catalog request failed")
		respondJSONError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}
	if app.Likes != nil {
		app.Likes.Annotate(r.Context(), tracks)
	}
	respondJSON(w, http.StatusOK, tracks)
}
