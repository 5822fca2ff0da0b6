package handlers

import (
	"net/http"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/music"
)

// LikedJSON lists liked songs, newest first.
func (app *Application) LikedJSON(w http.ResponseWriter, r *http.Request) {
	tracks, err := app.Likes.List(r.Context(), queryInt(r, "limit", 50))
	if err != nil {
		log.WithError(err).Error("list liked songs")
		respondJSONError(w, http.StatusInternalServerError, "failed to load liked songs")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// ToggleLike accepts a track and flips its liked state.
func (app *Application) ToggleLike(w http.ResponseWriter, r *http.Request) {
	var t music.Track
	if err := decodeJSON(w, r, &t); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t.ID == "" || t.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "id and title are required")
		return
	}
	liked, err := app.Likes.Toggle(r.Context(), t)
	if err != nil {
		log.WithError(err).WithField("track_id", t.ID).Error("toggle like")
		respondJSONError(w, http.StatusInternalServerError, "failed to update liked songs")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"track_id": t.ID, "liked": liked})
}

// Unlike removes the track in the path from the liked songs.
func (app *Application) Unlike(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := app.Likes.Unlike(r.Context(), id); err != nil {
		log.WithError(err).WithField("track_id", id).Error("unlike")
		respondJSONError(w, http.StatusInternalServerError, "failed to update liked songs")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
