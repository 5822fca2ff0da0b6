package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"Mood-Music-Go/pkg/music"
	"Mood-Music-Go/pkg/player"
)

// PlayerState returns the current player snapshot.
func (app *Application) PlayerState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, app.Player.State())
}

// PlayerPlay starts a track. When queue is omitted the track is appended to
// the existing queue unless already present.
func (app *Application) PlayerPlay(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Track music.Track   `json:"track"`
		Queue []music.Track `json:"queue"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Track.ID == "" {
		respondJSONError(w, http.StatusBadRequest, "track.id is required")
		return
	}
	app.Player.PlayTrack(req.Track, req.Queue)
	respondJSON(w, http.StatusOK, app.Player.State())
}

// playerAction wraps a body-less player command.
func (app *Application) playerAction(fn func(*player.Player)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fn(app.Player)
		respondJSON(w, http.StatusOK, app.Player.State())
	}
}

// PlayerSeek moves the playhead to a percentage of the current track.
func (app *Application) PlayerSeek(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Progress float64 `json:"progress"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	app.Player.Seek(req.Progress)
	respondJSON(w, http.StatusOK, app.Player.State())
}

// PlayerVolume sets the volume, clamped to 0..100.
func (app *Application) PlayerVolume(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Volume int `json:"volume"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	app.Player.SetVolume(req.Volume)
	respondJSON(w, http.StatusOK, app.Player.State())
}

// PlayerRemove deletes the queue entry at the index in the path.
func (app *Application) PlayerRemove(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	if err := app.Player.RemoveFromQueue(i); err != nil {
		if errors.Is(err, player.ErrIndexOutOfRange) {
			respondJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		respondJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, app.Player.State())
}
