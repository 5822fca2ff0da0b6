package handlers

import (
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/events"
)

// PlaylistsJSON lists the user's playlists.
func (app *Application) PlaylistsJSON(w http.ResponseWriter, r *http.Request) {
	pls, err := app.DB.ListPlaylists(r.Context(), app.UserID)
	if err != nil {
		log.WithError(err).Error("list playlists")
		respondJSONError(w, http.StatusInternalServerError, "failed to load playlists")
		return
	}
	respondJSON(w, http.StatusOK, pls)
}

// CreatePlaylist creates an empty playlist from {"name": ...}.
func (app *Application) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	pl, err := app.DB.CreatePlaylist(r.Context(), app.UserID, name)
	if err != nil {
		log.WithError(err).Error("create playlist")
		respondJSONError(w, http.StatusInternalServerError, "failed to create playlist")
		return
	}
	app.playlistChanged(pl.ID, "created", "")
	respondJSON(w, http.StatusCreated, pl)
}

// RenamePlaylist renames the playlist in the path from {"name": ...}.
func (app *Application) RenamePlaylist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respondJSONError(w, http.StatusBadRequest, "name is required")
		return
	}
	id := r.PathValue("id")
	pl, err := app.DB.RenamePlaylist(r.Context(), app.UserID, id, name)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "playlist not found")
			return
		}
		log.WithError(err).WithField("playlist_id", id).Error("rename playlist")
		respondJSONError(w, http.StatusInternalServerError, "failed to update playlist")
		return
	}
	app.playlistChanged(id, "renamed", "")
	respondJSON(w, http.StatusOK, pl)
}

// DeletePlaylist removes the playlist in the path with its tracks.
func (app *Application) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := app.DB.DeletePlaylist(r.Context(), app.UserID, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "playlist not found")
			return
		}
		log.WithError(err).WithField("playlist_id", id).Error("delete playlist")
		respondJSONError(w, http.StatusInternalServerError, "failed to delete playlist")
		return
	}
	app.playlistChanged(id, "deleted", "")
	w.WriteHeader(http.StatusNoContent)
}

// PlaylistTracks lists the tracks of the playlist in the path.
func (app *Application) PlaylistTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := app.DB.ListPlaylistTracks(r.Context(), r.PathValue("id"))
	if err != nil {
		log.WithError(err).Error("list playlist tracks")
		respondJSONError(w, http.StatusInternalServerError, "failed to load playlist")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// AddPlaylistTrack appends a track to the playlist in the path.
func (app *Application) AddPlaylistTrack(w http.ResponseWriter, r *http.Request) {
	var t db.PlaylistTrack
	if err := decodeJSON(w, r, &t); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t.TrackID == "" || t.TrackName == "" || t.ArtistName == "" {
		respondJSONError(w, http.StatusBadRequest, "track_id, track_name and artist_name are required")
		return
	}
	id := r.PathValue("id")
	if err := app.DB.AddTrackToPlaylist(r.Context(), id, t); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "playlist not found")
			return
		}
		log.WithError(err).WithField("playlist_id", id).Error("add playlist track")
		respondJSONError(w, http.StatusInternalServerError, "failed to update playlist")
		return
	}
	app.playlistChanged(id, "track_added", t.TrackID)
	w.WriteHeader(http.StatusCreated)
}

// RemovePlaylistTrack removes a track from the playlist in the path.
func (app *Application) RemovePlaylistTrack(w http.ResponseWriter, r *http.Request) {
	id, trackID := r.PathValue("id"), r.PathValue("track")
	if err := app.DB.RemoveTrackFromPlaylist(r.Context(), id, trackID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			respondJSONError(w, http.StatusNotFound, "track not in playlist")
			return
		}
		log.WithError(err).WithField("playlist_id", id).Error("remove playlist track")
		respondJSONError(w, http.StatusInternalServerError, "failed to update playlist")
		return
	}
	app.playlistChanged(id, "track_removed", trackID)
	w.WriteHeader(http.StatusNoContent)
}

func (app *Application) playlistChanged(id, action, trackID string) {
	if app.Bus != nil {
		app.Bus.Playlists.Publish(events.PlaylistChanged{PlaylistID: id, Action: action, TrackID: trackID})
	}
}
