package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/db"
)

// HistoryJSON returns the most recent local plays.
func (app *Application) HistoryJSON(w http.ResponseWriter, r *http.Request) {
	plays, err := app.DB.RecentHistory(r.Context(), app.UserID, queryInt(r, "limit", 50))
	if err != nil {
		log.WithError(err).Error("load history")
		respondJSONError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if plays == nil {
		plays = []db.Play{}
	}
	respondJSON(w, http.StatusOK, plays)
}

// DeleteHistory removes one local play by its play id.
func (app *Application) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	err := app.DB.DeleteHistory(r.Context(), app.UserID, r.PathValue("id"))
	if errors.Is(err, db.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "play not found")
		return
	}
	if err != nil {
		log.WithError(err).Error("delete history")
		respondJSONError(w, http.StatusInternalServerError, "failed to delete history")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistory wipes the local history and, when signed in, the remote one.
// Local rows are removed even if the collaborator call fails.
func (app *Application) ClearHistory(w http.ResponseWriter, r *http.Request) {
	n, err := app.DB.ClearHistory(r.Context(), app.UserID)
	if err != nil {
		log.WithError(err).Error("clear history")
		respondJSONError(w, http.StatusInternalServerError, "failed to clear history")
		return
	}
	log.WithField("rows", n).Info("local history cleared")
	if app.RemoteHistory != nil {
		if err := app.RemoteHistory.ClearHistory(r.Context()); err != nil {
			log.WithError(err).Warn("clear remote history")
			respondJSONError(w, http.StatusBadGateway, "local history cleared, remote history unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoteHistoryJSON pages through the collaborator's history.
func (app *Application) RemoteHistoryJSON(w http.ResponseWriter, r *http.Request) {
	if app.RemoteHistory == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "not signed in")
		return
	}
	entries, total, err := app.RemoteHistory.ListHistory(r.Context(), queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		log.WithError(err).Warn("load remote history")
		respondJSONError(w, http.StatusBadGateway, "history service unavailable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": total, "history": entries})
}

// DeleteRemoteHistory removes one entry from the collaborator's history.
func (app *Application) DeleteRemoteHistory(w http.ResponseWriter, r *http.Request) {
	if app.RemoteHistory == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "not signed in")
		return
	}
	if err := app.RemoteHistory.DeleteHistory(r.Context(), r.PathValue("id")); err != nil {
		log.WithError(err).Warn("delete remote history")
		respondJSONError(w, http.StatusBadGateway, "history service unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
