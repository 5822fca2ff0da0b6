// This file exposes listening and mood insights computed from local history.

package handlers

import (
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// InsightsJSON returns the most played artists for the last week.
func (app *Application) InsightsJSON(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -7)
	res, err := app.DB.TopArtistsSince(r.Context(), app.UserID, since)
	if err != nil {
		log.WithError(err).Error("load insights artists")
		respondJSONError(w, http.StatusInternalServerError, "failed to load insights")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// InsightsTracksJSON returns the most played tracks over the last 'days'
// days (default 7).
func (app *Application) InsightsTracksJSON(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(0, 0, -queryInt(r, "days", 7))
	res, err := app.DB.TopTracksSince(r.Context(), app.UserID, since)
	if err != nil {
		log.WithError(err).Error("load insights tracks")
		respondJSONError(w, http.StatusInternalServerError, "failed to load insights")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// InsightsMonthlyJSON groups play counts by month starting from the optional
// 'since' parameter (YYYY-MM-DD). A one year lookback is used otherwise.
func (app *Application) InsightsMonthlyJSON(w http.ResponseWriter, r *http.Request) {
	since := time.Now().AddDate(-1, 0, 0)
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "since must be YYYY-MM-DD")
			return
		}
		since = t
	}
	res, err := app.DB.MonthlyPlayCountsSince(r.Context(), app.UserID, since)
	if err != nil {
		log.WithError(err).Error("load insights monthly")
		respondJSONError(w, http.StatusInternalServerError, "failed to load insights")
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// MoodHistoryJSON pages through recorded detections, newest first.
func (app *Application) MoodHistoryJSON(w http.ResponseWriter, r *http.Request) {
	entries, total, err := app.DB.MoodHistory(r.Context(), app.UserID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		log.WithError(err).Error("load mood history")
		respondJSONError(w, http.StatusInternalServerError, "failed to load mood history")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"total": total, "analyses": entries})
}

// MoodStatsJSON summarises detections over the last 'days' days (default 30).
func (app *Application) MoodStatsJSON(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30)
	st, err := app.DB.MoodStatsSince(r.Context(), app.UserID, time.Now().AddDate(0, 0, -days))
	if err != nil {
		log.WithError(err).Error("load mood stats")
		respondJSONError(w, http.StatusInternalServerError, "failed to load mood stats")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"period_days": days, "stats": st})
}
