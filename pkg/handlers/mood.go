package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/mood"
)

type moodResponse struct {
	Detection  *mood.Detection `json:"detection"`
	CooldownMs int64           `json:"cooldown_remaining_ms"`
}

// MoodCurrent returns the stored detection, or null when none exists, along
// with the time left before auto detection is allowed again.
func (app *Application) MoodCurrent(w http.ResponseWriter, r *http.Request) {
	resp := moodResponse{CooldownMs: app.Mood.CooldownRemaining(r.Context()).Milliseconds()}
	if det, ok := app.Mood.Current(r.Context()); ok {
		resp.Detection = &det
	}
	respondJSON(w, http.StatusOK, resp)
}

// MoodSet stores a mood the user picked manually.
func (app *Application) MoodSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mood string `json:"mood"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := mood.Parse(req.Mood)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	det, err := app.Mood.SetManual(r.Context(), m)
	if err != nil {
		log.WithError(err).WithField("mood", m).Error("set manual mood")
		respondJSONError(w, http.StatusInternalServerError, "failed to store mood")
		return
	}
	respondJSON(w, http.StatusOK, moodResponse{Detection: &det})
}

// MoodDetect runs the capture pipeline. While the cooldown is active it
// answers 429 with Retry-After set.
func (app *Application) MoodDetect(w http.ResponseWriter, r *http.Request) {
	det, err := app.Mood.Detect(r.Context())
	if errors.Is(err, mood.ErrCoolingDown) {
		left := app.Mood.CooldownRemaining(r.Context())
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(left.Seconds()))))
		respondJSON(w, http.StatusTooManyRequests, moodResponse{CooldownMs: left.Milliseconds()})
		return
	}
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := moodResponse{Detection: &det, CooldownMs: app.Mood.CooldownRemaining(r.Context()).Milliseconds()}
	respondJSON(w, http.StatusOK, resp)
}
