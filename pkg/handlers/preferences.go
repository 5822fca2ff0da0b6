package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/prefs"
)

// Theme returns the stored theme preference, "system" when unset.
func (app *Application) Theme(w http.ResponseWriter, r *http.Request) {
	theme, err := app.Prefs.Theme(r.Context())
	if err != nil {
		log.WithError(err).Error("load theme")
		respondJSONError(w, http.StatusInternalServerError, "failed to load theme")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"theme": theme})
}

// SetTheme stores one of light, dark or system.
func (app *Application) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := app.Prefs.SetTheme(r.Context(), req.Theme); err != nil {
		if errors.Is(err, prefs.ErrInvalid) {
			respondJSONError(w, http.StatusBadRequest, "theme must be light, dark or system")
			return
		}
		log.WithError(err).Error("store theme")
		respondJSONError(w, http.StatusInternalServerError, "failed to store theme")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"theme": req.Theme})
}

type languagesBody struct {
	Languages []string `json:"language_priorities"`
}

// Languages returns the language priorities, highest first.
func (app *Application) Languages(w http.ResponseWriter, r *http.Request) {
	langs, err := app.Prefs.Languages(r.Context())
	if err != nil {
		log.WithError(err).Error("load language priorities")
		respondJSONError(w, http.StatusInternalServerError, "failed to load languages")
		return
	}
	respondJSON(w, http.StatusOK, languagesBody{Languages: langs})
}

// SetLanguages replaces the language priorities. The first entry qualifies
// mood recommendations unless it is English.
func (app *Application) SetLanguages(w http.ResponseWriter, r *http.Request) {
	var req languagesBody
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	langs, err := app.Prefs.SetLanguages(r.Context(), req.Languages)
	if errors.Is(err, prefs.ErrInvalid) {
		respondJSONError(w, http.StatusBadRequest, "between 1 and 10 languages are required")
		return
	}
	if err != nil {
		log.WithError(err).Error("store language priorities")
		respondJSONError(w, http.StatusInternalServerError, "failed to store languages")
		return
	}
	respondJSON(w, http.StatusOK, languagesBody{Languages: langs})
}
