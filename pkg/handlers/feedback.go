package handlers

import (
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/feedback"
)

// FeedbackJSON lists feature requests, most voted first.
func (app *Application) FeedbackJSON(w http.ResponseWriter, r *http.Request) {
	reqs, err := app.Board.List(r.Context())
	if err != nil {
		log.WithError(err).Error("list feature requests")
		respondJSONError(w, http.StatusInternalServerError, "failed to load feature requests")
		return
	}
	respondJSON(w, http.StatusOK, reqs)
}

// AddFeedback submits a new feature request.
func (app *Application) AddFeedback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	fr, err := app.Board.Add(r.Context(), req.Title, req.Description, req.Category)
	if errors.Is(err, feedback.ErrInvalid) {
		respondJSONError(w, http.StatusBadRequest, "title is required and category must be one of feature, improvement, bug")
		return
	}
	if err != nil {
		log.WithError(err).Error("add feature request")
		respondJSONError(w, http.StatusInternalServerError, "failed to store feature request")
		return
	}
	respondJSON(w, http.StatusCreated, fr)
}

// VoteFeedback toggles the user's vote on the request in the path.
func (app *Application) VoteFeedback(w http.ResponseWriter, r *http.Request) {
	fr, err := app.Board.ToggleVote(r.Context(), r.PathValue("id"))
	if errors.Is(err, feedback.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		log.WithError(err).Error("vote feature request")
		respondJSONError(w, http.StatusInternalServerError, "failed to store vote")
		return
	}
	respondJSON(w, http.StatusOK, fr)
}
