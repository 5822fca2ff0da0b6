package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	log "github.com/sirupsen/logrus"
)

const eventBuffer = 16

// Events streams bus traffic as server-sent events until the client goes
// away. Each message carries the topic as its event name.
func (app *Application) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	moodCh, cancelMood := app.Bus.Mood.Subscribe(eventBuffer)
	defer cancelMood()
	likeCh, cancelLikes := app.Bus.Likes.Subscribe(eventBuffer)
	defer cancelLikes()
	plCh, cancelPl := app.Bus.Playlists.Subscribe(eventBuffer)
	defer cancelPl()
	playerCh, cancelPlayer := app.Bus.Player.Subscribe(eventBuffer)
	defer cancelPlayer()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	send := func(name string, v any) bool {
		data, err := json.Marshal(v)
		if err != nil {
			log.WithError(err).WithField("event", name).Error("encode event")
			return true
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		var alive bool
		select {
		case <-r.Context().Done():
			return
		case ev := <-moodCh:
			alive = send("mood", ev)
		case ev := <-likeCh:
			alive = send("likes", ev)
		case ev := <-plCh:
			alive = send("playlists", ev)
		case ev := <-playerCh:
			alive = send("player", ev)
		}
		if !alive {
			return
		}
	}
}
