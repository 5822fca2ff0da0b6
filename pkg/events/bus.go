// Package events provides a typed publish/subscribe channel used to notify
// sibling components of mood updates, like toggles, playlist mutations and
// player transitions. Each event kind has its own Topic so subscribers get
// compile-time checked payloads.
package events

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// MoodUpdated is published whenever a new mood detection supersedes the
// previous one.
type MoodUpdated struct {
	Mood       string    `json:"mood"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	Timestamp  time.Time `json:"timestamp"`
}

// LikeToggled is published when a track is liked or unliked.
type LikeToggled struct {
	TrackID string `json:"track_id"`
	Liked   bool   `json:"liked"`
}

// PlaylistChanged is published after a playlist is created or its tracks
// change.
type PlaylistChanged struct {
	PlaylistID string `json:"playlist_id"`
	Action     string `json:"action"` // created, track_added, track_removed
	TrackID    string `json:"track_id,omitempty"`
}

// PlayerChanged is published after every player transition.
type PlayerChanged struct {
	Action    string  `json:"action"`
	TrackID   string  `json:"track_id,omitempty"`
	Index     int     `json:"index"`
	IsPlaying bool    `json:"is_playing"`
	Progress  float64 `json:"progress"`
}

// Topic fans a single event type out to any number of subscribers.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
type Topic[T any] struct {
	name string
	mu   sync.RWMutex
	subs map[int]chan T
	next int
}

// NewTopic returns an empty topic. name is used only in log output.
func NewTopic[T any](name string) *Topic[T] {
	return &Topic[T]{name: name, subs: make(map[int]chan T)}
}

// Subscribe registers a new subscriber with the given buffer size. The
// returned cancel function unregisters it and closes the channel; it is safe
// to call more than once.
func (t *Topic[T]) Subscribe(buffer int) (<-chan T, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan T, buffer)
	t.mu.Lock()
	id := t.next
	t.next++
	t.subs[id] = ch
	t.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
			close(ch)
		})
	}
}

// Publish delivers v to every current subscriber.
func (t *Topic[T]) Publish(v T) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for id, ch := range t.subs {
		select {
		case ch <- v:
		default:
			log.WithFields(log.Fields{"topic": t.name, "subscriber": id}).Debug("subscriber full, event dropped")
		}
	}
}

// Subscribers reports how many subscribers are registered.
func (t *Topic[T]) Subscribers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}

// Bus groups the application's topics. The zero value is not usable; build
// one with NewBus and pass it explicitly to the components that need it.
type Bus struct {
	Mood      *Topic[MoodUpdated]
	Likes     *Topic[LikeToggled]
	Playlists *Topic[PlaylistChanged]
	Player    *Topic[PlayerChanged]
}

// NewBus creates a Bus with every topic initialised.
func NewBus() *Bus {
	return &Bus{
		Mood:      NewTopic[MoodUpdated]("mood"),
		Likes:     NewTopic[LikeToggled]("likes"),
		Playlists: NewTopic[PlaylistChanged]("playlists"),
		Player:    NewTopic[PlayerChanged]("player"),
	}
}
