// Package player owns the play queue and the playback state. Player is the
// only component that mutates them; everything else reads State snapshots or
// subscribes to PlayerChanged events. Progress is kept as a percentage of the
// current track and advanced by a fixed interval clock.
package player

import (
	"errors"
	"fmt"
	"strings"

	"Mood-Music-Go/pkg/music"
)

// ErrIndexOutOfRange is returned when a queue index does not exist.
var ErrIndexOutOfRange = errors.New("queue index out of range")

// RepeatMode controls what happens when a track or the queue ends.
type RepeatMode int

const (
	RepeatOff RepeatMode = iota
	RepeatContext
	RepeatTrack
)

func (m RepeatMode) String() string {
	switch m {
	case RepeatContext:
		return "context"
	case RepeatTrack:
		return "track"
	default:
		return "off"
	}
}

// next cycles off -> context -> track -> off.
func (m RepeatMode) next() RepeatMode {
	return (m + 1) % 3
}

// MarshalText implements encoding.TextMarshaler.
func (m RepeatMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *RepeatMode) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "off", "":
		*m = RepeatOff
	case "context":
		*m = RepeatContext
	case "track":
		*m = RepeatTrack
	default:
		return fmt.Errorf("unknown repeat mode %q", string(b))
	}
	return nil
}

// State is a point in time copy of the player. It shares nothing with the
// live player and may be handed to any reader.
type State struct {
	Queue     []music.Track `json:"queue"`
	Current   *music.Track  `json:"current_track"`
	Index     int           `json:"current_index"`
	IsPlaying bool          `json:"is_playing"`
	Progress  float64       `json:"progress"`
	Volume    int           `json:"volume"`
	Shuffle   bool          `json:"shuffle"`
	Repeat    RepeatMode    `json:"repeat"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
