// Package mood models detected moods and runs the capture pipeline that
// produces them: a cooldown gate, camera and microphone capture, audio
// re-encoding and submission to the analysis collaborator. Results are
// persisted in the client key/value store and broadcast on the event bus.
package mood

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Mood is one of the labels the application understands.
type Mood string

const (
	Happy     Mood = "happy"
	Sad       Mood = "sad"
	Energetic Mood = "energetic"
	Calm      Mood = "calm"
	Angry     Mood = "angry"
	Romantic  Mood = "romantic"
	Confident Mood = "confident"
	Chill     Mood = "chill"
	Neutral   Mood = "neutral"
	Fear      Mood = "fear"
	Surprise  Mood = "surprise"
	Disgust   Mood = "disgust"
)

// All lists every mood in display order.
var All = []Mood{Happy, Sad, Energetic, Calm, Angry, Romantic, Confident, Chill, Neutral, Fear, Surprise, Disgust}

// Parse converts a label into a Mood, ignoring case and surrounding space.
func Parse(s string) (Mood, error) {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range All {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mood %q", s)
}

// Source records how a detection was produced.
type Source string

const (
	SourceManual Source = "manual"
	SourceAuto   Source = "auto"
)

// Detection is the latest known mood. A new detection replaces the previous
// one entirely.
type Detection struct {
	Mood       Mood      `json:"mood"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Source     Source    `json:"source"`
}

// Fallback is returned whenever auto detection fails after it started.
func Fallback(at time.Time) Detection {
	return Detection{Mood: Happy, Confidence: 0.55, Timestamp: at, Source: SourceAuto}
}

// Analysis is the analysis collaborator's verdict. Raw keeps the full
// multimodal payload so it can be persisted as is.
type Analysis struct {
	Emotion    string
	Confidence float64
	Raw        json.RawMessage
}

// Store is the durable key/value store detections are kept in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Persisted keys.
const (
	DetectedMoodKey  = "detected_mood"
	MoodAnalysisKey  = "mood_analysis"
	LastDetectionKey = "last_auto_detection"
)
