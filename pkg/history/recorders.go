package history

import (
	"context"

	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/mood"
	"Mood-Music-Go/pkg/persistence"
)

// historyAPI is the part of persistence.Client used by RemoteRecorder.
type historyAPI interface {
	AddHistory(ctx context.Context, e persistence.HistoryEntry) error
}

// RemoteRecorder posts entries to the persistence collaborator.
type RemoteRecorder struct {
	API historyAPI
}

// Record implements Recorder.
func (r RemoteRecorder) Record(ctx context.Context, e Entry) error {
	return r.API.AddHistory(ctx, persistence.HistoryEntry{
		SongID:       e.Track.ID,
		SongName:     e.Track.Title,
		ArtistName:   e.Track.Artist,
		AlbumName:    e.Track.Album,
		ImageURL:     e.Track.CoverURL,
		SpotifyURL:   e.Track.SpotifyURL,
		DurationMs:   e.Track.DurationMillis(),
		Completed:    e.Completed,
		MoodDetected: e.MoodDetected,
	})
}

// LocalRecorder keeps a copy of listening history in SQLite for insights.
type LocalRecorder struct {
	DB     *db.DB
	UserID string
}

// Record implements Recorder. A completed entry updates the play it belongs to.
func (r LocalRecorder) Record(ctx context.Context, e Entry) error {
	return r.DB.AddHistory(ctx, r.UserID, db.Play{
		PlayID:     e.PlayID,
		TrackID:    e.Track.ID,
		TrackName:  e.Track.Title,
		ArtistName: e.Track.Artist,
		Completed:  e.Completed,
		Mood:       e.MoodDetected,
		PlayedAt:   e.PlayedAt,
	})
}

// MoodJournal keeps every mood detection in SQLite for mood history and
// statistics. It implements mood.Journal.
type MoodJournal struct {
	DB     *db.DB
	UserID string
}

var _ mood.Journal = MoodJournal{}

// RecordMood implements mood.Journal.
func (j MoodJournal) RecordMood(ctx context.Context, det mood.Detection) error {
	return j.DB.AddMoodEntry(ctx, j.UserID, db.MoodEntry{
		Mood:       string(det.Mood),
		Confidence: det.Confidence,
		Source:     string(det.Source),
		CreatedAt:  det.Timestamp,
	})
}
