package main

import (
	"context"
	"testing"

	"Mood-Music-Go/pkg/config"
	"Mood-Music-Go/pkg/db"
)

func newTestDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// TestNewServicesWithoutSession wires everything against local storage only.
func TestNewServicesWithoutSession(t *testing.T) {
	cfg := &config.Config{
		APIBaseURL:     "http://127.0.0.1:0",
		MusicService:   "proxy",
		SigningKey:     "k",
		HistoryWorkers: 1,
		HistoryQueue:   4,
	}
	svc := newServices(context.Background(), cfg, newTestDB(t))
	defer svc.player.Close()
	if svc.app.Prefs == nil {
		t.Error("preferences not wired")
	}
	if svc.app.UserID != localUser {
		t.Errorf("user = %q", svc.app.UserID)
	}
	if svc.app.Likes.API != nil {
		t.Error("liked songs should not use the collaborator without a session")
	}
	if svc.app.RemoteHistory != nil {
		t.Error("remote history should be unavailable without a session")
	}
	if svc.app.Authenticator != nil {
		t.Error("spotify login should be disabled without credentials")
	}
}
