package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// TestAddAndListFavorites verifies that favorites can be persisted and
// subsequently retrieved from the database.
func TestAddAndListFavorites(t *testing.T) {
	d, err := New("test.db")
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		d.Close()
		os.Remove("test.db")
	}()
	ctx := context.Background()

	if err := d.AddFavorite(ctx, "u", Favorite{TrackID: "1", TrackName: "Song", ArtistName: "Artist"}); err != nil {
		t.Fatal(err)
	}
	favs, err := d.ListFavorites(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if len(favs) != 1 || favs[0].TrackID != "1" {
		t.Fatalf("unexpected favorites: %+v", favs)
	}
	ok, err := d.IsFavorite(ctx, "u", "1")
	if err != nil || !ok {
		t.Fatalf("expected favorite, got %v %v", ok, err)
	}
	if err := d.DeleteFavorite(ctx, "u", "1"); err != nil {
		t.Fatal(err)
	}
	if err := d.DeleteFavorite(ctx, "u", "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestReplaceFavorites ensures the mirror is swapped wholesale.
func TestReplaceFavorites(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	d.AddFavorite(ctx, "u", Favorite{TrackID: "old"})
	if err := d.ReplaceFavorites(ctx, "u", []Favorite{{TrackID: "a"}, {TrackID: "b"}}); err != nil {
		t.Fatal(err)
	}
	favs, _ := d.ListFavorites(ctx, "u")
	if len(favs) != 2 {
		t.Fatalf("unexpected favorites %+v", favs)
	}
	if ok, _ := d.IsFavorite(ctx, "u", "old"); ok {
		t.Fatal("old favorite should be gone")
	}
}

// TestSaveAndGetToken ensures that OAuth tokens are stored and retrieved
// without modification.
func TestSaveAndGetToken(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	tok := &oauth2.Token{AccessToken: "abc", RefreshToken: "refresh"}
	if err := d.SaveToken(ctx, "u", tok); err != nil {
		t.Fatal(err)
	}
	got, err := d.GetToken(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != tok.AccessToken {
		t.Fatalf("expected %s got %s", tok.AccessToken, got.AccessToken)
	}
	if got.RefreshToken != tok.RefreshToken {
		t.Fatalf("expected refresh %s got %s", tok.RefreshToken, got.RefreshToken)
	}
	if _, err := d.GetToken(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestKeyValue covers raw and JSON entries.
func TestKeyValue(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	if _, err := d.Get(ctx, "theme"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := d.Set(ctx, "theme", "dark"); err != nil {
		t.Fatal(err)
	}
	d.Set(ctx, "theme", "light")
	if v, _ := d.Get(ctx, "theme"); v != "light" {
		t.Fatalf("expected overwrite, got %q", v)
	}

	type analysis struct {
		Emotion    string  `json:"emotion"`
		Confidence float64 `json:"confidence"`
	}
	if err := d.SetJSON(ctx, "mood_analysis", analysis{"sad", 0.8}); err != nil {
		t.Fatal(err)
	}
	var got analysis
	if err := d.GetJSON(ctx, "mood_analysis", &got); err != nil {
		t.Fatal(err)
	}
	if got.Emotion != "sad" || got.Confidence != 0.8 {
		t.Fatalf("unexpected value %+v", got)
	}

	d.Set(ctx, "broken", "{")
	if err := d.GetJSON(ctx, "broken", &got); err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
	d.Delete(ctx, "theme")
	if _, err := d.Get(ctx, "theme"); !errors.Is(err, ErrNotFound) {
		t.Fatal("expected key to be deleted")
	}
}

// TestHistory verifies that listening events can be stored and summarized.
func TestHistory(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	if err := d.AddHistory(ctx, "u", Play{PlayID: "p1", TrackID: "1", ArtistName: "Artist", PlayedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := d.AddHistory(ctx, "u", Play{PlayID: "p2", TrackID: "2", ArtistName: "Artist", PlayedAt: now.Add(time.Minute)}); err != nil {
		t.Fatal(err)
	}
	artists, err := d.TopArtistsSince(ctx, "u", now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(artists) != 1 || artists[0].Artist != "Artist" || artists[0].Count != 2 {
		t.Fatalf("unexpected summary: %+v", artists)
	}
}

// TestHistoryCompletionUpdatesPlay ensures a completed entry for the same play
// marks the existing row instead of counting a second play.
func TestHistoryCompletionUpdatesPlay(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	d.AddHistory(ctx, "u", Play{PlayID: "p1", TrackID: "1", ArtistName: "A", PlayedAt: now})
	if err := d.AddHistory(ctx, "u", Play{PlayID: "p1", TrackID: "1", ArtistName: "A", Completed: true, PlayedAt: now.Add(3 * time.Minute)}); err != nil {
		t.Fatal(err)
	}
	plays, err := d.RecentHistory(ctx, "u", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(plays) != 1 || !plays[0].Completed {
		t.Fatalf("unexpected plays %+v", plays)
	}
}

func TestDeleteAndClearHistory(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	d.AddHistory(ctx, "u", Play{PlayID: "a", TrackID: "1", PlayedAt: now})
	d.AddHistory(ctx, "u", Play{PlayID: "b", TrackID: "2", PlayedAt: now})
	d.AddHistory(ctx, "other", Play{PlayID: "c", TrackID: "3", PlayedAt: now})

	if err := d.DeleteHistory(ctx, "other", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete: %v", err)
	}
	if err := d.DeleteHistory(ctx, "u", "a"); err != nil {
		t.Fatal(err)
	}
	n, err := d.ClearHistory(ctx, "u")
	if err != nil || n != 1 {
		t.Fatalf("cleared %d %v", n, err)
	}
	if plays, _ := d.RecentHistory(ctx, "other", 10); len(plays) != 1 {
		t.Fatalf("other user's history touched: %+v", plays)
	}
}

// TestTopTracksSince verifies the track summary query returns counts.
func TestTopTracksSince(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now()
	d.AddHistory(ctx, "u", Play{PlayID: "a", TrackID: "1", ArtistName: "Artist", PlayedAt: now})
	d.AddHistory(ctx, "u", Play{PlayID: "b", TrackID: "1", ArtistName: "Artist", PlayedAt: now.Add(time.Minute)})
	tracks, err := d.TopTracksSince(ctx, "u", now.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != 1 || tracks[0].TrackID != "1" || tracks[0].Count != 2 {
		t.Fatalf("unexpected summary: %+v", tracks)
	}
}

// TestPlaylists verifies creating a playlist and managing its tracks.
func TestPlaylists(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	p, err := d.CreatePlaylist(ctx, "u", "Rainy day")
	if err != nil || p.ID == "" {
		t.Fatalf("create playlist failed: %v", err)
	}
	if err := d.AddTrackToPlaylist(ctx, p.ID, PlaylistTrack{TrackID: "1", TrackName: "Song", ArtistName: "Artist"}); err != nil {
		t.Fatal(err)
	}
	tracks, err := d.ListPlaylistTracks(ctx, p.ID)
	if err != nil || len(tracks) != 1 {
		t.Fatalf("list tracks failed: %v %v", err, tracks)
	}
	if tracks[0].TrackID != "1" {
		t.Fatalf("unexpected track %+v", tracks[0])
	}
	lists, _ := d.ListPlaylists(ctx, "u")
	if len(lists) != 1 || lists[0].Name != "Rainy day" {
		t.Fatalf("unexpected playlists %+v", lists)
	}
	if err := d.AddTrackToPlaylist(ctx, "missing", PlaylistTrack{TrackID: "1"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := d.RemoveTrackFromPlaylist(ctx, p.ID, "1"); err != nil {
		t.Fatal(err)
	}
	if err := d.RemoveTrackFromPlaylist(ctx, p.ID, "1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// TestMonthlyPlayCountsSince verifies monthly aggregation of history data.
func TestMonthlyPlayCountsSince(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	d.AddHistory(ctx, "u", Play{PlayID: "a", TrackID: "1", ArtistName: "Artist", PlayedAt: base})
	d.AddHistory(ctx, "u", Play{PlayID: "b", TrackID: "2", ArtistName: "Artist", PlayedAt: base.AddDate(0, 1, 0)})
	counts, err := d.MonthlyPlayCountsSince(ctx, "u", base.AddDate(0, -1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if len(counts) != 2 || counts[0].Count != 1 || counts[1].Count != 1 {
		t.Fatalf("unexpected counts %+v", counts)
	}
}

// TestRenameAndDeletePlaylist only lets the owner change a playlist and
// drops its tracks on delete.
func TestRenameAndDeletePlaylist(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	p, _ := d.CreatePlaylist(ctx, "u", "Draft")
	d.AddTrackToPlaylist(ctx, p.ID, PlaylistTrack{TrackID: "1", TrackName: "Song", ArtistName: "Artist"})

	if _, err := d.RenamePlaylist(ctx, "other", p.ID, "Stolen"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("rename by another user: %v", err)
	}
	renamed, err := d.RenamePlaylist(ctx, "u", p.ID, "Focus")
	if err != nil || renamed.Name != "Focus" || renamed.CreatedAt.IsZero() {
		t.Fatalf("rename: %+v %v", renamed, err)
	}

	if err := d.DeletePlaylist(ctx, "other", p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete by another user: %v", err)
	}
	if err := d.DeletePlaylist(ctx, "u", p.ID); err != nil {
		t.Fatal(err)
	}
	if lists, _ := d.ListPlaylists(ctx, "u"); len(lists) != 0 {
		t.Fatalf("playlist still listed: %+v", lists)
	}
	if tracks, _ := d.ListPlaylistTracks(ctx, p.ID); len(tracks) != 0 {
		t.Fatalf("tracks left behind: %+v", tracks)
	}
	if err := d.DeletePlaylist(ctx, "u", p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
}

// TestMoodJournal pages detections newest first and aggregates a window.
func TestMoodJournal(t *testing.T) {
	d := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()
	entries := []MoodEntry{
		{Mood: "happy", Confidence: 0.8, Source: "auto", CreatedAt: now.AddDate(0, 0, -40)},
		{Mood: "happy", Confidence: 0.6, Source: "auto", CreatedAt: now.Add(-2 * time.Hour)},
		{Mood: "happy", Confidence: 1, Source: "manual", CreatedAt: now.Add(-time.Hour)},
		{Mood: "calm", Confidence: 0.5, Source: "auto", CreatedAt: now},
	}
	for _, e := range entries {
		if err := d.AddMoodEntry(ctx, "u", e); err != nil {
			t.Fatal(err)
		}
	}
	d.AddMoodEntry(ctx, "other", MoodEntry{Mood: "sad", Confidence: 0.9, Source: "auto", CreatedAt: now})

	page, total, err := d.MoodHistory(ctx, "u", 2, 0)
	if err != nil || total != 4 || len(page) != 2 || page[0].Mood != "calm" {
		t.Fatalf("history: %+v %d %v", page, total, err)
	}
	page, _, _ = d.MoodHistory(ctx, "u", 2, 3)
	if len(page) != 1 || page[0].Confidence != 0.8 {
		t.Fatalf("last page: %+v", page)
	}

	st, err := d.MoodStatsSince(ctx, "u", now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 3 || st.Distribution["happy"] != 2 || st.Distribution["calm"] != 1 {
		t.Fatalf("distribution: %+v", st)
	}
	if avg := st.AverageConfidence["happy"]; avg < 0.79 || avg > 0.81 {
		t.Fatalf("happy average = %v", avg)
	}
	if st.Sources["auto"] != 2 || st.Sources["manual"] != 1 {
		t.Fatalf("sources: %+v", st.Sources)
	}
}
