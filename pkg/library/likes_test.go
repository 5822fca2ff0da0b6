package library

import (
	"context"
	"errors"
	"testing"

	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/events"
	"Mood-Music-Go/pkg/music"
	"Mood-Music-Go/pkg/persistence"
)

type fakeAPI struct {
	liked map[string]persistence.LikedSong
	err   error
}

func (f *fakeAPI) ListLiked(ctx context.Context, limit int) ([]persistence.LikedSong, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []persistence.LikedSong
	for _, s := range f.liked {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeAPI) Like(ctx context.Context, s persistence.LikedSong) error {
	if f.err != nil {
		return f.err
	}
	f.liked[s.SongID] = s
	return nil
}

func (f *fakeAPI) Unlike(ctx context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	delete(f.liked, id)
	return nil
}

func (f *fakeAPI) IsLiked(ctx context.Context, id string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.liked[id]
	return ok, nil
}

func newLikes(t *testing.T, api API) (*Likes, *events.Bus) {
	t.Helper()
	d, err := db.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	bus := events.NewBus()
	return &Likes{API: api, DB: d, UserID: "u", Bus: bus}, bus
}

// TestToggle likes then unlikes a track and broadcasts both changes.
func TestToggle(t *testing.T) {
	api := &fakeAPI{liked: map[string]persistence.LikedSong{}}
	l, bus := newLikes(t, api)
	ch, cancel := bus.Likes.Subscribe(4)
	defer cancel()
	ctx := context.Background()
	tr := music.Track{ID: "t1", Title: "Song", Artist: "A"}

	liked, err := l.Toggle(ctx, tr)
	if err != nil || !liked {
		t.Fatalf("expected liked, got %v %v", liked, err)
	}
	if _, ok := api.liked["t1"]; !ok {
		t.Fatal("remote not updated")
	}
	if ev := <-ch; ev.TrackID != "t1" || !ev.Liked {
		t.Fatalf("unexpected event %+v", ev)
	}
	liked, err = l.Toggle(ctx, tr)
	if err != nil || liked {
		t.Fatalf("expected unliked, got %v %v", liked, err)
	}
	if ev := <-ch; ev.Liked {
		t.Fatalf("unexpected event %+v", ev)
	}
}

// TestFallbackToMirror serves the local copy when the collaborator fails.
func TestFallbackToMirror(t *testing.T) {
	api := &fakeAPI{liked: map[string]persistence.LikedSong{
		"a": {SongID: "a", SongName: "Alpha", ArtistName: "X", DurationMs: 1000},
	}}
	l, _ := newLikes(t, api)
	ctx := context.Background()

	tracks, err := l.List(ctx, 10)
	if err != nil || len(tracks) != 1 || !tracks[0].Liked {
		t.Fatalf("unexpected list %+v %v", tracks, err)
	}

	api.err = errors.New("offline")
	if err := l.Like(ctx, music.Track{ID: "b", Title: "Beta"}); err != nil {
		t.Fatalf("like should succeed locally: %v", err)
	}
	tracks, err = l.List(ctx, 10)
	if err != nil || len(tracks) != 2 {
		t.Fatalf("expected mirror with 2 songs, got %+v %v", tracks, err)
	}
	if ok, _ := l.IsLiked(ctx, "b"); !ok {
		t.Fatal("mirror should answer IsLiked")
	}

	search := []music.Track{{ID: "a"}, {ID: "z"}}
	l.Annotate(ctx, search)
	if !search[0].Liked || search[1].Liked {
		t.Fatalf("unexpected annotation %+v", search)
	}
}

// TestSignedOut works purely on the mirror.
func TestSignedOut(t *testing.T) {
	l, _ := newLikes(t, nil)
	ctx := context.Background()
	if err := l.Like(ctx, music.Track{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := l.Unlike(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := l.Unlike(ctx, "a"); err != nil {
		t.Fatalf("unliking twice should not fail: %v", err)
	}
}
