package youtube

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"Mood-Music-Go/pkg/music"
)

type rt struct {
	status int
	body   string
	last   *http.Request
}

func (r *rt) RoundTrip(req *http.Request) (*http.Response, error) {
	r.last = req
	rec := httptest.NewRecorder()
	rec.WriteHeader(r.status)
	rec.WriteString(r.body)
	return rec.Result(), nil
}

// TestSearchTrackSuccess verifies JSON is parsed into Track values.
func TestSearchTrackSuccess(t *testing.T) {
	data := `{"items":[{"id":{"videoId":"abc"},"snippet":{"title":"Song","channelTitle":"Artist","thumbnails":{"high":{"url":"http://thumb"}}}}]}`
	tr := &rt{status: 200, body: data}
	c := &Client{Key: "k", Client: &http.Client{Transport: tr}}
	tracks, err := c.SearchTrack(context.Background(), "q", 3)
	if err != nil || len(tracks) != 1 || tracks[0].Title != "Song" || tracks[0].ID != "yt-abc" || tracks[0].CoverURL != "http://thumb" {
		t.Fatalf("unexpected result: %v %+v", err, tracks)
	}
	if got := tr.last.URL.Query().Get("maxResults"); got != "3" {
		t.Errorf("maxResults = %s", got)
	}
}

// TestSearchTrackStatusError ensures non-200 responses are returned as errors.
func TestSearchTrackStatusError(t *testing.T) {
	c := &Client{Key: "k", Client: &http.Client{Transport: &rt{status: 500}}}
	_, err := c.SearchTrack(context.Background(), "q", 5)
	if err == nil {
		t.Fatal("expected error")
	}
}

// TestMoodRecommendations searches with the mood query and reports empty
// results as ErrNoTracks.
func TestMoodRecommendations(t *testing.T) {
	tr := &rt{status: 200, body: `{"items":[]}`}
	c := &Client{Key: "k", Client: &http.Client{Transport: tr}}
	_, err := c.MoodRecommendations(context.Background(), "calm", "", 5)
	if !errors.Is(err, music.ErrNoTracks) {
		t.Fatalf("expected ErrNoTracks, got %v", err)
	}
	if got := tr.last.URL.Query().Get("q"); got != music.MoodQuery("calm", "") {
		t.Errorf("q = %s", got)
	}
}
