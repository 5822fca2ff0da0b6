// Package youtube implements the music.Service interface using the
// YouTube Data API. Only the search endpoint is used; mood recommendations
// are searches with the mood's query text. An API key must be provided when
// constructing the client.
//
// Network calls are performed using the provided http.Client allowing
// callers to substitute a test client.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"Mood-Music-Go/pkg/music"
)

const searchURL = "https://www.googleapis.com/youtube/v3/search"

// Client provides access to the YouTube Data API.
type Client struct {
	Key    string
	Client *http.Client
}

// ensure Client implements the music.Service interface.
var _ music.Service = (*Client)(nil)

// SearchTrack queries the YouTube search API and converts results into
// music.Track values. Only the first page of results is returned.
func (c *Client) SearchTrack(ctx context.Context, q string, limit int) ([]music.Track, error) {
	if limit <= 0 || limit > 50 {
		limit = 5
	}
	params := url.Values{
		"part":            {"snippet"},
		"type":            {"video"},
		"videoCategoryId": {"10"}, // Music
		"maxResults":      {strconv.Itoa(limit)},
		"q":               {q},
		"key":             {c.Key},
	}
	return c.search(ctx, params)
}

// MoodRecommendations searches for the mood's query text.
func (c *Client) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]music.Track, error) {
	return c.SearchTrack(ctx, music.MoodQuery(mood, language), limit)
}

func (c *Client) search(ctx context.Context, params url.Values) ([]music.Track, error) {
	hc := c.Client
	if hc == nil {
		hc = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("youtube search error: %s", resp.Status)
	}
	var body struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
			Snippet struct {
				Title        string `json:"title"`
				ChannelTitle string `json:"channelTitle"`
				Thumbnails   struct {
					High struct {
						URL string `json:"url"`
					} `json:"high"`
				} `json:"thumbnails"`
			} `json:"snippet"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Items) == 0 {
		return nil, music.ErrNoTracks
	}
	tracks := make([]music.Track, len(body.Items))
	for i, item := range body.Items {
		tracks[i] = music.Track{
			ID:         "yt-" + item.ID.VideoID,
			Title:      item.Snippet.Title,
			Artist:     item.Snippet.ChannelTitle,
			CoverURL:   item.Snippet.Thumbnails.High.URL,
			PreviewURL: "https://youtu.be/" + item.ID.VideoID,
		}
	}
	return tracks, nil
}
