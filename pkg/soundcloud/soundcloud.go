// Package soundcloud implements the music.Service interface using the
// SoundCloud public API. Mood recommendations are searches for the mood's
// query text; a client_id must be supplied via the environment or
// configuration.
package soundcloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"Mood-Music-Go/pkg/music"
)

// Client talks to the SoundCloud API. If HTTP is nil a client with a 10 second
// timeout is used. The zero value is therefore ready for basic use.
type Client struct {
	ClientID string
	HTTP     *http.Client
}

// Ensure interface compliance at compile time.
var _ music.Service = (*Client)(nil)

// SearchTrack queries the SoundCloud search API and converts results.
func (c *Client) SearchTrack(ctx context.Context, q string, limit int) ([]music.Track, error) {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{
		"q":         {q},
		"client_id": {c.ClientID},
		"limit":     {strconv.Itoa(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api-v2.soundcloud.com/search/tracks?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("soundcloud search error: %s", resp.Status)
	}
	var body struct {
		Collection []struct {
			ID           int64  `json:"id"`
			Title        string `json:"title"`
			Duration     int    `json:"duration"` // milliseconds
			ArtworkURL   string `json:"artwork_url"`
			PermalinkURL string `json:"permalink_url"`
			User         struct {
				Username string `json:"username"`
			} `json:"user"`
		} `json:"collection"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Collection) == 0 {
		return nil, music.ErrNoTracks
	}
	tracks := make([]music.Track, len(body.Collection))
	for i, item := range body.Collection {
		tracks[i] = music.Track{
			ID:         fmt.Sprintf("sc-%d", item.ID),
			Title:      item.Title,
			Artist:     item.User.Username,
			Duration:   float64(item.Duration) / 1000,
			CoverURL:   item.ArtworkURL,
			PreviewURL: item.PermalinkURL,
		}
	}
	return tracks, nil
}

// MoodRecommendations searches for the mood's query text.
func (c *Client) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]music.Track, error) {
	return c.SearchTrack(ctx, music.MoodQuery(mood, language), limit)
}
