// Package applemusic implements the music.Service interface using the public
// iTunes Search API. No credentials are needed, which makes it a useful
// source when nothing else is configured. The zero value Client is ready for
// use.
package applemusic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"Mood-Music-Go/pkg/music"
)

// Client provides access to Apple's iTunes Search API. HTTP may be nil in
// which case a client with a 10 second timeout is allocated. Country selects
// the storefront and defaults to "US".
type Client struct {
	HTTP    *http.Client
	Country string
}

// Ensure interface compliance at compile time.
var _ music.Service = (*Client)(nil)

const searchURL = "https://itunes.apple.com/search"

// SearchTrack queries the iTunes endpoint for q. IDs are prefixed with "am-"
// so they do not collide with other sources.
func (c *Client) SearchTrack(ctx context.Context, q string, limit int) ([]music.Track, error) {
	if c.HTTP == nil {
		c.HTTP = &http.Client{Timeout: 10 * time.Second}
	}
	if limit <= 0 {
		limit = 5
	}
	country := c.Country
	if country == "" {
		country = "US"
	}
	params := url.Values{
		"term":    {q},
		"entity":  {"song"},
		"media":   {"music"},
		"country": {country},
		"limit":   {strconv.Itoa(limit)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes search error: %s", resp.Status)
	}
	var body struct {
		Results []struct {
			TrackID        int64  `json:"trackId"`
			TrackName      string `json:"trackName"`
			ArtistName     string `json:"artistName"`
			CollectionName string `json:"collectionName"`
			TrackTimeMs    int    `json:"trackTimeMillis"`
			ArtworkURL100  string `json:"artworkUrl100"`
			PreviewURL     string `json:"previewUrl"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if len(body.Results) == 0 {
		return nil, music.ErrNoTracks
	}
	tracks := make([]music.Track, len(body.Results))
	for i, item := range body.Results {
		tracks[i] = music.Track{
			ID:       fmt.Sprintf("am-%d", item.TrackID),
			Title:    item.TrackName,
			Artist:   item.ArtistName,
			Album:    item.CollectionName,
			Duration: float64(item.TrackTimeMs) / 1000,
			// 100x100 is the only size listed; the CDN serves larger ones by name.
			CoverURL:   strings.Replace(item.ArtworkURL100, "100x100", "600x600", 1),
			PreviewURL: item.PreviewURL,
		}
	}
	return tracks, nil
}

// MoodRecommendations searches for the mood's query text. The search API has
// no recommendation endpoint.
func (c *Client) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]music.Track, error) {
	return c.SearchTrack(ctx, music.MoodQuery(mood, language), limit)
}
