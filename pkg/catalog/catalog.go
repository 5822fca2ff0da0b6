// Package catalog is the client for the companion API's Spotify proxy:
// free-text search, mood recommendations and general recommendations. Client
// implements music.Service; Cache wraps any music.Service and keeps mood
// recommendation lists in the client key/value store.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"Mood-Music-Go/pkg/music"
)

// Client talks to the catalog collaborator.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ music.Service = (*Client)(nil)

// New returns a client for the API rooted at baseURL.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// trackJSON is the collaborator's track descriptor.
type trackJSON struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Artists      []string          `json:"artists"`
	Album        string            `json:"album"`
	DurationMs   int               `json:"duration_ms"`
	PreviewURL   string            `json:"preview_url"`
	ImageURL     string            `json:"image_url"`
	ExternalURLs map[string]string `json:"external_urls"`
}

func (t trackJSON) track() music.Track {
	return music.Track{
		ID:         t.ID,
		Title:      t.Name,
		Artist:     music.JoinArtists(t.Artists),
		Album:      t.Album,
		Duration:   float64(t.DurationMs) / 1000,
		CoverURL:   t.ImageURL,
		PreviewURL: t.PreviewURL,
		SpotifyURL: t.ExternalURLs["spotify"],
	}
}

func convert(in []trackJSON, limit int) ([]music.Track, error) {
	if len(in) == 0 {
		return nil, music.ErrNoTracks
	}
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	out := make([]music.Track, len(in))
	for i, t := range in {
		out[i] = t.track()
	}
	return out, nil
}

// SearchTrack calls GET /spotify/search.
func (c *Client) SearchTrack(ctx context.Context, query string, limit int) ([]music.Track, error) {
	q := url.Values{"query": {query}}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Success bool        `json:"success"`
		Error   string      `json:"error"`
		Results []trackJSON `json:"results"`
	}
	if err := c.get(ctx, "/spotify/search", q, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("search: %s", out.Error)
	}
	return convert(out.Results, limit)
}

// MoodRecommendations calls GET /recommendations/mood/{mood}. The server
// appends the language to the mood itself.
func (c *Client) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]music.Track, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if language != "" {
		q.Set("language", language)
	}
	return c.recommendations(ctx, "/recommendations/mood/"+url.PathEscape(strings.ToLower(mood)), q, limit)
}

// General calls GET /recommendations for mood independent suggestions.
func (c *Client) General(ctx context.Context, limit int) ([]music.Track, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.recommendations(ctx, "/recommendations", q, limit)
}

func (c *Client) recommendations(ctx context.Context, path string, q url.Values, limit int) ([]music.Track, error) {
	var out struct {
		Success         bool        `json:"success"`
		Error           string      `json:"error"`
		Recommendations []trackJSON `json:"recommendations"`
	}
	if err := c.get(ctx, path, q, &out); err != nil {
		return nil, err
	}
	if !out.Success {
		return nil, fmt.Errorf("recommendations: %s", out.Error)
	}
	return convert(out.Recommendations, limit)
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog %s: %s", path, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
