// Package persistence talks to the companion API's bearer-authenticated
// liked songs and listening history endpoints. The HTTP client passed to New
// is expected to attach the session token (see session.Source.HTTPClient).
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"Mood-Music-Go/pkg/music"
)

// LikedSong is a liked track as stored by the persistence collaborator.
type LikedSong struct {
	SongID     string `json:"song_id"`
	SongName   string `json:"song_name"`
	ArtistName string `json:"artist_name"`
	AlbumName  string `json:"album_name,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	SpotifyURL string `json:"spotify_url,omitempty"`
	DurationMs int    `json:"duration_ms,omitempty"`
	LikedAt    string `json:"liked_at,omitempty"`
}

// Track converts the stored song into a music.Track marked as liked.
func (s LikedSong) Track() music.Track {
	return music.Track{
		ID:         s.SongID,
		Title:      s.SongName,
		Artist:     s.ArtistName,
		Album:      s.AlbumName,
		CoverURL:   s.ImageURL,
		SpotifyURL: s.SpotifyURL,
		Duration:   float64(s.DurationMs) / 1000,
		Liked:      true,
	}
}

// SongFromTrack builds the persistence payload for t.
func SongFromTrack(t music.Track) LikedSong {
	return LikedSong{
		SongID:     t.ID,
		SongName:   t.Title,
		ArtistName: t.Artist,
		AlbumName:  t.Album,
		ImageURL:   t.CoverURL,
		SpotifyURL: t.SpotifyURL,
		DurationMs: t.DurationMillis(),
	}
}

// HistoryEntry is one row of remote listening history.
type HistoryEntry struct {
	ID           string `json:"id,omitempty"`
	SongID       string `json:"song_id"`
	SongName     string `json:"song_name"`
	ArtistName   string `json:"artist_name"`
	AlbumName    string `json:"album_name,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
	SpotifyURL   string `json:"spotify_url,omitempty"`
	DurationMs   int    `json:"duration_ms,omitempty"`
	Completed    bool   `json:"completed"`
	MoodDetected string `json:"mood_detected,omitempty"`
	PlayedAt     string `json:"played_at,omitempty"`
}

// Client is the persistence collaborator client.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

// ListLiked returns up to limit liked songs, most recent first.
func (c *Client) ListLiked(ctx context.Context, limit int) ([]LikedSong, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out []LikedSong
	if err := c.do(ctx, http.MethodGet, "/api/liked-songs", q, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Like stores s as liked. Liking an already liked song succeeds.
func (c *Client) Like(ctx context.Context, s LikedSong) error {
	form := url.Values{
		"song_id":     {s.SongID},
		"song_name":   {s.SongName},
		"artist_name": {s.ArtistName},
	}
	if s.AlbumName != "" {
		form.Set("album_name", s.AlbumName)
	}
	if s.ImageURL != "" {
		form.Set("image_url", s.ImageURL)
	}
	if s.SpotifyURL != "" {
		form.Set("spotify_url", s.SpotifyURL)
	}
	if s.DurationMs > 0 {
		form.Set("duration_ms", strconv.Itoa(s.DurationMs))
	}
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/liked-songs", nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("like %s: rejected", s.SongID)
	}
	return nil
}

// Unlike removes songID from the liked songs.
func (c *Client) Unlike(ctx context.Context, songID string) error {
	return c.do(ctx, http.MethodDelete, "/api/liked-songs/"+url.PathEscape(songID), nil, nil, "", nil)
}

// IsLiked reports whether songID is liked.
func (c *Client) IsLiked(ctx context.Context, songID string) (bool, error) {
	var out struct {
		IsLiked bool `json:"is_liked"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/liked-songs/check/"+url.PathEscape(songID), nil, nil, "", &out); err != nil {
		return false, err
	}
	return out.IsLiked, nil
}

// AddHistory posts a listening event.
func (c *Client) AddHistory(ctx context.Context, e HistoryEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, "/api/history/", nil, bytes.NewReader(b), "application/json", nil)
}

// ListHistory returns a page of listening history and the total count.
func (c *Client) ListHistory(ctx context.Context, limit, offset int) ([]HistoryEntry, int, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	var out struct {
		Success bool           `json:"success"`
		Total   int            `json:"total"`
		History []HistoryEntry `json:"history"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/history/", q, nil, "", &out); err != nil {
		return nil, 0, err
	}
	return out.History, out.Total, nil
}

// DeleteHistory removes one history entry.
func (c *Client) DeleteHistory(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/history/"+url.PathEscape(id), nil, nil, "", nil)
}

// ClearHistory removes all of the user's history.
func (c *Client) ClearHistory(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/history/", nil, nil, "", nil)
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body io.Reader, contentType string, out any) error {
	u := c.BaseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: %s", method, path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
