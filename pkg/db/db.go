// Package db provides the durable client store used by the application. It
// wraps a SQLite database and exposes helpers for the key/value entries that
// pages share (detected mood, cached recommendations, theme, cooldown
// timestamp, feature board), the Spotify OAuth token bundle, a local mirror of
// liked songs, local listening history for insights and local playlists.
// Callers open a single DB using New and reuse it for all operations.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/oauth2"
)

// ErrNotFound is returned when a key, token or row does not exist.
var ErrNotFound = errors.New("not found")

// DB wraps a sql.DB connection and exposes helper methods for the
// application's persistence layer.
type DB struct {
	*sql.DB
}

// New opens the SQLite database located at path. If the file does not
// exist it is created along with the required schema.
func New(path string) (*DB, error) {
	d, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// A single connection keeps ":memory:" databases coherent across calls.
	d.SetMaxOpenConns(1)
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL, updated_at TIMESTAMP NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS tokens (user_id TEXT PRIMARY KEY, token TEXT NOT NULL)`,
		`CREATE TABLE IF NOT EXISTS favorites (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT, track_id TEXT, track_name TEXT, artist_name TEXT, album_name TEXT, image_url TEXT, duration_ms INTEGER, liked_at TIMESTAMP)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_fav_user_track ON favorites(user_id, track_id)`,
		`CREATE TABLE IF NOT EXISTS history (id INTEGER PRIMARY KEY AUTOINCREMENT, play_id TEXT UNIQUE, user_id TEXT, track_id TEXT, track_name TEXT, artist_name TEXT, completed INTEGER NOT NULL DEFAULT 0, mood TEXT, played_at TIMESTAMP)`,
		`CREATE TABLE IF NOT EXISTS playlists (id TEXT PRIMARY KEY, owner TEXT, name TEXT, created_at TIMESTAMP)`,
		`CREATE TABLE IF NOT EXISTS playlist_tracks (id INTEGER PRIMARY KEY AUTOINCREMENT, playlist_id TEXT, track_id TEXT, track_name TEXT, artist_name TEXT)`,
		`CREATE TABLE IF NOT EXISTS moods (id INTEGER PRIMARY KEY AUTOINCREMENT, user_id TEXT, mood TEXT NOT NULL, confidence REAL NOT NULL, source TEXT NOT NULL, created_at TIMESTAMP NOT NULL)`,
		`CREATE INDEX IF NOT EXISTS idx_moods_user_created ON moods(user_id, created_at)`,
	}
	// Execute the schema creation statements. Errors here likely mean the
	// database file is not writable.
	for _, s := range stmts {
		if _, err := d.Exec(s); err != nil {
			d.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}
	}
	return &DB{d}, nil
}

// Get returns the raw value stored under key or ErrNotFound.
func (db *DB) Get(ctx context.Context, key string) (string, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	return v, err
}

// Set stores value under key, replacing any previous value.
func (db *DB) Set(ctx context.Context, key, value string) error {
	_, err := db.ExecContext(ctx, `INSERT INTO kv(key, value, updated_at) VALUES(?, ?, ?) ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`, key, value, time.Now().UTC())
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (db *DB) Delete(ctx context.Context, key string) error {
	_, err := db.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

// GetJSON decodes the value stored under key into v. ErrNotFound is returned
// for missing keys; decoding errors are returned as is so callers can treat
// corrupt entries as absent.
func (db *DB) GetJSON(ctx context.Context, key string, v any) error {
	raw, err := db.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and stores it under key.
func (db *DB) SetJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.Set(ctx, key, string(b))
}

// SaveToken persists the OAuth token for the given userID. If a token
// already exists it is replaced.
func (db *DB) SaveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	b, err := json.Marshal(token)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO tokens(user_id, token) VALUES(?, ?) ON CONFLICT(user_id) DO UPDATE SET token=excluded.token`, userID, string(b))
	return err
}

// GetToken retrieves the OAuth token stored for userID. The returned token
// includes the refresh token if one was originally saved.
func (db *DB) GetToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	var data string
	if err := db.QueryRowContext(ctx, `SELECT token FROM tokens WHERE user_id=?`, userID).Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal([]byte(data), &tok); err != nil {
		return nil, err
	}
	return &tok, nil
}

// Favorite is a liked track mirrored locally.
type Favorite struct {
	TrackID    string    `json:"song_id"`
	TrackName  string    `json:"song_name"`
	ArtistName string    `json:"artist_name"`
	AlbumName  string    `json:"album_name,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	DurationMs int       `json:"duration_ms,omitempty"`
	LikedAt    time.Time `json:"liked_at"`
}

// AddFavorite inserts a track into the favorites mirror for userID.
// Re-adding an existing track refreshes its metadata.
func (db *DB) AddFavorite(ctx context.Context, userID string, f Favorite) error {
	if f.LikedAt.IsZero() {
		f.LikedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO favorites(user_id, track_id, track_name, artist_name, album_name, image_url, duration_ms, liked_at) VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(user_id, track_id) DO UPDATE SET track_name=excluded.track_name, artist_name=excluded.artist_name, album_name=excluded.album_name, image_url=excluded.image_url, duration_ms=excluded.duration_ms`,
		userID, f.TrackID, f.TrackName, f.ArtistName, f.AlbumName, f.ImageURL, f.DurationMs, f.LikedAt)
	return err
}

// DeleteFavorite removes a track from the user's favorites. ErrNotFound is
// returned when the favorite does not exist.
func (db *DB) DeleteFavorite(ctx context.Context, userID, trackID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM favorites WHERE user_id=? AND track_id=?`, userID, trackID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// IsFavorite reports whether trackID is in the user's favorites.
func (db *DB) IsFavorite(ctx context.Context, userID, trackID string) (bool, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM favorites WHERE user_id=? AND track_id=?`, userID, trackID).Scan(&n)
	return n > 0, err
}

// ReplaceFavorites swaps the user's mirror for favs, given newest first, in
// one transaction.
func (db *DB) ReplaceFavorites(ctx context.Context, userID string, favs []Favorite) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id=?`, userID); err != nil {
		return err
	}
	// Insert oldest first so ties on liked_at keep the given order.
	for i := len(favs) - 1; i >= 0; i-- {
		f := favs[i]
		if f.LikedAt.IsZero() {
			f.LikedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO favorites(user_id, track_id, track_name, artist_name, album_name, image_url, duration_ms, liked_at) VALUES(?,?,?,?,?,?,?,?)`,
			userID, f.TrackID, f.TrackName, f.ArtistName, f.AlbumName, f.ImageURL, f.DurationMs, f.LikedAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListFavorites retrieves all favorites stored for userID, most recently
// liked first.
func (db *DB) ListFavorites(ctx context.Context, userID string) ([]Favorite, error) {
	rows, err := db.QueryContext(ctx, `SELECT track_id, track_name, artist_name, IFNULL(album_name,''), IFNULL(image_url,''), IFNULL(duration_ms,0), liked_at FROM favorites WHERE user_id=? ORDER BY liked_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fs []Favorite
	for rows.Next() {
		var f Favorite
		if err := rows.Scan(&f.TrackID, &f.TrackName, &f.ArtistName, &f.AlbumName, &f.ImageURL, &f.DurationMs, &f.LikedAt); err != nil {
			return nil, err
		}
		fs = append(fs, f)
	}
	return fs, rows.Err()
}

// Play is one row of local listening history.
type Play struct {
	PlayID     string    `json:"play_id"`
	TrackID    string    `json:"track_id"`
	TrackName  string    `json:"track_name"`
	ArtistName string    `json:"artist_name"`
	Completed  bool      `json:"completed"`
	Mood       string    `json:"mood_detected,omitempty"`
	PlayedAt   time.Time `json:"played_at"`
}

// AddHistory records a listening event for userID. Rows are keyed by
// PlayID: recording the same play again (for example when it completes)
// updates the completed flag instead of adding a second play.
func (db *DB) AddHistory(ctx context.Context, userID string, p Play) error {
	_, err := db.ExecContext(ctx, `INSERT INTO history(play_id, user_id, track_id, track_name, artist_name, completed, mood, played_at) VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(play_id) DO UPDATE SET completed=MAX(history.completed, excluded.completed)`,
		p.PlayID, userID, p.TrackID, p.TrackName, p.ArtistName, p.Completed, p.Mood, p.PlayedAt)
	return err
}

// RecentHistory returns the latest plays for userID, newest first.
func (db *DB) RecentHistory(ctx context.Context, userID string, limit int) ([]Play, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx, `SELECT play_id, track_id, track_name, artist_name, completed, IFNULL(mood,''), played_at FROM history WHERE user_id=? ORDER BY played_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Play
	for rows.Next() {
		var p Play
		if err := rows.Scan(&p.PlayID, &p.TrackID, &p.TrackName, &p.ArtistName, &p.Completed, &p.Mood, &p.PlayedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// DeleteHistory removes one play of userID by its play id.
func (db *DB) DeleteHistory(ctx context.Context, userID, playID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM history WHERE user_id=? AND play_id=?`, userID, playID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearHistory removes every play of userID and reports how many were deleted.
func (db *DB) ClearHistory(ctx context.Context, userID string) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM history WHERE user_id=?`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ArtistCount represents how many times an artist was played.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

// TopArtistsSince returns the most played artists since the provided time.
func (db *DB) TopArtistsSince(ctx context.Context, userID string, since time.Time) ([]ArtistCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT artist_name, COUNT(*) c FROM history WHERE user_id=? AND played_at>=? GROUP BY artist_name ORDER BY c DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ArtistCount
	for rows.Next() {
		var ac ArtistCount
		if err := rows.Scan(&ac.Artist, &ac.Count); err != nil {
			return nil, err
		}
		res = append(res, ac)
	}
	return res, rows.Err()
}

// TrackCount represents how many times a specific track was played.
type TrackCount struct {
	TrackID string `json:"track_id"`
	Count   int    `json:"count"`
}

// TopTracksSince returns the most played tracks since the given time.
func (db *DB) TopTracksSince(ctx context.Context, userID string, since time.Time) ([]TrackCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT track_id, COUNT(*) c FROM history WHERE user_id=? AND played_at>=? GROUP BY track_id ORDER BY c DESC`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []TrackCount
	for rows.Next() {
		var tc TrackCount
		if err := rows.Scan(&tc.TrackID, &tc.Count); err != nil {
			return nil, err
		}
		res = append(res, tc)
	}
	return res, rows.Err()
}

// MonthCount groups play count totals by month in YYYY-MM format.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// MonthlyPlayCountsSince aggregates listening history per month starting from
// the provided time. Results are ordered chronologically.
func (db *DB) MonthlyPlayCountsSince(ctx context.Context, userID string, since time.Time) ([]MonthCount, error) {
	rows, err := db.QueryContext(ctx, `SELECT strftime('%Y-%m', played_at) m, COUNT(*) c FROM history WHERE user_id=? AND played_at>=? GROUP BY m ORDER BY m`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []MonthCount
	for rows.Next() {
		var mc MonthCount
		if err := rows.Scan(&mc.Month, &mc.Count); err != nil {
			return nil, err
		}
		res = append(res, mc)
	}
	return res, rows.Err()
}

// Playlist is a locally stored, user owned playlist.
type Playlist struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// PlaylistTrack represents a track entry within a playlist.
type PlaylistTrack struct {
	TrackID    string `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
}

// CreatePlaylist inserts a new playlist owned by the specified user.
func (db *DB) CreatePlaylist(ctx context.Context, owner, name string) (Playlist, error) {
	p := Playlist{ID: uuid.NewString(), Name: name, CreatedAt: time.Now().UTC()}
	if _, err := db.ExecContext(ctx, `INSERT INTO playlists(id, owner, name, created_at) VALUES(?,?,?,?)`, p.ID, owner, p.Name, p.CreatedAt); err != nil {
		return Playlist{}, err
	}
	return p, nil
}

// ListPlaylists returns the user's playlists, oldest first.
func (db *DB) ListPlaylists(ctx context.Context, owner string) ([]Playlist, error) {
	rows, err := db.QueryContext(ctx, `SELECT id, name, created_at FROM playlists WHERE owner=? ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Playlist
	for rows.Next() {
		var p Playlist
		if err := rows.Scan(&p.ID, &p.Name, &p.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// RenamePlaylist changes the name of one of owner's playlists.
func (db *DB) RenamePlaylist(ctx context.Context, owner, id, name string) (Playlist, error) {
	res, err := db.ExecContext(ctx, `UPDATE playlists SET name=? WHERE id=? AND owner=?`, name, id, owner)
	if err != nil {
		return Playlist{}, err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return Playlist{}, ErrNotFound
	}
	p := Playlist{ID: id}
	err = db.QueryRowContext(ctx, `SELECT name, created_at FROM playlists WHERE id=?`, id).Scan(&p.Name, &p.CreatedAt)
	return p, err
}

// DeletePlaylist removes one of owner's playlists along with its tracks.
func (db *DB) DeletePlaylist(ctx context.Context, owner, id string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE id=? AND owner=?`, id, owner)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id=?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// AddTrackToPlaylist appends a track to the playlist. ErrNotFound is
// returned when the playlist does not exist.
func (db *DB) AddTrackToPlaylist(ctx context.Context, playlistID string, t PlaylistTrack) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM playlists WHERE id=?`, playlistID).Scan(&n); err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	_, err := db.ExecContext(ctx, `INSERT INTO playlist_tracks(playlist_id, track_id, track_name, artist_name) VALUES(?,?,?,?)`, playlistID, t.TrackID, t.TrackName, t.ArtistName)
	return err
}

// RemoveTrackFromPlaylist deletes every occurrence of trackID from the
// playlist. ErrNotFound is returned when nothing was removed.
func (db *DB) RemoveTrackFromPlaylist(ctx context.Context, playlistID, trackID string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM playlist_tracks WHERE playlist_id=? AND track_id=?`, playlistID, trackID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPlaylistTracks returns all tracks stored in the given playlist in
// insertion order.
func (db *DB) ListPlaylistTracks(ctx context.Context, playlistID string) ([]PlaylistTrack, error) {
	rows, err := db.QueryContext(ctx, `SELECT track_id, track_name, artist_name FROM playlist_tracks WHERE playlist_id=? ORDER BY id`, playlistID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []PlaylistTrack
	for rows.Next() {
		var pt PlaylistTrack
		if err := rows.Scan(&pt.TrackID, &pt.TrackName, &pt.ArtistName); err != nil {
			return nil, err
		}
		res = append(res, pt)
	}
	return res, rows.Err()
}

// MoodEntry is one recorded mood detection.
type MoodEntry struct {
	ID         int64     `json:"id"`
	Mood       string    `json:"mood"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source"`
	CreatedAt  time.Time `json:"created_at"`
}

// AddMoodEntry appends a detection to userID's mood journal.
func (db *DB) AddMoodEntry(ctx context.Context, userID string, e MoodEntry) error {
	_, err := db.ExecContext(ctx, `INSERT INTO moods(user_id, mood, confidence, source, created_at) VALUES(?,?,?,?,?)`,
		userID, e.Mood, e.Confidence, e.Source, e.CreatedAt.UTC())
	return err
}

// MoodHistory returns a page of userID's detections, newest first, and the
// total number recorded.
func (db *DB) MoodHistory(ctx context.Context, userID string, limit, offset int) ([]MoodEntry, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM moods WHERE user_id=?`, userID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := db.QueryContext(ctx, `SELECT id, mood, confidence, source, created_at FROM moods WHERE user_id=? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	res := []MoodEntry{}
	for rows.Next() {
		var e MoodEntry
		if err := rows.Scan(&e.ID, &e.Mood, &e.Confidence, &e.Source, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		res = append(res, e)
	}
	return res, total, rows.Err()
}

// MoodStats summarises detections recorded since a point in time.
type MoodStats struct {
	Total             int                `json:"total_analyses"`
	Distribution      map[string]int     `json:"mood_distribution"`
	AverageConfidence map[string]float64 `json:"average_confidence"`
	Sources           map[string]int     `json:"sources"`
}

// MoodStatsSince aggregates userID's journal from since onwards.
func (db *DB) MoodStatsSince(ctx context.Context, userID string, since time.Time) (MoodStats, error) {
	st := MoodStats{
		Distribution:      map[string]int{},
		AverageConfidence: map[string]float64{},
		Sources:           map[string]int{},
	}
	rows, err := db.QueryContext(ctx, `SELECT mood, COUNT(*), AVG(confidence) FROM moods WHERE user_id=? AND created_at>=? GROUP BY mood`, userID, since.UTC())
	if err != nil {
		return st, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m   string
			n   int
			avg float64
		)
		if err := rows.Scan(&m, &n, &avg); err != nil {
			return st, err
		}
		st.Distribution[m] = n
		st.AverageConfidence[m] = avg
		st.Total += n
	}
	if err := rows.Err(); err != nil {
		return st, err
	}
	srows, err := db.QueryContext(ctx, `SELECT source, COUNT(*) FROM moods WHERE user_id=? AND created_at>=? GROUP BY source`, userID, since.UTC())
	if err != nil {
		return st, err
	}
	defer srows.Close()
	for srows.Next() {
		var (
			src string
			n   int
		)
		if err := srows.Scan(&src, &n); err != nil {
			return st, err
		}
		st.Sources[src] = n
	}
	return st, srows.Err()
}
