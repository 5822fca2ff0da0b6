package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/music"
)

// DefaultTTL is how long cached recommendation lists stay fresh.
const DefaultTTL = 30 * time.Minute

// Store is the key/value store cached lists are kept in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Cache serves mood recommendations from the store while fresh and
// delegates everything else to the wrapped service.
type Cache struct {
	Service music.Service
	Store   Store
	TTL     time.Duration
	now     func() time.Time
}

var _ music.Service = (*Cache)(nil)

// NewCache wraps svc.
func NewCache(svc music.Service, store Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{Service: svc, Store: store, TTL: ttl, now: time.Now}
}

type cached struct {
	StoredAt time.Time     `json:"stored_at"`
	Tracks   []music.Track `json:"tracks"`
}

// Key returns the store key for a mood and language pair.
func Key(mood, language string) string {
	return "recs:" + strings.ToLower(mood) + ":" + strings.ToLower(language)
}

// SearchTrack is never cached.
func (c *Cache) SearchTrack(ctx context.Context, query string, limit int) ([]music.Track, error) {
	return c.Service.SearchTrack(ctx, query, limit)
}

// MoodRecommendations returns a fresh cached list when one exists, otherwise
// asks the service and caches a non-empty answer.
func (c *Cache) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]music.Track, error) {
	key := Key(mood, language)
	if raw, err := c.Store.Get(ctx, key); err == nil {
		var entry cached
		switch {
		case json.Unmarshal([]byte(raw), &entry) != nil:
			log.WithField("key", key).Warn("corrupt cached recommendations, ignoring")
		case c.now().Sub(entry.StoredAt) < c.TTL && len(entry.Tracks) >= limit:
			tracks := entry.Tracks
			if limit > 0 && len(tracks) > limit {
				tracks = tracks[:limit]
			}
			return tracks, nil
		}
	}
	tracks, err := c.Service.MoodRecommendations(ctx, mood, language, limit)
	if err != nil {
		return nil, err
	}
	if len(tracks) > 0 {
		b, _ := json.Marshal(cached{StoredAt: c.now(), Tracks: tracks})
		if err := c.Store.Set(ctx, key, string(b)); err != nil {
			log.WithError(err).WithField("key", key).Warn("could not cache recommendations")
		}
	}
	return tracks, nil
}
