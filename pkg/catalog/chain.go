package catalog

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/applemusic"
	"Mood-Music-Go/pkg/config"
	"Mood-Music-Go/pkg/metrics"
	"Mood-Music-Go/pkg/music"
	"Mood-Music-Go/pkg/soundcloud"
	"Mood-Music-Go/pkg/spotify"
	"Mood-Music-Go/pkg/youtube"
)

// NewChain builds the catalog fallback chain from cfg: the selected source
// behind the recommendation cache, the companion proxy when another source
// was selected, and the offline dataset last.
func NewChain(ctx context.Context, cfg *config.Config, store Store, hc *http.Client) music.Service {
	proxy := New(cfg.APIBaseURL, hc)
	var selected music.Service
	name := cfg.MusicService

	sp := func() music.Service {
		if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
			return nil
		}
		sc, err := spotify.NewSpotifyClient(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret)
		if err != nil {
			log.WithError(err).Warn("spotify client init failed")
			return nil
		}
		return sc
	}
	yt := &youtube.Client{Key: cfg.YouTubeAPIKey, Client: hc}
	scl := &soundcloud.Client{ClientID: cfg.SoundCloudClientID, HTTP: hc}
	am := &applemusic.Client{HTTP: hc}

	switch cfg.MusicService {
	case "proxy", "":
	case "spotify":
		if s := sp(); s != nil {
			selected = s
		}
	case "youtube":
		selected = yt
	case "soundcloud":
		selected = scl
	case "applemusic":
		selected = am
	case "aggregate":
		agg := music.Aggregator{Services: []music.Service{proxy, yt, scl, am}}
		if s := sp(); s != nil {
			agg.Services = append(agg.Services, s)
		}
		selected = agg
	default:
		log.WithField("music_service", cfg.MusicService).Warn("unknown music service, using proxy")
	}

	var sources []music.Service
	var names []string
	if selected == nil {
		sources = append(sources, NewCache(proxy, store, DefaultTTL))
		names = append(names, "proxy")
	} else {
		sources = append(sources, NewCache(selected, store, DefaultTTL), proxy)
		names = append(names, name, "proxy")
	}
	sources = append(sources, music.NewOffline())
	names = append(names, "offline")

	return music.Fallback{
		Services: sources,
		OnFallback: func(idx int, err error) {
			metrics.CatalogFallbacks.WithLabelValues(names[idx]).Inc()
		},
	}
}
