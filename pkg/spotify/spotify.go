// Package spotify wraps the official Spotify client library as a secondary
// catalog source for when the companion proxy is unavailable. It performs
// authentication using the client credentials flow. Tracks are enriched with
// audio features (energy, valence, tempo) when Spotify provides them.
//
// The wrapped library does not accept a context so cancellation is checked
// explicitly before each call.
package spotify

import (
	"context"

	"github.com/zmb3/spotify"
	"golang.org/x/oauth2/clientcredentials"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/music"
)

// searcher defines the subset of the spotify.Client used by this package.
// It allows the concrete client to be replaced in tests.
type searcher interface {
	SearchOpt(query string, t spotify.SearchType, opt *spotify.Options) (*spotify.SearchResult, error)
	GetAudioFeatures(ids ...spotify.ID) ([]*spotify.AudioFeatures, error)
}

// SpotifyClient wraps the official Spotify client providing higher level
// helper methods.
type SpotifyClient struct {
	client searcher
}

// Compile-time interface check ensuring SpotifyClient satisfies the generic
// music.Service interface used by the rest of the application.
var _ music.Service = (*SpotifyClient)(nil)

// NewSpotifyClient authenticates using the client credentials flow and returns
// a SpotifyClient ready for API calls. clientID and clientSecret are obtained
// from the Spotify developer dashboard.
func NewSpotifyClient(ctx context.Context, clientID string, clientSecret string) (*SpotifyClient, error) {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotify.TokenURL,
	}

	token, err := config.Token(ctx)
	if err != nil {
		return nil, err
	}

	c := spotify.Authenticator{}.NewClient(token)
	return &SpotifyClient{client: &c}, nil
}

// SearchTrack implements music.Service by querying the Spotify API for the
// supplied text. music.ErrNoTracks is returned when nothing matched.
func (sc *SpotifyClient) SearchTrack(ctx context.Context, query string, limit int) ([]music.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var opt *spotify.Options
	if limit > 0 {
		opt = &spotify.Options{Limit: &limit}
	}
	results, err := sc.client.SearchOpt(query, spotify.SearchTypeTrack, opt)
	if err != nil {
		return nil, err
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, music.ErrNoTracks
	}
	tracks := make([]music.Track, len(results.Tracks.Tracks))
	for i, t := range results.Tracks.Tracks {
		tracks[i] = convert(t)
	}
	sc.attachFeatures(ctx, tracks)
	return tracks, nil
}

// MoodRecommendations searches with the mood's query text since the
// recommendations endpoint is closed to new applications.
func (sc *SpotifyClient) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]music.Track, error) {
	return sc.SearchTrack(ctx, music.MoodQuery(mood, language), limit)
}

// attachFeatures fills Energy, Valence and Tempo in place. Failures leave the
// tracks untouched.
func (sc *SpotifyClient) attachFeatures(ctx context.Context, tracks []music.Track) {
	if ctx.Err() != nil || len(tracks) == 0 {
		return
	}
	ids := make([]spotify.ID, len(tracks))
	for i, t := range tracks {
		ids[i] = spotify.ID(t.ID)
	}
	feats, err := sc.client.GetAudioFeatures(ids...)
	if err != nil {
		log.WithError(err).Debug("spotify audio features unavailable")
		return
	}
	for i, f := range feats {
		if f == nil || i >= len(tracks) {
			continue
		}
		tracks[i].Energy = float64(f.Energy)
		tracks[i].Valence = float64(f.Valence)
		tracks[i].Tempo = float64(f.Tempo)
	}
}

func convert(t spotify.FullTrack) music.Track {
	names := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		names[i] = a.Name
	}
	tr := music.Track{
		ID:         string(t.ID),
		Title:      t.Name,
		Artist:     music.JoinArtists(names),
		Album:      t.Album.Name,
		Duration:   float64(t.Duration) / 1000,
		PreviewURL: t.PreviewURL,
		SpotifyURL: t.ExternalURLs["spotify"],
	}
	if len(t.Album.Images) > 0 {
		tr.CoverURL = t.Album.Images[0].URL
	}
	return tr
}
