// Package library manages the user's liked songs. The persistence
// collaborator is authoritative; a SQLite mirror answers when it cannot be
// reached so the liked list never disappears because of a network error.
package library

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/events"
	"Mood-Music-Go/pkg/music"
	"Mood-Music-Go/pkg/persistence"
)

// API is the subset of persistence.Client used for liked songs.
type API interface {
	ListLiked(ctx context.Context, limit int) ([]persistence.LikedSong, error)
	Like(ctx context.Context, s persistence.LikedSong) error
	Unlike(ctx context.Context, songID string) error
	IsLiked(ctx context.Context, songID string) (bool, error)
}

// Likes combines the remote liked songs with the local mirror.
type Likes struct {
	API    API // nil when signed out
	DB     *db.DB
	UserID string
	Bus    *events.Bus
}

// List returns liked songs, newest first. A successful remote answer
// refreshes the mirror; a failed one is served from it.
func (l *Likes) List(ctx context.Context, limit int) ([]music.Track, error) {
	if l.API != nil {
		songs, err := l.API.ListLiked(ctx, limit)
		if err == nil {
			favs := make([]db.Favorite, len(songs))
			tracks := make([]music.Track, len(songs))
			for i, s := range songs {
				favs[i] = favoriteFromSong(s)
				tracks[i] = s.Track()
			}
			if err := l.DB.ReplaceFavorites(ctx, l.UserID, favs); err != nil {
				log.WithError(err).Warn("could not refresh liked songs mirror")
			}
			return tracks, nil
		}
		log.WithError(err).Warn("liked songs unavailable, using local mirror")
	}
	favs, err := l.DB.ListFavorites(ctx, l.UserID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(favs) > limit {
		favs = favs[:limit]
	}
	tracks := make([]music.Track, len(favs))
	for i, f := range favs {
		tracks[i] = music.Track{
			ID:       f.TrackID,
			Title:    f.TrackName,
			Artist:   f.ArtistName,
			Album:    f.AlbumName,
			CoverURL: f.ImageURL,
			Duration: float64(f.DurationMs) / 1000,
			Liked:    true,
		}
	}
	return tracks, nil
}

// Like marks t as liked remotely and in the mirror.
func (l *Likes) Like(ctx context.Context, t music.Track) error {
	s := persistence.SongFromTrack(t)
	if l.API != nil {
		if err := l.API.Like(ctx, s); err != nil {
			log.WithError(err).WithField("track_id", t.ID).Warn("remote like failed, keeping local copy")
		}
	}
	if err := l.DB.AddFavorite(ctx, l.UserID, favoriteFromSong(s)); err != nil {
		return err
	}
	l.publish(t.ID, true)
	return nil
}

// Unlike removes trackID remotely and from the mirror.
func (l *Likes) Unlike(ctx context.Context, trackID string) error {
	if l.API != nil {
		if err := l.API.Unlike(ctx, trackID); err != nil {
			log.WithError(err).WithField("track_id", trackID).Warn("remote unlike failed")
		}
	}
	if err := l.DB.DeleteFavorite(ctx, l.UserID, trackID); err != nil && !errors.Is(err, db.ErrNotFound) {
		return err
	}
	l.publish(trackID, false)
	return nil
}

// IsLiked asks the collaborator, falling back to the mirror.
func (l *Likes) IsLiked(ctx context.Context, trackID string) (bool, error) {
	if l.API != nil {
		ok, err := l.API.IsLiked(ctx, trackID)
		if err == nil {
			return ok, nil
		}
		log.WithError(err).WithField("track_id", trackID).Debug("remote like check failed")
	}
	return l.DB.IsFavorite(ctx, l.UserID, trackID)
}

// Toggle flips the liked state of t and returns the new state.
func (l *Likes) Toggle(ctx context.Context, t music.Track) (bool, error) {
	liked, err := l.IsLiked(ctx, t.ID)
	if err != nil {
		return false, err
	}
	if liked {
		return false, l.Unlike(ctx, t.ID)
	}
	return true, l.Like(ctx, t)
}

// Annotate sets the Liked flag on tracks from the local mirror.
func (l *Likes) Annotate(ctx context.Context, tracks []music.Track) {
	for i := range tracks {
		if ok, err := l.DB.IsFavorite(ctx, l.UserID, tracks[i].ID); err == nil {
			tracks[i].Liked = ok
		}
	}
}

func (l *Likes) publish(trackID string, liked bool) {
	if l.Bus != nil {
		l.Bus.Likes.Publish(events.LikeToggled{TrackID: trackID, Liked: liked})
	}
}

func favoriteFromSong(s persistence.LikedSong) db.Favorite {
	f := db.Favorite{
		TrackID:    s.SongID,
		TrackName:  s.SongName,
		ArtistName: s.ArtistName,
		AlbumName:  s.AlbumName,
		ImageURL:   s.ImageURL,
		DurationMs: s.DurationMs,
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999"} {
		if t, err := time.Parse(layout, s.LikedAt); err == nil {
			f.LikedAt = t
			break
		}
	}
	return f
}
