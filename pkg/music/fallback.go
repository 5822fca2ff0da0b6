package music

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Fallback tries each service in order and returns the first successful,
// non-empty result. It implements the single-attempt-then-fallback policy:
// there are no retries, a failing source is simply skipped. When every source
// fails the last error is returned.
type Fallback struct {
	Services []Service
	// OnFallback, when set, is called with the index of every source that
	// was skipped.
	OnFallback func(idx int, err error)
}

var _ Service = Fallback{}

// SearchTrack implements Service.
func (f Fallback) SearchTrack(ctx context.Context, q string, limit int) ([]Track, error) {
	return f.first(ctx, func(svc Service) ([]Track, error) {
		return svc.SearchTrack(ctx, q, limit)
	})
}

// MoodRecommendations implements Service.
func (f Fallback) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]Track, error) {
	return f.first(ctx, func(svc Service) ([]Track, error) {
		return svc.MoodRecommendations(ctx, mood, language, limit)
	})
}

func (f Fallback) first(ctx context.Context, call func(Service) ([]Track, error)) ([]Track, error) {
	lastErr := ErrNoTracks
	for i, svc := range f.Services {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tracks, err := call(svc)
		if err == nil && len(tracks) > 0 {
			return tracks, nil
		}
		if err == nil {
			err = ErrNoTracks
		}
		log.WithError(err).WithField("source", i).Warn("catalog source failed, trying next")
		if f.OnFallback != nil {
			f.OnFallback(i, err)
		}
		lastErr = err
	}
	return nil, lastErr
}
