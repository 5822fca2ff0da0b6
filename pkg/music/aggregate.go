// This file implements an aggregation service which combines multiple
// providers to broaden search results and recommendations. An error is
// surfaced only when every configured service fails.
package music

import (
	"context"
	"sync"
)

// Aggregator queries each configured Service concurrently and merges the
// results. Duplicates are removed based on track ID, keeping the first seen.
type Aggregator struct {
	Services []Service
}

var _ Service = Aggregator{}

// SearchTrack returns the union of results from all underlying services.
// Failure of one service does not prevent results from others.
func (a Aggregator) SearchTrack(ctx context.Context, q string, limit int) ([]Track, error) {
	return a.fanOut(func(svc Service) ([]Track, error) {
		return svc.SearchTrack(ctx, q, limit)
	})
}

// MoodRecommendations merges mood recommendations from all services.
func (a Aggregator) MoodRecommendations(ctx context.Context, mood, language string, limit int) ([]Track, error) {
	return a.fanOut(func(svc Service) ([]Track, error) {
		return svc.MoodRecommendations(ctx, mood, language, limit)
	})
}

func (a Aggregator) fanOut(call func(Service) ([]Track, error)) ([]Track, error) {
	if len(a.Services) == 0 {
		return nil, nil
	}
	type result struct {
		idx    int
		tracks []Track
		err    error
	}
	var wg sync.WaitGroup
	resCh := make(chan result, len(a.Services))
	for i, svc := range a.Services {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tracks, err := call(svc)
			resCh <- result{idx: i, tracks: tracks, err: err}
		}()
	}
	wg.Wait()
	close(resCh)

	// Merge in service order so results are stable between calls.
	ordered := make([]result, len(a.Services))
	for r := range resCh {
		ordered[r.idx] = r
	}
	seen := make(map[string]struct{})
	var merged []Track
	var firstErr error
	successes := 0
	for _, r := range ordered {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		successes++
		for _, t := range r.tracks {
			if _, ok := seen[t.ID]; !ok {
				seen[t.ID] = struct{}{}
				merged = append(merged, t)
			}
		}
	}
	if successes == 0 && firstErr != nil {
		return nil, firstErr
	}
	return merged, nil
}
