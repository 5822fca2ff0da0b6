package mood

import (
	"context"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Gate suppresses auto detection while the last successful run is younger
// than the cooldown window. The timestamp lives in the Store as epoch
// milliseconds.
type Gate struct {
	store  Store
	window time.Duration
	now    func() time.Time
	mu     sync.Mutex
}

// NewGate creates a gate with the given cooldown window.
func NewGate(store Store, window time.Duration) *Gate {
	return &Gate{store: store, window: window, now: time.Now}
}

// last returns the stored timestamp. Missing or corrupt values read as zero.
func (g *Gate) last(ctx context.Context) time.Time {
	raw, err := g.store.Get(ctx, LastDetectionKey)
	if err != nil {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		log.WithField("value", raw).Warn("corrupt last detection timestamp, ignoring")
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// Remaining reports how long until auto detection is allowed again.
func (g *Gate) Remaining(ctx context.Context) time.Duration {
	last := g.last(ctx)
	if last.IsZero() {
		return 0
	}
	if left := g.window - g.now().Sub(last); left > 0 {
		return left
	}
	return 0
}

// Allow reports whether auto detection may run now.
func (g *Gate) Allow(ctx context.Context) bool {
	return g.Remaining(ctx) == 0
}

// Mark records a completed detection at t. An older t never overwrites a
// newer stored value.
func (g *Gate) Mark(ctx context.Context, t time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if prev := g.last(ctx); !prev.IsZero() && !t.After(prev) {
		return nil
	}
	return g.store.Set(ctx, LastDetectionKey, strconv.FormatInt(t.UnixMilli(), 10))
}
