// Package history records listening activity. The player never talks to the
// persistence collaborator directly: it enqueues entries into an Outbox whose
// workers deliver them in the background. Delivery is best effort; failures
// are logged and counted, never reported back to the player.
package history

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/metrics"
	"Mood-Music-Go/pkg/music"
)

// Entry is one listening event. A play produces an entry with Completed set
// to false when it starts and a second one sharing the same PlayID when the
// track reaches the end.
type Entry struct {
	PlayID       string
	Track        music.Track
	PlayedAt     time.Time
	Completed    bool
	MoodDetected string
}

// Recorder delivers entries to a backing store.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, e Entry) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, e Entry) error { return f(ctx, e) }

// Enqueuer accepts entries without blocking. It is the only history
// dependency the player has.
type Enqueuer interface {
	Enqueue(e Entry) bool
}

// Outbox is a bounded queue drained by a fixed set of workers.
type Outbox struct {
	rec     Recorder
	jobs    chan Entry
	workers int
	timeout time.Duration
	mood    func() string

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// Option customises an Outbox.
type Option func(*Outbox)

// WithTimeout bounds each delivery attempt. The default is 10 seconds.
func WithTimeout(d time.Duration) Option {
	return func(o *Outbox) { o.timeout = d }
}

// WithMood supplies the current mood label for entries that do not carry one.
func WithMood(fn func() string) Option {
	return func(o *Outbox) { o.mood = fn }
}

// NewOutbox creates an outbox with the given worker count and queue size.
// A single worker keeps deliveries in enqueue order.
func NewOutbox(rec Recorder, workers, queueSize int, opts ...Option) *Outbox {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	o := &Outbox{rec: rec, jobs: make(chan Entry, queueSize), workers: workers, timeout: 10 * time.Second}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start launches the worker goroutines.
func (o *Outbox) Start() {
	for i := 0; i < o.workers; i++ {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			for e := range o.jobs {
				o.deliver(e)
			}
		}()
	}
}

// Stop closes the queue and waits for queued entries to be delivered.
func (o *Outbox) Stop() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	close(o.jobs)
	o.mu.Unlock()
	o.wg.Wait()
}

// Enqueue queues e without blocking. It returns false when the entry was
// dropped because the queue is full or the outbox is stopped.
func (o *Outbox) Enqueue(e Entry) bool {
	if e.MoodDetected == "" && o.mood != nil {
		e.MoodDetected = o.mood()
	}
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		metrics.HistoryJobs.WithLabelValues("dropped").Inc()
		return false
	}
	select {
	case o.jobs <- e:
		return true
	default:
		metrics.HistoryJobs.WithLabelValues("dropped").Inc()
		log.WithField("track_id", e.Track.ID).Warn("history outbox full, dropping entry")
		return false
	}
}

func (o *Outbox) deliver(e Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := o.rec.Record(ctx, e); err != nil {
		metrics.HistoryJobs.WithLabelValues("failed").Inc()
		log.WithError(err).WithFields(log.Fields{
			"track_id":  e.Track.ID,
			"completed": e.Completed,
		}).Warn("history record failed")
		return
	}
	metrics.HistoryJobs.WithLabelValues("recorded").Inc()
}

// Multi delivers each entry to every recorder. All recorders are attempted;
// the first error is returned.
type Multi []Recorder

// Record implements Recorder.
func (m Multi) Record(ctx context.Context, e Entry) error {
	var firstErr error
	for _, r := range m {
		if err := r.Record(ctx, e); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
