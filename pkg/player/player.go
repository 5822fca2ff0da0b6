package player

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/events"
	"Mood-Music-Go/pkg/history"
	"Mood-Music-Go/pkg/metrics"
	"Mood-Music-Go/pkg/music"
)

// DefaultVolume is the volume of a freshly constructed player.
const DefaultVolume = 50

// errUnchanged marks an operation that left the state untouched so no event
// is published for it.
var errUnchanged = errors.New("unchanged")

// Ticker is the part of time.Ticker the playback clock needs.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

type realTicker struct{ *time.Ticker }

func (t realTicker) Chan() <-chan time.Time { return t.C }

// Option customises a Player.
type Option func(*Player)

// WithTick sets the playback clock interval. The default is one second.
func WithTick(d time.Duration) Option {
	return func(p *Player) {
		if d > 0 {
			p.tick = d
		}
	}
}

// WithRecorder sets where listening history entries are enqueued.
func WithRecorder(r history.Enqueuer) Option {
	return func(p *Player) { p.rec = r }
}

// WithBus publishes a PlayerChanged event after every transition.
func WithBus(b *events.Bus) Option {
	return func(p *Player) { p.bus = b }
}

// WithRand replaces the shuffle index source. fn returns a value in [0,n).
func WithRand(fn func(n int) int) Option {
	return func(p *Player) { p.intn = fn }
}

// WithTicker replaces the clock ticker factory.
func WithTicker(fn func(d time.Duration) Ticker) Option {
	return func(p *Player) { p.newTicker = fn }
}

// WithClock replaces the wall clock used to stamp history entries.
func WithClock(now func() time.Time) Option {
	return func(p *Player) { p.now = now }
}

// Player is the playback control service. All methods are safe for
// concurrent use.
type Player struct {
	mu       sync.Mutex
	queue    []music.Track
	current  *music.Track
	index    int
	playing  bool
	progress float64
	volume   int
	shuffle  bool
	repeat   RepeatMode

	playID    string
	completed bool
	pending   []history.Entry

	clockStop chan struct{}
	closed    bool

	tick      time.Duration
	rec       history.Enqueuer
	bus       *events.Bus
	intn      func(n int) int
	newTicker func(d time.Duration) Ticker
	now       func() time.Time
}

// New creates a player with an empty queue.
func New(opts ...Option) *Player {
	p := &Player{
		volume: DefaultVolume,
		tick:   time.Second,
		intn:   rand.IntN,
		now:    time.Now,
		newTicker: func(d time.Duration) Ticker {
			return realTicker{time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// State returns a snapshot of the player.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := State{
		Queue:     append([]music.Track(nil), p.queue...),
		Index:     p.index,
		IsPlaying: p.playing,
		Progress:  p.progress,
		Volume:    p.volume,
		Shuffle:   p.shuffle,
		Repeat:    p.repeat,
	}
	if s.Queue == nil {
		s.Queue = []music.Track{}
	}
	if p.current != nil {
		t := *p.current
		s.Current = &t
	}
	return s
}

// PlayTrack starts t. A non-empty queue replaces the current queue;
// otherwise t is appended unless a track with the same ID is already queued.
// When the track cannot be found in the resulting queue the index falls back
// to 0.
func (p *Player) PlayTrack(t music.Track, queue []music.Track) {
	p.do("play", func() error {
		if len(queue) > 0 {
			p.queue = append([]music.Track(nil), queue...)
		} else if p.indexOf(t.ID) < 0 {
			p.queue = append(p.queue, t)
		}
		idx := p.indexOf(t.ID)
		if idx < 0 {
			log.WithField("track_id", t.ID).Debug("track not in queue, starting at index 0")
			idx = 0
		}
		p.index = idx
		p.start(t)
		return nil
	})
}

// TogglePlayPause flips between playing and paused. It does nothing when no
// track is loaded.
func (p *Player) TogglePlayPause() {
	p.do("toggle", func() error {
		if p.current == nil {
			return errUnchanged
		}
		p.playing = !p.playing
		if p.playing {
			p.startClock()
		} else {
			p.stopClock()
		}
		return nil
	})
}

// Next advances according to the repeat and shuffle settings.
func (p *Player) Next() {
	p.do("next", func() error {
		if p.current == nil || len(p.queue) == 0 {
			return errUnchanged
		}
		p.next()
		return nil
	})
}

// Previous steps back one track, wrapping to the end only when repeating
// the queue.
func (p *Player) Previous() {
	p.do("previous", func() error {
		if len(p.queue) == 0 {
			return errUnchanged
		}
		idx := p.index - 1
		if idx < 0 {
			if p.repeat == RepeatContext {
				idx = len(p.queue) - 1
			} else {
				idx = 0
			}
		}
		p.index = idx
		p.start(p.queue[idx])
		return nil
	})
}

// Seek moves playback to pct percent of the current track, clamped to
// [0,100]. It does nothing when no track is loaded.
func (p *Player) Seek(pct float64) {
	p.do("seek", func() error {
		if p.current == nil {
			return errUnchanged
		}
		p.progress = clamp(pct, 0, 100)
		return nil
	})
}

// SetVolume sets the volume clamped to [0,100].
func (p *Player) SetVolume(v int) {
	p.do("volume", func() error {
		p.volume = int(clamp(float64(v), 0, 100))
		return nil
	})
}

// ToggleShuffle flips the shuffle flag.
func (p *Player) ToggleShuffle() {
	p.do("shuffle", func() error {
		p.shuffle = !p.shuffle
		return nil
	})
}

// ToggleRepeat cycles off, context, track.
func (p *Player) ToggleRepeat() {
	p.do("repeat", func() error {
		p.repeat = p.repeat.next()
		return nil
	})
}

// RemoveFromQueue deletes the entry at i. Removing the current entry loads
// whatever now sits at that index, or stops playback when nothing does.
func (p *Player) RemoveFromQueue(i int) error {
	return p.do("remove", func() error {
		if i < 0 || i >= len(p.queue) {
			return ErrIndexOutOfRange
		}
		p.queue = append(p.queue[:i:i], p.queue[i+1:]...)
		switch {
		case i < p.index:
			p.index--
		case i == p.index:
			if p.index < len(p.queue) {
				t := p.queue[p.index]
				p.current = &t
				p.progress = 0
				p.newPlay()
			} else {
				p.halt()
				p.index = max(len(p.queue)-1, 0)
			}
		}
		return nil
	})
}

// ClearQueue empties the queue and resets playback.
func (p *Player) ClearQueue() {
	p.do("clear", func() error {
		p.queue = nil
		p.index = 0
		p.halt()
		return nil
	})
}

// Tick advances progress by one clock interval. The playback clock calls it
// on every tick; it is exported so callers can drive the player without a
// real timer.
func (p *Player) Tick() {
	p.do("tick", func() error {
		if !p.advance() {
			return errUnchanged
		}
		return nil
	})
}

// Close stops the playback clock. The player stays readable.
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopClock()
	p.closed = true
}

// do runs fn under the lock, then hands queued history entries to the
// recorder and publishes the resulting state outside of it.
func (p *Player) do(action string, fn func() error) error {
	p.mu.Lock()
	err := fn()
	pending := p.pending
	p.pending = nil
	ev := events.PlayerChanged{Action: action, Index: p.index, IsPlaying: p.playing, Progress: p.progress}
	if p.current != nil {
		ev.TrackID = p.current.ID
	}
	p.mu.Unlock()

	if action != "tick" && !errors.Is(err, ErrIndexOutOfRange) {
		metrics.PlayerCommands.WithLabelValues(action).Inc()
	}
	if p.rec != nil {
		for _, e := range pending {
			p.rec.Enqueue(e)
		}
	}
	if err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if p.bus != nil {
		p.bus.Player.Publish(ev)
	}
	return nil
}

func (p *Player) indexOf(id string) int {
	for i, t := range p.queue {
		if t.ID == id {
			return i
		}
	}
	return -1
}

// start loads t as the current track and plays it from the beginning.
func (p *Player) start(t music.Track) {
	p.current = &t
	p.playing = true
	p.progress = 0
	p.newPlay()
	p.startClock()
}

// newPlay opens a history entry for the current track.
func (p *Player) newPlay() {
	p.playID = uuid.NewString()
	p.completed = false
	p.pending = append(p.pending, history.Entry{
		PlayID:   p.playID,
		Track:    *p.current,
		PlayedAt: p.now(),
	})
}

// markCompleted closes the current play once.
func (p *Player) markCompleted() {
	if p.current == nil || p.completed {
		return
	}
	p.completed = true
	p.pending = append(p.pending, history.Entry{
		PlayID:    p.playID,
		Track:     *p.current,
		PlayedAt:  p.now(),
		Completed: true,
	})
}

// halt unloads the current track and stops the clock.
func (p *Player) halt() {
	p.current = nil
	p.playing = false
	p.progress = 0
	p.stopClock()
}

func (p *Player) next() {
	switch {
	case p.repeat == RepeatTrack:
		p.start(*p.current)
	case p.shuffle:
		p.index = p.intn(len(p.queue))
		p.start(p.queue[p.index])
	case p.index+1 < len(p.queue):
		p.index++
		p.start(p.queue[p.index])
	case p.repeat == RepeatContext:
		p.index = 0
		p.start(p.queue[0])
	default:
		p.playing = false
		p.progress = 100
		p.stopClock()
	}
}

// advance moves progress forward by one interval and handles the end of the
// track. It reports whether anything changed.
func (p *Player) advance() bool {
	if !p.playing || p.current == nil || p.current.Duration <= 0 {
		return false
	}
	p.progress += (100 / p.current.Duration) * p.tick.Seconds()
	if p.progress < 100 {
		return true
	}
	p.progress = 100
	p.markCompleted()
	if p.repeat == RepeatTrack {
		p.progress = 0
		p.newPlay()
		return true
	}
	p.next()
	return true
}

// startClock launches the ticker goroutine unless one is running.
func (p *Player) startClock() {
	if p.clockStop != nil || p.closed {
		return
	}
	stop := make(chan struct{})
	p.clockStop = stop
	t := p.newTicker(p.tick)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.Chan():
				p.do("tick", func() error {
					// A tick racing a stop belongs to the old clock.
					if p.clockStop != stop || !p.advance() {
						return errUnchanged
					}
					return nil
				})
			}
		}
	}()
}

func (p *Player) stopClock() {
	if p.clockStop == nil {
		return
	}
	close(p.clockStop)
	p.clockStop = nil
}

// ClockRunning reports whether the playback clock goroutine is active.
func (p *Player) ClockRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clockStop != nil
}
