package mood

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/events"
	"Mood-Music-Go/pkg/metrics"
)

// ErrCoolingDown is returned by Detect while the cooldown window is open.
var ErrCoolingDown = errors.New("mood detection cooling down")

// Devices opens a combined camera and microphone stream.
type Devices interface {
	Open(ctx context.Context) (Stream, error)
}

// Stream is an open capture session. Close releases every device.
type Stream interface {
	Frame(ctx context.Context) (image.Image, error)
	Record(ctx context.Context, d time.Duration) ([]byte, error)
	Close() error
}

// Analyzer submits a capture to the analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, image, audio []byte, durationHint time.Duration) (Analysis, error)
}

// Journal keeps every detection, not just the latest.
type Journal interface {
	RecordMood(ctx context.Context, det Detection) error
}

// Detector runs the capture pipeline and owns the detected mood.
type Detector struct {
	store    Store
	gate     *Gate
	devices  Devices
	analyzer Analyzer
	bus      *events.Bus
	journal  Journal

	settle     time.Duration
	record     time.Duration
	sampleRate int
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// DetectorOption customises a Detector.
type DetectorOption func(*Detector)

// WithTimings sets the camera settle delay and the audio recording length.
func WithTimings(settle, record time.Duration) DetectorOption {
	return func(d *Detector) {
		d.settle = settle
		d.record = record
	}
}

// WithSampleRate sets the sample rate recordings are re-encoded to.
func WithSampleRate(hz int) DetectorOption {
	return func(d *Detector) { d.sampleRate = hz }
}

// WithBus broadcasts every new detection.
func WithBus(b *events.Bus) DetectorOption {
	return func(d *Detector) { d.bus = b }
}

// WithJournal appends every detection to j.
func WithJournal(j Journal) DetectorOption {
	return func(d *Detector) { d.journal = j }
}

// WithNow replaces the wall clock.
func WithNow(now func() time.Time) DetectorOption {
	return func(d *Detector) {
		d.now = now
		if d.gate != nil {
			d.gate.now = now
		}
	}
}

// WithSleep replaces the settle wait, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) DetectorOption {
	return func(d *Detector) { d.sleep = fn }
}

// NewDetector wires the pipeline. gate may be nil to disable the cooldown.
func NewDetector(store Store, gate *Gate, devices Devices, analyzer Analyzer, opts ...DetectorOption) *Detector {
	d := &Detector{
		store:      store,
		gate:       gate,
		devices:    devices,
		analyzer:   analyzer,
		settle:     time.Second,
		record:     10 * time.Second,
		sampleRate: 16000,
		now:        time.Now,
		sleep:      sleepCtx,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Detect runs one auto detection. It returns ErrCoolingDown without touching
// any device while the gate is closed. Once started it always yields a
// detection: any failure produces the fallback, which is persisted and
// broadcast like a real result. A started capture runs to completion even if
// ctx is cancelled.
func (d *Detector) Detect(ctx context.Context) (Detection, error) {
	if d.gate != nil && !d.gate.Allow(ctx) {
		metrics.MoodDetections.WithLabelValues("cooldown").Inc()
		return Detection{}, ErrCoolingDown
	}
	ctx = context.WithoutCancel(ctx)
	start := d.now()
	defer func() { metrics.CaptureDuration.Observe(d.now().Sub(start).Seconds()) }()

	det, raw, err := d.run(ctx)
	if err != nil {
		log.WithError(err).Warn("mood detection failed, using fallback")
		metrics.MoodDetections.WithLabelValues("fallback").Inc()
		det = Fallback(d.now())
		d.save(ctx, det, nil)
		return det, nil
	}
	if d.gate != nil {
		if err := d.gate.Mark(ctx, det.Timestamp); err != nil {
			log.WithError(err).Warn("could not store detection time")
		}
	}
	metrics.MoodDetections.WithLabelValues("success").Inc()
	d.save(ctx, det, raw)
	return det, nil
}

func (d *Detector) run(ctx context.Context) (Detection, json.RawMessage, error) {
	img, audio, err := d.capture(ctx)
	if err != nil {
		return Detection{}, nil, err
	}
	res, err := d.analyzer.Analyze(ctx, img, audio, d.record)
	if err != nil {
		return Detection{}, nil, fmt.Errorf("analyze: %w", err)
	}
	m, err := Parse(res.Emotion)
	if err != nil {
		return Detection{}, nil, err
	}
	det := Detection{Mood: m, Confidence: clampUnit(res.Confidence), Timestamp: d.now(), Source: SourceAuto}
	log.WithFields(log.Fields{"mood": m, "confidence": det.Confidence}).Info("mood detected")
	return det, res.Raw, nil
}

// capture grabs one frame and one recording. The stream is closed before
// returning whatever happened.
func (d *Detector) capture(ctx context.Context) (img, audio []byte, err error) {
	if d.devices == nil {
		return nil, nil, errors.New("no capture devices configured")
	}
	s, err := d.devices.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open devices: %w", err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.WithError(cerr).Debug("closing capture stream")
		}
	}()

	if err := d.sleep(ctx, d.settle); err != nil {
		return nil, nil, err
	}
	frame, err := s.Frame(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("capture frame: %w", err)
	}
	img, err = EncodeJPEG(frame)
	if err != nil {
		return nil, nil, err
	}
	rec, err := s.Record(ctx, d.record)
	if err != nil {
		return nil, nil, fmt.Errorf("record audio: %w", err)
	}
	audio, err = EncodeWAV(rec, d.sampleRate)
	if err != nil {
		log.WithError(err).Warn("re-encoding failed, submitting original recording")
		audio = rec
	}
	return img, audio, nil
}

// SetManual stores a mood picked by the user.
func (d *Detector) SetManual(ctx context.Context, m Mood) (Detection, error) {
	if _, err := Parse(string(m)); err != nil {
		return Detection{}, err
	}
	det := Detection{Mood: m, Confidence: 1, Timestamp: d.now(), Source: SourceManual}
	metrics.MoodDetections.WithLabelValues("manual").Inc()
	if err := d.save(ctx, det, nil); err != nil {
		return det, err
	}
	return det, nil
}

// Current returns the persisted detection. Missing or corrupt entries read
// as absent.
func (d *Detector) Current(ctx context.Context) (Detection, bool) {
	raw, err := d.store.Get(ctx, DetectedMoodKey)
	if err != nil {
		return Detection{}, false
	}
	var det Detection
	if err := json.Unmarshal([]byte(raw), &det); err != nil {
		log.WithError(err).Warn("corrupt detected mood, ignoring")
		return Detection{}, false
	}
	if _, err := Parse(string(det.Mood)); err != nil {
		log.WithField("mood", det.Mood).Warn("unknown stored mood, ignoring")
		return Detection{}, false
	}
	return det, true
}

// Label returns the current mood label or "" when none is stored.
func (d *Detector) Label() string {
	det, ok := d.Current(context.Background())
	if !ok {
		return ""
	}
	return string(det.Mood)
}

// CooldownRemaining reports how long auto detection stays blocked.
func (d *Detector) CooldownRemaining(ctx context.Context) time.Duration {
	if d.gate == nil {
		return 0
	}
	return d.gate.Remaining(ctx)
}

// save persists det (and the raw analysis when present), appends it to the
// journal and broadcasts it.
// Storage errors are logged; the broadcast happens regardless.
func (d *Detector) save(ctx context.Context, det Detection, raw json.RawMessage) error {
	b, _ := json.Marshal(det)
	err := d.store.Set(ctx, DetectedMoodKey, string(b))
	if err != nil {
		log.WithError(err).Warn("could not persist detected mood")
	}
	if len(raw) > 0 {
		if aerr := d.store.Set(ctx, MoodAnalysisKey, string(raw)); aerr != nil {
			log.WithError(aerr).Warn("could not persist mood analysis")
		}
	}
	if d.journal != nil {
		if jerr := d.journal.RecordMood(ctx, det); jerr != nil {
			log.WithError(jerr).Warn("could not record mood in journal")
		}
	}
	if d.bus != nil {
		d.bus.Mood.Publish(events.MoodUpdated{
			Mood:       string(det.Mood),
			Confidence: det.Confidence,
			Source:     string(det.Source),
			Timestamp:  det.Timestamp,
		})
	}
	return err
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
