package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"Mood-Music-Go/pkg/db"
	"Mood-Music-Go/pkg/mood"
	"Mood-Music-Go/pkg/music"
	"Mood-Music-Go/pkg/persistence"
)

type memRecorder struct {
	mu      sync.Mutex
	entries []Entry
	err     error
	block   chan struct{}
}

func (m *memRecorder) Record(ctx context.Context, e Entry) error {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return m.err
}

func (m *memRecorder) got() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry(nil), m.entries...)
}

// TestOutboxDeliversInOrder verifies a single worker delivers every entry in
// enqueue order and Stop drains the queue.
func TestOutboxDeliversInOrder(t *testing.T) {
	rec := &memRecorder{}
	o := NewOutbox(rec, 1, 8, WithMood(func() string { return "calm" }))
	o.Start()
	for _, id := range []string{"a", "b", "c"} {
		if !o.Enqueue(Entry{PlayID: id, Track: music.Track{ID: id}}) {
			t.Fatalf("enqueue %s dropped", id)
		}
	}
	o.Stop()
	got := rec.got()
	if len(got) != 3 || got[0].PlayID != "a" || got[2].PlayID != "c" {
		t.Fatalf("unexpected deliveries %+v", got)
	}
	if got[0].MoodDetected != "calm" {
		t.Fatalf("expected mood to be filled, got %q", got[0].MoodDetected)
	}
}

// TestOutboxDropsWhenFull ensures Enqueue never blocks.
func TestOutboxDropsWhenFull(t *testing.T) {
	rec := &memRecorder{block: make(chan struct{})}
	o := NewOutbox(rec, 1, 1)
	o.Start()
	o.Enqueue(Entry{PlayID: "1"}) // picked up by the worker, which blocks
	deadline := time.Now().Add(time.Second)
	for len(o.jobs) != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if !o.Enqueue(Entry{PlayID: "2"}) {
		t.Fatal("second entry should fit in the queue")
	}
	done := make(chan bool)
	go func() { done <- o.Enqueue(Entry{PlayID: "3"}) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatal("expected drop when full")
		}
	case <-time.After(time.Second):
		t.Fatal("Enqueue blocked")
	}
	close(rec.block)
	o.Stop()
	if o.Enqueue(Entry{PlayID: "4"}) {
		t.Fatal("expected drop after Stop")
	}
	o.Stop()
}

// TestOutboxFailureIsSwallowed verifies recorder errors do not stop workers.
func TestOutboxFailureIsSwallowed(t *testing.T) {
	rec := &memRecorder{err: errors.New("boom")}
	o := NewOutbox(rec, 2, 4)
	o.Start()
	o.Enqueue(Entry{PlayID: "1"})
	o.Enqueue(Entry{PlayID: "2"})
	o.Stop()
	if n := len(rec.got()); n != 2 {
		t.Fatalf("expected both attempts, got %d", n)
	}
}

// TestMulti calls every recorder and reports the first error.
func TestMulti(t *testing.T) {
	first := &memRecorder{err: errors.New("remote down")}
	second := &memRecorder{}
	err := Multi{first, second}.Record(context.Background(), Entry{PlayID: "x"})
	if err == nil || err.Error() != "remote down" {
		t.Fatalf("unexpected error %v", err)
	}
	if len(second.got()) != 1 {
		t.Fatal("second recorder should still run")
	}
}

type fakeHistoryAPI struct{ got []persistence.HistoryEntry }

func (f *fakeHistoryAPI) AddHistory(ctx context.Context, e persistence.HistoryEntry) error {
	f.got = append(f.got, e)
	return nil
}

// TestRecorders maps entries onto the remote payload and the local table.
func TestRecorders(t *testing.T) {
	d, err := db.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	api := &fakeHistoryAPI{}
	tr := music.Track{ID: "t1", Title: "Song", Artist: "Artist", Duration: 180}
	now := time.Now()
	rec := Multi{RemoteRecorder{API: api}, LocalRecorder{DB: d, UserID: "u"}}
	ctx := context.Background()
	rec.Record(ctx, Entry{PlayID: "p", Track: tr, PlayedAt: now, MoodDetected: "sad"})
	rec.Record(ctx, Entry{PlayID: "p", Track: tr, PlayedAt: now, Completed: true, MoodDetected: "sad"})

	if len(api.got) != 2 || api.got[0].DurationMs != 180000 || !api.got[1].Completed || api.got[0].MoodDetected != "sad" {
		t.Fatalf("unexpected remote payloads %+v", api.got)
	}
	plays, err := d.RecentHistory(ctx, "u", 10)
	if err != nil || len(plays) != 1 || !plays[0].Completed {
		t.Fatalf("unexpected local history %+v %v", plays, err)
	}
}

func TestMoodJournal(t *testing.T) {
	d, err := db.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	ctx := context.Background()
	j := MoodJournal{DB: d, UserID: "u"}
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	if err := j.RecordMood(ctx, mood.Detection{Mood: mood.Sad, Confidence: 0.7, Source: mood.SourceAuto, Timestamp: at}); err != nil {
		t.Fatal(err)
	}
	if err := j.RecordMood(ctx, mood.Fallback(at.Add(time.Minute))); err != nil {
		t.Fatal(err)
	}
	got, total, err := d.MoodHistory(ctx, "u", 10, 0)
	if err != nil || total != 2 || len(got) != 2 {
		t.Fatalf("history = %+v total %d err %v", got, total, err)
	}
	if got[0].Mood != "happy" || got[0].Source != string(mood.SourceAuto) || got[1].Mood != "sad" || got[1].Confidence != 0.7 {
		t.Fatalf("unexpected entries %+v", got)
	}
}
