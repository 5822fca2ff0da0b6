package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func fakeFFmpeg(t *testing.T, camera string) (*FFmpeg, *[][]string) {
	t.Helper()
	var calls [][]string
	f := New("ffmpeg", camera, "default", 16000)
	f.lookPath = func(string) (string, error) { return "/usr/bin/ffmpeg", nil }
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls = append(calls, args)
		if slices.Contains(args, "v4l2") {
			var buf bytes.Buffer
			png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 3)))
			return buf.Bytes(), nil
		}
		out := args[len(args)-1]
		return nil, os.WriteFile(out, []byte("RIFF....WAVE"), 0o600)
	}
	return f, &calls
}

// TestOpenMissingDevice reports ErrNoDevice for an absent camera or binary.
func TestOpenMissingDevice(t *testing.T) {
	f, _ := fakeFFmpeg(t, filepath.Join(t.TempDir(), "video9"))
	if _, err := f.Open(context.Background()); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice, got %v", err)
	}
	f.lookPath = func(string) (string, error) { return "", errors.New("not found") }
	if _, err := f.Open(context.Background()); !errors.Is(err, ErrNoDevice) {
		t.Fatalf("expected ErrNoDevice for missing ffmpeg, got %v", err)
	}
}

// TestFrameAndRecord runs both captures through a fake ffmpeg.
func TestFrameAndRecord(t *testing.T) {
	cam := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(cam, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	f, calls := fakeFFmpeg(t, cam)
	s, err := f.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	img, err := s.Frame(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 4 || b.Dy() != 3 {
		t.Fatalf("unexpected frame bounds %v", b)
	}
	audio, err := s.Record(context.Background(), 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if string(audio) != "RIFF....WAVE" {
		t.Fatalf("unexpected audio %q", audio)
	}
	rec := (*calls)[1]
	for _, want := range []string{"alsa", "16000", "10", "pcm_s16le"} {
		if !slices.Contains(rec, want) {
			t.Errorf("record args %v missing %q", rec, want)
		}
	}
	if !slices.Contains((*calls)[0], "640x480") {
		t.Errorf("frame args %v missing resolution", (*calls)[0])
	}
}

// TestFrameStartsAtOpen grabs the frame while the caller is still settling
// and discards the warm-up video.
func TestFrameStartsAtOpen(t *testing.T) {
	cam := filepath.Join(t.TempDir(), "video0")
	os.WriteFile(cam, nil, 0o600)
	f, _ := fakeFFmpeg(t, cam)
	f.Settle = 1500 * time.Millisecond
	started := make(chan []string, 1)
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		started <- args
		var buf bytes.Buffer
		png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2)))
		return buf.Bytes(), nil
	}
	s, err := f.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var args []string
	select {
	case args = <-started:
	case <-time.After(time.Second):
		t.Fatal("camera not started by Open")
	}
	i := slices.Index(args, "-ss")
	if i < 0 || args[i+1] != "1.5" || i < slices.Index(args, "-i") {
		t.Fatalf("expected output seek past the warm-up, got %v", args)
	}
	if _, err := s.Frame(context.Background()); err != nil {
		t.Fatal(err)
	}
}

// TestCloseCancelsCaptures stops in-flight processes.
func TestCloseCancelsCaptures(t *testing.T) {
	cam := filepath.Join(t.TempDir(), "video0")
	os.WriteFile(cam, nil, 0o600)
	f, _ := fakeFFmpeg(t, cam)
	f.run = func(ctx context.Context, name string, args ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	s, err := f.Open(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	done := make(chan error)
	go func() {
		_, err := s.Record(context.Background(), time.Hour)
		done <- err
	}()
	s.Close()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected cancellation, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Close did not cancel the recording")
	}
}
