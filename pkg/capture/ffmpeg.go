// Package capture grabs camera frames and microphone recordings by shelling
// out to ffmpeg (v4l2 for video, ALSA for audio). FFmpeg implements
// mood.Devices.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/mood"
)

var (
	// ErrNoDevice is returned when ffmpeg or a capture device is missing.
	ErrNoDevice = errors.New("capture device not found")
	// ErrPermission is returned when a device exists but cannot be opened.
	ErrPermission = errors.New("capture device permission denied")
)

// FFmpeg captures from a V4L2 camera and an ALSA microphone.
type FFmpeg struct {
	Path       string
	Camera     string
	Mic        string
	SampleRate int
	Width      int
	Height     int
	// Settle is how much camera output is discarded before the frame is
	// taken, letting exposure and white balance adjust.
	Settle time.Duration

	run      func(ctx context.Context, name string, args ...string) ([]byte, error)
	lookPath func(file string) (string, error)
}

var _ mood.Devices = (*FFmpeg)(nil)

// New returns devices backed by the ffmpeg binary at path.
func New(path, camera, mic string, sampleRate int) *FFmpeg {
	return &FFmpeg{
		Path:       path,
		Camera:     camera,
		Mic:        mic,
		SampleRate: sampleRate,
		Width:      640,
		Height:     480,
		Settle:     time.Second,
		run:        runCommand,
		lookPath:   exec.LookPath,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w (%s)", filepath.Base(name), err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// Open checks that ffmpeg, the camera and the microphone are usable and
// returns a stream over them. The camera is started right away so it settles
// while the caller waits; Frame collects the result.
func (f *FFmpeg) Open(ctx context.Context) (mood.Stream, error) {
	if _, err := f.lookPath(f.Path); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v", ErrNoDevice, err)
	}
	if err := checkDevice(f.Camera); err != nil {
		return nil, err
	}
	if strings.HasPrefix(f.Mic, "/dev/") {
		if err := checkDevice(f.Mic); err != nil {
			return nil, err
		}
	}
	sctx, cancel := context.WithCancel(context.Background())
	s := &stream{f: f, ctx: sctx, cancel: cancel, frameDone: make(chan struct{})}
	go s.grab()
	return s, nil
}

func checkDevice(path string) error {
	fh, err := os.Open(path)
	switch {
	case err == nil:
		return fh.Close()
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermission, path)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNoDevice, path)
	default:
		return err
	}
}

// stream runs one ffmpeg process per capture. Closing it kills any process
// still running.
type stream struct {
	f      *FFmpeg
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once

	frameDone chan struct{}
	frame     []byte
	frameErr  error
}

// merge returns a context cancelled by either the caller or Close.
func (s *stream) merge(ctx context.Context) (context.Context, context.CancelFunc) {
	c, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return c, func() {
		stop()
		cancel()
	}
}

// grab reads one PNG frame after dropping the first Settle of video.
func (s *stream) grab() {
	defer close(s.frameDone)
	args := []string{
		"-v", "error",
		"-f", "v4l2",
		"-video_size", fmt.Sprintf("%dx%d", s.f.Width, s.f.Height),
		"-i", s.f.Camera,
	}
	if s.f.Settle > 0 {
		args = append(args, "-ss", strconv.FormatFloat(s.f.Settle.Seconds(), 'f', -1, 64))
	}
	args = append(args,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	)
	s.frame, s.frameErr = s.f.run(s.ctx, s.f.Path, args...)
}

// Frame waits for the frame started by Open.
func (s *stream) Frame(ctx context.Context) (image.Image, error) {
	select {
	case <-s.frameDone:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if s.frameErr != nil {
		return nil, s.frameErr
	}
	img, _, err := image.Decode(bytes.NewReader(s.frame))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// Record captures mono audio for d and returns it as a WAV file. ffmpeg
// writes to a temporary file so it can finalise the header sizes.
func (s *stream) Record(ctx context.Context, d time.Duration) ([]byte, error) {
	ctx, cancel := s.merge(ctx)
	defer cancel()
	tmp, err := os.CreateTemp("", "moodmusic-*.wav")
	if err != nil {
		return nil, err
	}
	name := tmp.Name()
	tmp.Close()
	defer os.Remove(name)

	args := []string{
		"-v", "error",
		"-y",
		"-f", "alsa",
		"-ac", "1",
		"-ar", strconv.Itoa(s.f.SampleRate),
		"-i", s.f.Mic,
		"-t", strconv.FormatFloat(d.Seconds(), 'f', -1, 64),
		"-af", "afftdn",
		"-c:a", "pcm_s16le",
		name,
	}
	if _, err := s.f.run(ctx, s.f.Path, args...); err != nil {
		return nil, err
	}
	return os.ReadFile(name)
}

func (s *stream) Close() error {
	s.once.Do(func() {
		s.cancel()
		log.Debug("capture stream closed")
	})
	return nil
}
