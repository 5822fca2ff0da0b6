package mood

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"io"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

// JPEGQuality is used when exporting the captured frame.
const JPEGQuality = 80

// EncodeJPEG compresses a captured frame.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeWAV decodes a WAV or MP3 recording, resamples it to sampleRate and
// writes it back as mono 16-bit PCM WAV.
func EncodeWAV(blob []byte, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, errors.New("encode wav: invalid sample rate")
	}
	s, format, err := decodeAudio(blob)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	if format.SampleRate <= 0 || format.NumChannels <= 0 {
		return nil, fmt.Errorf("decode audio: invalid format %d Hz, %d channels", format.SampleRate, format.NumChannels)
	}

	target := beep.SampleRate(sampleRate)
	var src beep.Streamer = s
	if format.SampleRate != target {
		src = beep.Resample(4, format.SampleRate, target, s)
	}
	out := &memFile{}
	if err := wav.Encode(out, src, beep.Format{SampleRate: target, NumChannels: 1, Precision: 2}); err != nil {
		return nil, fmt.Errorf("encode wav: %w", err)
	}
	return out.buf, nil
}

func decodeAudio(blob []byte) (beep.StreamSeekCloser, beep.Format, error) {
	switch {
	case len(blob) >= 12 && string(blob[:4]) == "RIFF" && string(blob[8:12]) == "WAVE":
		s, f, err := wav.Decode(bytes.NewReader(blob))
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("decode wav: %w", err)
		}
		return s, f, nil
	case len(blob) >= 3 && string(blob[:3]) == "ID3",
		len(blob) >= 2 && blob[0] == 0xFF && blob[1]&0xE0 == 0xE0:
		s, f, err := mp3.Decode(io.NopCloser(bytes.NewReader(blob)))
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("decode mp3: %w", err)
		}
		return s, f, nil
	default:
		return nil, beep.Format{}, errors.New("unsupported recording format")
	}
}

// memFile is an in-memory io.WriteSeeker; the WAV encoder seeks back to
// patch the header sizes once the stream is drained.
type memFile struct {
	buf []byte
	pos int
}

func (m *memFile) Write(p []byte) (int, error) {
	if need := m.pos + len(p); need > len(m.buf) {
		m.buf = append(m.buf, make([]byte, need-len(m.buf))...)
	}
	copy(m.buf[m.pos:], p)
	m.pos += len(p)
	return len(p), nil
}

func (m *memFile) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, errors.New("seek: invalid whence")
	}
	if abs < 0 {
		return 0, errors.New("seek: negative position")
	}
	m.pos = int(abs)
	return abs, nil
}
