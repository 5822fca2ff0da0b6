// Package analysis submits captured images and recordings to the companion
// API's multimodal emotion endpoint.
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Mood-Music-Go/pkg/mood"
)

// Client calls POST /analyze-voice-and-face.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

var _ mood.Analyzer = (*Client)(nil)

// New returns a client for the API rooted at baseURL. hc may attach a
// bearer token so the server stores the analysis for the user.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: hc}
}

type prediction struct {
	Emotion    string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

type response struct {
	Success               bool            `json:"success"`
	Error                 string          `json:"error"`
	Mode                  string          `json:"mode"`
	Analysis              json.RawMessage `json:"analysis"`
	RecommendationEmotion string          `json:"recommendation_emotion"`
}

type analysisBody struct {
	MergedEmotion    string      `json:"merged_emotion"`
	MergedConfidence float64     `json:"merged_confidence"`
	VoicePrediction  *prediction `json:"voice_prediction"`
	FacePrediction   *prediction `json:"face_prediction"`
}

// Analyze uploads the capture. The merged verdict is preferred; single
// modality responses fall back to whichever prediction is present.
func (c *Client) Analyze(ctx context.Context, image, audio []byte, durationHint time.Duration) (mood.Analysis, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if len(audio) > 0 {
		if err := addFile(w, "audio_file", "recording"+audioExt(audio), audio); err != nil {
			return mood.Analysis{}, err
		}
	}
	if len(image) > 0 {
		if err := addFile(w, "image_file", "frame.jpg", image); err != nil {
			return mood.Analysis{}, err
		}
	}
	if durationHint > 0 {
		w.WriteField("duration", strconv.FormatFloat(durationHint.Seconds(), 'f', -1, 64))
	}
	if err := w.Close(); err != nil {
		return mood.Analysis{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/analyze-voice-and-face", &body)
	if err != nil {
		return mood.Analysis{}, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return mood.Analysis{}, fmt.Errorf("analyze: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return mood.Analysis{}, fmt.Errorf("analyze: %s", resp.Status)
	}
	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return mood.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	if !out.Success {
		if out.Error == "" {
			out.Error = "analysis unsuccessful"
		}
		return mood.Analysis{}, errors.New(out.Error)
	}
	var a analysisBody
	if len(out.Analysis) > 0 {
		if err := json.Unmarshal(out.Analysis, &a); err != nil {
			return mood.Analysis{}, fmt.Errorf("decode analysis: %w", err)
		}
	}
	res := mood.Analysis{Emotion: a.MergedEmotion, Confidence: a.MergedConfidence, Raw: out.Analysis}
	switch {
	case res.Emotion != "":
	case a.VoicePrediction != nil && a.VoicePrediction.Emotion != "":
		res.Emotion, res.Confidence = a.VoicePrediction.Emotion, a.VoicePrediction.Confidence
	case a.FacePrediction != nil && a.FacePrediction.Emotion != "":
		res.Emotion, res.Confidence = a.FacePrediction.Emotion, a.FacePrediction.Confidence
	case out.RecommendationEmotion != "":
		res.Emotion = out.RecommendationEmotion
	default:
		return mood.Analysis{}, errors.New("analysis carried no emotion")
	}
	return res, nil
}

func addFile(w *multipart.Writer, field, name string, data []byte) error {
	fw, err := w.CreateFormFile(field, name)
	if err != nil {
		return err
	}
	_, err = fw.Write(data)
	return err
}

// audioExt picks the extension the server uses to validate the upload.
func audioExt(b []byte) string {
	switch {
	case len(b) >= 4 && string(b[:4]) == "RIFF":
		return ".wav"
	case len(b) >= 3 && string(b[:3]) == "ID3", len(b) >= 2 && b[0] == 0xFF && b[1]&0xE0 == 0xE0:
		return ".mp3"
	case len(b) >= 4 && string(b[:4]) == "OggS":
		return ".ogg"
	case len(b) >= 4 && string(b[:4]) == "fLaC":
		return ".flac"
	default:
		return ".webm"
	}
}
