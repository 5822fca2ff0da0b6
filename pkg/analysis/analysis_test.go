package analysis

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestAnalyzeMerged uploads both files and reads the merged verdict.
func TestAnalyzeMerged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze-voice-and-face" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatal(err)
		}
		audio, hdr, err := r.FormFile("audio_file")
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Filename != "recording.wav" {
			t.Errorf("audio filename = %s", hdr.Filename)
		}
		b, _ := io.ReadAll(audio)
		if string(b) != "RIFFdata" {
			t.Errorf("audio body = %q", b)
		}
		if _, _, err := r.FormFile("image_file"); err != nil {
			t.Errorf("missing image: %v", err)
		}
		if r.FormValue("duration") != "10" {
			t.Errorf("duration = %q", r.FormValue("duration"))
		}
		w.Write([]byte(`{"success":true,"mode":"voice-and-face","analysis":{"merged_emotion":"sad","merged_confidence":0.77,"agreement":"strong"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, srv.Client())
	res, err := c.Analyze(context.Background(), []byte{0xFF, 0xD8}, []byte("RIFFdata"), 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	if res.Emotion != "sad" || res.Confidence != 0.77 {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.Raw) == 0 {
		t.Fatal("raw analysis should be kept")
	}
}

// TestAnalyzeSingleModalityAndFailures covers voice-only payloads and the
// error paths.
func TestAnalyzeSingleModalityAndFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		emotion string
		wantErr bool
	}{
		{"voice only", 200, `{"success":true,"mode":"voice-only","analysis":{"voice_prediction":{"emotion":"angry","confidence":0.6}}}`, "angry", false},
		{"face only", 200, `{"success":true,"mode":"face-only","analysis":{"face_prediction":{"emotion":"neutral","confidence":0.9}}}`, "neutral", false},
		{"unsuccessful", 200, `{"success":false,"error":"Provide at least one of audio_file or image_file"}`, "", true},
		{"server error", 500, `oops`, "", true},
		{"no emotion", 200, `{"success":true,"analysis":{}}`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			res, err := New(srv.URL, srv.Client()).Analyze(context.Background(), nil, []byte("x"), 0)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", res)
				}
				return
			}
			if err != nil || res.Emotion != tt.emotion {
				t.Fatalf("got %+v %v", res, err)
			}
		})
	}
}
