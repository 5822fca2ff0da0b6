package config

import (
	"testing"
	"time"
)

// TestLoadDefaults verifies that an empty environment yields the documented
// defaults.
func TestLoadDefaults(t *testing.T) {
	t.Setenv("MOOD_COOLDOWN", "")
	t.Setenv("CAPTURE_SAMPLE_RATE", "")
	t.Setenv("LISTEN_ADDR", "")
	c := Load()
	if c.MoodCooldown != 5*time.Minute {
		t.Errorf("cooldown = %v", c.MoodCooldown)
	}
	if c.CaptureSampleRate != 16000 {
		t.Errorf("sample rate = %d", c.CaptureSampleRate)
	}
	if c.ListenAddr != ":4000" {
		t.Errorf("listen addr = %s", c.ListenAddr)
	}
}

// TestLoadOverrides ensures valid values replace defaults and invalid ones
// are ignored.
func TestLoadOverrides(t *testing.T) {
	t.Setenv("MOOD_COOLDOWN", "30s")
	t.Setenv("HISTORY_WORKERS", "3")
	t.Setenv("CAPTURE_RECORD", "bogus")
	c := Load()
	if c.MoodCooldown != 30*time.Second {
		t.Errorf("cooldown = %v", c.MoodCooldown)
	}
	if c.HistoryWorkers != 3 {
		t.Errorf("workers = %d", c.HistoryWorkers)
	}
	if c.CaptureRecord != 10*time.Second {
		t.Errorf("invalid duration should fall back, got %v", c.CaptureRecord)
	}
}
