package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// run executes moodctl with args against a fresh App and returns its output.
func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	if err := app.Run(append([]string{"moodctl"}, args...)); err != nil {
		t.Fatalf("moodctl %v: %v", args, err)
	}
	return out.String()
}

func TestMoodCommands(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "moodctl.db"))

	if got := run(t, "mood", "show"); !strings.Contains(got, "no mood stored") {
		t.Fatalf("show before set: %q", got)
	}
	if got := run(t, "mood", "set", "Calm"); got != "mood set to calm\n" {
		t.Fatalf("set: %q", got)
	}
	got := run(t, "mood", "show")
	if !strings.HasPrefix(got, "calm (100%, manual,") {
		t.Fatalf("show: %q", got)
	}
	if strings.Contains(got, "auto detection available") {
		t.Errorf("manual mood should not start the cooldown: %q", got)
	}
}

func TestMoodHistoryCommand(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "moodctl.db"))

	if got := run(t, "mood", "history"); got != "0 of 0 shown\n" {
		t.Fatalf("empty history: %q", got)
	}
	run(t, "mood", "set", "sad")
	run(t, "mood", "set", "calm")
	got := run(t, "mood", "history", "--limit", "1", "--days", "7")
	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) != 4 {
		t.Fatalf("history: %q", got)
	}
	if !strings.Contains(lines[0], "calm") || !strings.HasSuffix(lines[0], "manual") || lines[1] != "1 of 2 shown" {
		t.Fatalf("history: %q", got)
	}
	if lines[2] != "sad        1 (avg 100%)" || lines[3] != "calm       1 (avg 100%)" {
		t.Fatalf("summary: %q", lines[2:])
	}
}

func TestLanguagesCommand(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "moodctl.db"))

	if got := run(t, "languages"); got != "English\n" {
		t.Fatalf("default: %q", got)
	}
	if got := run(t, "languages", "Bengali", " hindi ", "bengali"); got != "Bengali, hindi\n" {
		t.Fatalf("set: %q", got)
	}
	if got := run(t, "languages"); got != "Bengali, hindi\n" {
		t.Fatalf("show: %q", got)
	}
}

func TestFeedbackCommands(t *testing.T) {
	t.Setenv("DATABASE_PATH", filepath.Join(t.TempDir(), "moodctl.db"))

	id := strings.TrimSpace(run(t, "feedback", "add", "--category", "bug", "Dark mode flickers"))
	if id == "" {
		t.Fatal("add printed no id")
	}
	if got := run(t, "feedback", "vote", id); got != "Dark mode flickers: 1 votes\n" {
		t.Fatalf("vote: %q", got)
	}
	list := run(t, "feedback", "list")
	if !strings.HasPrefix(list, "*   1  bug") || !strings.Contains(list, id) {
		t.Fatalf("list: %q", list)
	}
}

func TestFormatDuration(t *testing.T) {
	for in, want := range map[float64]string{0: "0:00", 59.6: "1:00", 201.5: "3:22", 3600: "60:00"} {
		if got := formatDuration(in); got != want {
			t.Errorf("formatDuration(%v) = %s, want %s", in, got, want)
		}
	}
}
