package prefs

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"Mood-Music-Go/pkg/db"
)

func newPrefs(t *testing.T) (*Prefs, *db.DB) {
	t.Helper()
	d, err := db.New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return New(d), d
}

func TestThemeDefaults(t *testing.T) {
	p, d := newPrefs(t)
	ctx := context.Background()
	if th, err := p.Theme(ctx); err != nil || th != "system" {
		t.Fatalf("unset theme = %q %v", th, err)
	}
	if err := p.SetTheme(ctx, "dark"); err != nil {
		t.Fatal(err)
	}
	if th, _ := p.Theme(ctx); th != "dark" {
		t.Fatalf("theme = %q", th)
	}
	if err := p.SetTheme(ctx, "neon"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	d.Set(ctx, ThemeKey, "neon")
	if th, _ := p.Theme(ctx); th != "system" {
		t.Fatalf("unknown stored theme = %q", th)
	}
}

func TestSetLanguagesNormalises(t *testing.T) {
	p, _ := newPrefs(t)
	ctx := context.Background()
	got, err := p.SetLanguages(ctx, []string{" Hindi ", "", "english", "hindi", "Bengali"})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"Hindi", "english", "Bengali"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("stored %v, want %v", got, want)
	}
	if langs, _ := p.Languages(ctx); !reflect.DeepEqual(langs, want) {
		t.Fatalf("loaded %v", langs)
	}
	if l := p.RecommendationLanguage(ctx); l != "Hindi" {
		t.Fatalf("recommendation language = %q", l)
	}
}

func TestSetLanguagesRejects(t *testing.T) {
	p, _ := newPrefs(t)
	ctx := context.Background()
	tooMany := make([]string, MaxLanguages+1)
	for i := range tooMany {
		tooMany[i] = string(rune('a' + i))
	}
	for _, langs := range [][]string{nil, {" ", ""}, tooMany} {
		if _, err := p.SetLanguages(ctx, langs); !errors.Is(err, ErrInvalid) {
			t.Errorf("SetLanguages(%q) err = %v", langs, err)
		}
	}
}

// TestDefaultLanguage covers the unset, corrupt and English cases, none of
// which qualify the recommendation query.
func TestDefaultLanguage(t *testing.T) {
	p, d := newPrefs(t)
	ctx := context.Background()
	if langs, err := p.Languages(ctx); err != nil || !reflect.DeepEqual(langs, []string{"English"}) {
		t.Fatalf("unset languages = %v %v", langs, err)
	}
	if l := p.RecommendationLanguage(ctx); l != "" {
		t.Fatalf("unset recommendation language = %q", l)
	}
	d.Set(ctx, LanguagesKey, "{broken")
	if langs, _ := p.Languages(ctx); !reflect.DeepEqual(langs, []string{"English"}) {
		t.Fatalf("corrupt languages = %v", langs)
	}
	p.SetLanguages(ctx, []string{"ENGLISH", "Spanish"})
	if l := p.RecommendationLanguage(ctx); l != "" {
		t.Fatalf("english first = %q", l)
	}
}
