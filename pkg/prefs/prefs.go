// Package prefs keeps the local user's display and recommendation settings
// in the key/value store.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/db"
)

// Keys used in the store.
const (
	ThemeKey     = "theme"
	LanguagesKey = "language_priorities"
)

// MaxLanguages bounds the priority list.
const MaxLanguages = 10

// DefaultLanguage is reported when no priorities are stored. It adds no
// qualifier to recommendation queries.
const DefaultLanguage = "English"

// Themes accepted by SetTheme. The first entry is the default.
var Themes = []string{"system", "light", "dark"}

// ErrInvalid is returned for an unknown theme or an empty or oversized
// language list.
var ErrInvalid = errors.New("invalid preference")

// Store is the key/value store preferences live in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Prefs reads and writes preferences.
type Prefs struct {
	store Store
}

// New returns Prefs backed by store.
func New(store Store) *Prefs {
	return &Prefs{store: store}
}

// Theme returns the stored theme, or the default when it is unset or not
// one of Themes.
func (p *Prefs) Theme(ctx context.Context) (string, error) {
	v, err := p.store.Get(ctx, ThemeKey)
	if errors.Is(err, db.ErrNotFound) || (err == nil && !validTheme(v)) {
		return Themes[0], nil
	}
	return v, err
}

// SetTheme stores one of Themes.
func (p *Prefs) SetTheme(ctx context.Context, theme string) error {
	if !validTheme(theme) {
		return ErrInvalid
	}
	return p.store.Set(ctx, ThemeKey, theme)
}

func validTheme(t string) bool {
	for _, v := range Themes {
		if v == t {
			return true
		}
	}
	return false
}

// Languages returns the language priorities, highest first. Missing or
// unreadable data yields just DefaultLanguage.
func (p *Prefs) Languages(ctx context.Context) ([]string, error) {
	raw, err := p.store.Get(ctx, LanguagesKey)
	if errors.Is(err, db.ErrNotFound) {
		return []string{DefaultLanguage}, nil
	}
	if err != nil {
		return nil, err
	}
	var langs []string
	if err := json.Unmarshal([]byte(raw), &langs); err != nil || len(langs) == 0 {
		log.WithError(err).Warn("discarding stored language priorities")
		return []string{DefaultLanguage}, nil
	}
	return langs, nil
}

// SetLanguages stores langs in order. Entries are trimmed, blanks dropped
// and repeats removed case-insensitively, keeping the first. The stored list
// is returned.
func (p *Prefs) SetLanguages(ctx context.Context, langs []string) ([]string, error) {
	seen := make(map[string]bool, len(langs))
	out := []string{}
	for _, l := range langs {
		l = strings.TrimSpace(l)
		k := strings.ToLower(l)
		if l == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, l)
	}
	if len(out) == 0 || len(out) > MaxLanguages {
		return nil, ErrInvalid
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, err
	}
	if err := p.store.Set(ctx, LanguagesKey, string(b)); err != nil {
		return nil, err
	}
	return out, nil
}

// RecommendationLanguage returns the qualifier appended to mood queries: the
// top priority, or "" when that is DefaultLanguage or nothing can be read.
func (p *Prefs) RecommendationLanguage(ctx context.Context) string {
	langs, err := p.Languages(ctx)
	if err != nil {
		log.WithError(err).Warn("load language priorities")
		return ""
	}
	if strings.EqualFold(langs[0], DefaultLanguage) {
		return ""
	}
	return langs[0]
}
