// Package feedback implements a small feature-request board kept in the
// key/value store. Requests are voted on by the local user; each request
// remembers its vote count and the user's own votes are kept as a set.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"Mood-Music-Go/pkg/db"
)

// Keys used in the store.
const (
	RequestsKey = "feature_requests"
	VotesKey    = "feature_votes"
)

// Categories accepted by Add. An empty category is stored as "feature".
var Categories = []string{"feature", "improvement", "bug"}

var (
	// ErrNotFound is returned when a request id is unknown.
	ErrNotFound = errors.New("feature request not found")
	// ErrInvalid is returned for requests without a title or with an
	// unknown category.
	ErrInvalid = errors.New("invalid feature request")
)

// Store is the key/value store the board lives in.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// Request is one entry on the board.
type Request struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Votes       int       `json:"votes"`
	CreatedAt   time.Time `json:"created_at"`
	Voted       bool      `json:"voted"`
}

// Board serialises read-modify-write cycles on the stored lists.
type Board struct {
	store Store
	mu    sync.Mutex
	now   func() time.Time
}

// NewBoard returns a Board backed by store.
func NewBoard(store Store) *Board {
	return &Board{store: store, now: time.Now}
}

// Add stores a new request with zero votes.
func (b *Board) Add(ctx context.Context, title, description, category string) (Request, error) {
	title = strings.TrimSpace(title)
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = Categories[0]
	}
	if title == "" || !validCategory(category) {
		return Request{}, ErrInvalid
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	reqs, err := b.loadRequests(ctx)
	if err != nil {
		return Request{}, err
	}
	r := Request{
		ID:          uuid.NewString(),
		Title:       title,
		Description: strings.TrimSpace(description),
		Category:    category,
		CreatedAt:   b.now().UTC(),
	}
	reqs = append(reqs, r)
	if err := b.save(ctx, RequestsKey, reqs); err != nil {
		return Request{}, err
	}
	return r, nil
}

// List returns all requests ordered by votes, most voted first, with ties
// broken by newest first. Voted is set on the requests the user voted for.
func (b *Board) List(ctx context.Context) ([]Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	reqs, err := b.loadRequests(ctx)
	if err != nil {
		return nil, err
	}
	votes, err := b.loadVotes(ctx)
	if err != nil {
		return nil, err
	}
	for i := range reqs {
		reqs[i].Voted = votes[reqs[i].ID]
	}
	sort.SliceStable(reqs, func(i, j int) bool {
		if reqs[i].Votes != reqs[j].Votes {
			return reqs[i].Votes > reqs[j].Votes
		}
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
	return reqs, nil
}

// ToggleVote adds the user's vote to id, or removes it if already present.
// The updated request is returned.
func (b *Board) ToggleVote(ctx context.Context, id string) (Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	reqs, err := b.loadRequests(ctx)
	if err != nil {
		return Request{}, err
	}
	votes, err := b.loadVotes(ctx)
	if err != nil {
		return Request{}, err
	}
	idx := -1
	for i := range reqs {
		if reqs[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Request{}, ErrNotFound
	}
	r := &reqs[idx]
	if votes[id] {
		delete(votes, id)
		r.Votes = max(r.Votes-1, 0)
		r.Voted = false
	} else {
		votes[id] = true
		r.Votes++
		r.Voted = true
	}
	if err := b.save(ctx, RequestsKey, reqs); err != nil {
		return Request{}, err
	}
	ids := make([]string, 0, len(votes))
	for v := range votes {
		ids = append(ids, v)
	}
	sort.Strings(ids)
	if err := b.save(ctx, VotesKey, ids); err != nil {
		return Request{}, err
	}
	return *r, nil
}

func (b *Board) loadRequests(ctx context.Context) ([]Request, error) {
	return load[[]Request](ctx, b.store, RequestsKey)
}

func (b *Board) loadVotes(ctx context.Context) (map[string]bool, error) {
	ids, err := load[[]string](ctx, b.store, VotesKey)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// load decodes the value under key. Missing keys yield the zero value and
// corrupt values are logged and treated as empty.
func load[T any](ctx context.Context, store Store, key string) (T, error) {
	var v T
	raw, err := store.Get(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.WithError(err).WithField("key", key).Warn("discarding corrupt feedback data")
		var zero T
		return zero, nil
	}
	return v, nil
}

func (b *Board) save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.store.Set(ctx, key, string(data))
}

func validCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}
