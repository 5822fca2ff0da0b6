package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

func signed(t *testing.T, sub string, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   sub,
		"email": sub + "@example.com",
		"exp":   exp.Unix(),
	})
	s, err := tok.SignedString([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// TestParseClaims reads subject and expiry without the signing secret.
func TestParseClaims(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	c, err := ParseClaims(signed(t, "user-1", exp))
	if err != nil {
		t.Fatal(err)
	}
	if c.Subject != "user-1" || !c.Expiry.Equal(exp) || c.Email != "user-1@example.com" {
		t.Fatalf("unexpected claims %+v", c)
	}
	if _, err := ParseClaims("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}
}

// TestSourceRefresh ensures an expired token is refreshed with the apikey
// header and the rotated refresh token is kept.
func TestSourceRefresh(t *testing.T) {
	calls := 0
	access := signed(t, "user-2", time.Now().Add(time.Hour))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/auth/v1/token" || r.URL.Query().Get("grant_type") != "refresh_token" {
			t.Errorf("unexpected request %s", r.URL)
		}
		if r.Header.Get("apikey") != "anon" {
			t.Errorf("missing apikey header")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["refresh_token"] != "r1" {
			t.Errorf("refresh token = %q", body["refresh_token"])
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  access,
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "r2",
		})
	}))
	defer srv.Close()

	expired := &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Minute)}
	s := NewSource(srv.URL, "anon", "r1", expired)
	s.Client = srv.Client()
	tok, err := s.Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != access || tok.RefreshToken != "r2" {
		t.Fatalf("unexpected token %+v", tok)
	}
	// Cached until expiry.
	if _, err := s.Token(); err != nil || calls != 1 {
		t.Fatalf("expected cached token, calls=%d err=%v", calls, err)
	}
	id, err := s.UserID(context.Background())
	if err != nil || id != "user-2" {
		t.Fatalf("user id = %q %v", id, err)
	}
}

// TestSourceRejected maps an auth rejection to ErrNoSession.
func TestSourceRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer srv.Close()
	s := NewSource(srv.URL, "anon", "bad", nil)
	s.Client = srv.Client()
	if _, err := s.Token(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
	if _, err := NewSource("", "", "", nil).Token(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession without refresh token, got %v", err)
	}
}
