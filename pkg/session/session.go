// Package session manages the Supabase user session. Source hands out the
// current access token and refreshes it against the auth collaborator when it
// expires. Claims reads the user id and expiry out of a token without
// verifying its signature; the client never holds the signing secret and the
// backends verify tokens themselves.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrNoSession is returned when no refresh token is configured or the auth
// collaborator rejected it.
var ErrNoSession = errors.New("no active session")

// Source implements oauth2.TokenSource for a Supabase session.
type Source struct {
	URL          string
	AnonKey      string
	Client       *http.Client
	refreshToken string

	mu  sync.Mutex
	tok *oauth2.Token
	now func() time.Time
}

var _ oauth2.TokenSource = (*Source)(nil)

// NewSource creates a token source that refreshes using refreshToken. An
// initial access token may be supplied through initial.
func NewSource(supabaseURL, anonKey, refreshToken string, initial *oauth2.Token) *Source {
	return &Source{
		URL:          strings.TrimRight(supabaseURL, "/"),
		AnonKey:      anonKey,
		refreshToken: refreshToken,
		tok:          initial,
		now:          time.Now,
	}
}

// Token returns a valid access token, refreshing when the cached one has
// expired or is missing.
func (s *Source) Token() (*oauth2.Token, error) {
	return s.TokenContext(context.Background())
}

// TokenContext is Token with a caller supplied context for the refresh call.
func (s *Source) TokenContext(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tok != nil && s.tok.AccessToken != "" && (s.tok.Expiry.IsZero() || s.tok.Expiry.After(s.now().Add(10*time.Second))) {
		return s.tok, nil
	}
	if s.refreshToken == "" || s.URL == "" {
		return nil, ErrNoSession
	}
	tok, err := s.refresh(ctx)
	if err != nil {
		return nil, err
	}
	s.tok = tok
	return tok, nil
}

func (s *Source) refresh(ctx context.Context) (*oauth2.Token, error) {
	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}
	body, _ := json.Marshal(map[string]string{"refresh_token": s.refreshToken})
	u := s.URL + "/auth/v1/token?" + url.Values{"grant_type": {"refresh_token"}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", s.AnonKey)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		log.WithField("status", resp.StatusCode).Warn("session refresh rejected")
		return nil, ErrNoSession
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh session: %s", resp.Status)
	}
	var out struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		ExpiresIn    int64  `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if out.AccessToken == "" {
		return nil, ErrNoSession
	}
	if out.RefreshToken != "" {
		s.refreshToken = out.RefreshToken
	}
	tok := &oauth2.Token{AccessToken: out.AccessToken, TokenType: out.TokenType, RefreshToken: s.refreshToken}
	if out.ExpiresIn > 0 {
		tok.Expiry = s.now().Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	return tok, nil
}

// HTTPClient returns a client that attaches the session bearer token to
// every request.
func (s *Source) HTTPClient(ctx context.Context) *http.Client {
	return oauth2.NewClient(ctx, s)
}

// UserID returns the subject of the current access token.
func (s *Source) UserID(ctx context.Context) (string, error) {
	tok, err := s.TokenContext(ctx)
	if err != nil {
		return "", err
	}
	c, err := ParseClaims(tok.AccessToken)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

// Claims is the subset of the Supabase access token the client uses.
type Claims struct {
	Subject string
	Email   string
	Expiry  time.Time
}

// ParseClaims extracts the claims from a Supabase JWT without verifying it.
func ParseClaims(token string) (Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, fmt.Errorf("parse token: %w", err)
	}
	sub, err := mc.GetSubject()
	if err != nil || sub == "" {
		return Claims{}, fmt.Errorf("parse token: missing subject")
	}
	c := Claims{Subject: sub}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.Expiry = exp.Time
	}
	if email, ok := mc["email"].(string); ok {
		c.Email = email
	}
	return c, nil
}
