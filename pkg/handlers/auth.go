// This file implements the Spotify OAuth login. The CSRF state is kept both
// in the key/value store and in a signed cookie; the callback only proceeds
// when the query, cookie and stored values agree.

package handlers

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

const (
	oauthStateKey    = "spotify_oauth_state"
	oauthStateCookie = "oauth_state"
)

// signValue computes an HMAC signature for value and appends it using the
// format value|signature.
func signValue(value string, key []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return value + "|" + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// verifyValue checks the signature appended by signValue and returns the
// original value when it matches.
func verifyValue(signed string, key []byte) (string, bool) {
	value, sig, ok := strings.Cut(signed, "|")
	if !ok {
		return "", false
	}
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil || !hmac.Equal(mac.Sum(nil), got) {
		return "", false
	}
	return value, true
}

// Login begins the Spotify OAuth flow.
func (app *Application) Login(w http.ResponseWriter, r *http.Request) {
	if app.Authenticator == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "spotify login not configured")
		return
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "failed to generate state")
		return
	}
	state := base64.RawURLEncoding.EncodeToString(b)
	if err := app.DB.Set(r.Context(), oauthStateKey, state); err != nil {
		log.WithError(err).Error("store oauth state")
		respondJSONError(w, http.StatusInternalServerError, "failed to store state")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    signValue(state, app.SignKey),
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, app.Authenticator.AuthURL(state), http.StatusFound)
}

// OAuthCallback exchanges the authorization code and persists the token
// bundle for the current user.
func (app *Application) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	if app.Authenticator == nil {
		respondJSONError(w, http.StatusServiceUnavailable, "spotify login not configured")
		return
	}
	c, err := r.Cookie(oauthStateCookie)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	state, ok := verifyValue(c.Value, app.SignKey)
	stored, err := app.DB.Get(r.Context(), oauthStateKey)
	if !ok || err != nil || state != stored || r.URL.Query().Get("state") != state {
		respondJSONError(w, http.StatusBadRequest, "state mismatch")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Path: "/", MaxAge: -1})
	if err := app.DB.Delete(r.Context(), oauthStateKey); err != nil {
		log.WithError(err).Warn("could not clear oauth state")
	}

	token, err := app.Authenticator.Token(state, r)
	if err != nil {
		log.WithError(err).Warn("spotify token exchange failed")
		respondJSONError(w, http.StatusBadGateway, "authentication failed")
		return
	}
	if err := app.DB.SaveToken(r.Context(), app.UserID, token); err != nil {
		log.WithError(err).Error("save spotify token")
		respondJSONError(w, http.StatusInternalServerError, "failed to store token")
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}
