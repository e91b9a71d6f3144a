// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/campusarena/potm-voting/middleware"
)

const (
	// VoterTokenHeader carries a client-held voter token
	VoterTokenHeader = "X-Voter-Token"
	// VoterCookie is where provisioned tokens are persisted in browsers
	VoterCookie = "potm_voter"

	unknownIP = "unknown"
)

// Resolver derives a voter identifier from a request.
// Implementations never fail; they fall back to a synthesized identifier.
type Resolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) string
}

// NetworkResolver identifies voters by their network origin
type NetworkResolver struct {
	// Salt hashes the address when set, so raw IPs never reach the ledger
	Salt string
}

func (n NetworkResolver) Resolve(w http.ResponseWriter, r *http.Request) string {
	ip := middleware.GetClientIP(r)
	if ip == "" {
		ip = unknownIP
	}
	if n.Salt != "" && ip != unknownIP {
		ip = HashIP(ip, n.Salt)
	}
	return "ip-" + ip
}

// TokenResolver identifies voters by a token they hold between requests.
type TokenResolver struct {
	// Provision issues a fresh token cookie when the request carries none
	Provision bool
	// Secure marks provisioned cookies as HTTPS only
	Secure bool
	// MaxAge of provisioned cookies; zero means a browser session cookie
	MaxAge time.Duration
}

func (t TokenResolver) Resolve(w http.ResponseWriter, r *http.Request) string {
	if token := RequestToken(r); token != "" {
		return "session-" + token
	}

	if !t.Provision || w == nil {
		return fallbackID()
	}

	token, err := GenerateVoterToken()
	if err != nil {
		slog.Warn("failed to provision voter token", "error", err)
		return fallbackID()
	}

	cookie := &http.Cookie{
		Name:     VoterCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   t.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if t.MaxAge > 0 {
		cookie.MaxAge = int(t.MaxAge.Seconds())
	}
	http.SetCookie(w, cookie)
	w.Header().Set(VoterTokenHeader, token)

	return "session-" + token
}

// AutoResolver picks the token variant when the request carries a token and
// the network variant otherwise.
type AutoResolver struct {
	Token   TokenResolver
	Network NetworkResolver
}

func (a AutoResolver) Resolve(w http.ResponseWriter, r *http.Request) string {
	if RequestToken(r) != "" {
		return a.Token.Resolve(w, r)
	}
	return a.Network.Resolve(w, r)
}

// RequestToken returns the voter token from the header or cookie, if any
func RequestToken(r *http.Request) string {
	if token := r.Header.Get(VoterTokenHeader); token != "" {
		return token
	}
	if c, err := r.Cookie(VoterCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}

func fallbackID() string {
	return "unknown-" + uuid.NewString()
}
