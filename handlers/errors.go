// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/campusarena/potm-voting/middleware"
	"github.com/campusarena/potm-voting/voting"
)

// Client-facing messages per error kind
var kindMessages = map[voting.Kind]string{
	voting.KindValidation:   "Missing required fields",
	voting.KindRateLimited:  "Too many votes. Please try again later.",
	voting.KindAlreadyVoted: "You've already voted for this match",
	voting.KindVotingClosed: "Voting for this match has ended",
	voting.KindNotFound:     "No voting data found for this match",
	voting.KindInternal:     "Internal server error",
}

func statusFor(kind voting.Kind) int {
	switch kind {
	case voting.KindValidation:
		return http.StatusBadRequest
	case voting.KindRateLimited:
		return http.StatusTooManyRequests
	case voting.KindAlreadyVoted, voting.KindVotingClosed:
		return http.StatusConflict
	case voting.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a voting error to its status code and kind. Internal
// errors are logged and never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := voting.KindOf(err)
	if kind == voting.KindInternal {
		slog.Error("request failed", "path", r.URL.Path, "error", err)
	}
	middleware.KindErrorResponse(w, statusFor(kind), string(kind), kindMessages[kind])
}
