// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import "errors"

var (
	ErrMissingFields = errors.New("missing required fields")
	ErrRateLimited   = errors.New("too many votes, please try again later")
	ErrAlreadyVoted  = errors.New("you've already voted for this match")
	ErrVotingClosed  = errors.New("voting for this match has ended")
	ErrNotFound      = errors.New("no voting data found for this match")
)

// Kind is the stable, client-facing classification of a voting error
type Kind string

const (
	KindValidation   Kind = "validation"
	KindRateLimited  Kind = "rate_limited"
	KindAlreadyVoted Kind = "already_voted"
	KindVotingClosed Kind = "voting_closed"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

// KindOf classifies err. Anything not wrapping one of the sentinels above
// is internal.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrMissingFields):
		return KindValidation
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrAlreadyVoted):
		return KindAlreadyVoted
	case errors.Is(err, ErrVotingClosed):
		return KindVotingClosed
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInternal
	}
}
