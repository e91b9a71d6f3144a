// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Player of the Match
voting API.

# Handler Types

Each handler is a struct built from the voting service and whatever else the
route needs:

  - VotingHandler: vote submission, voting data and closing a match
  - StatsHandler: player stats and the leaderboard
  - LiveHandler: websocket stream of live tally events

	votingHandler := handlers.NewVotingHandler(svc, resolver, limiter, m, cfg)

# Voting Flow

	POST /voting/vote            → SubmitVote
	GET  /voting/matches/{id}    → GetVotingData (?voter_check=true)
	POST /voting/close           → CloseVoting
	GET  /voting/matches/{id}/live → Stream

A submission is checked in this order: JSON and required fields, voter
identity, rate limit, then the session state machine. Rate limiting counts
every attempt that passes validation, including ones later rejected as
already voted.

# Errors

Failures carry a kind next to the message so clients can react without
parsing text:

	400 validation      429 rate_limited     409 already_voted
	409 voting_closed   404 not_found        500 internal

An already-voted submission is not treated as an error by clients; its 409
body is a SubmitVoteResponse with already_voted set and the current
vote_counts.

# Admin Keys

When an admin salt is configured, POST /voting/close requires the
X-Admin-Key header:

	key := auth.GenerateAdminKey(matchID, cfg.AdminKeySalt)
*/
package handlers
