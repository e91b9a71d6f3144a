// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - SubmitVoteRequest: match_id, player_id, player_name, team, role
  - CloseVotingRequest: match_id

# Response Types

  - SubmitVoteResponse: success, message, already_voted, vote_counts
  - VotingDataResponse: voting data plus has_user_voted
  - CloseVotingResponse: winner and final voting data
  - PlayerStatsResponse, LeaderboardResponse
  - ErrorResponse: error, message, kind

# Domain Types

  - Vote: one accepted vote (voter identifier never serialized)
  - PlayerVoteCount: derived tally row
  - Session: stored status header of a match
  - MatchVotingData: session plus votes and derived tally
  - PlayerStats / PlayerBadge: cross-match awards

# Constants

Status values:

	StatusActive    = "active"
	StatusClosed    = "closed"
	StatusCompleted = "completed"
*/
package models
