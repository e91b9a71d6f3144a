package models

import "time"

// VoteStatus is the lifecycle state of a match voting session.
// Transitions only move forward: active → closed → completed.
type VoteStatus string

const (
	StatusActive    VoteStatus = "active"
	StatusClosed    VoteStatus = "closed"
	StatusCompleted VoteStatus = "completed"
)

// BadgeTypePOTM is the only badge type awarded today
const BadgeTypePOTM = "player-of-the-match"

// Request types

type SubmitVoteRequest struct {
	MatchID    string `json:"match_id"`
	MatchName  string `json:"match_name,omitempty"`
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name"`
	Team       string `json:"team"`
	Role       string `json:"role"`
}

type CloseVotingRequest struct {
	MatchID string `json:"match_id"`
}

// Response types

type SubmitVoteResponse struct {
	Success      bool              `json:"success"`
	Message      string            `json:"message"`
	AlreadyVoted bool              `json:"already_voted,omitempty"`
	VoteCounts   []PlayerVoteCount `json:"vote_counts"`
}

type VotingDataResponse struct {
	MatchVotingData
	HasUserVoted bool `json:"has_user_voted"`
}

type CloseVotingResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Summary    string           `json:"summary,omitempty"`
	Winner     *PlayerVoteCount `json:"winner"`
	VotingData MatchVotingData  `json:"voting_data"`
}

type PlayerStatsResponse struct {
	Stats *PlayerStats `json:"stats"`
}

type LeaderboardResponse struct {
	Players []LeaderboardEntry `json:"players"`
}

// LeaderboardEntry ranks players by award count. Tied players share a rank.
type LeaderboardEntry struct {
	Rank  int    `json:"rank"`
	Place string `json:"place"`
	PlayerStats
}

// Domain types

// Vote is immutable once appended to a match ledger.
type Vote struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	PlayerID   string    `json:"player_id"`
	PlayerName string    `json:"player_name"`
	Team       string    `json:"team"`
	Role       string    `json:"role"`
	VoterID    string    `json:"-"` // Never expose in JSON
	Timestamp  time.Time `json:"timestamp"`
}

type PlayerVoteCount struct {
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Team       string  `json:"team"`
	Role       string  `json:"role"`
	VoteCount  int     `json:"vote_count"`
	Percentage float64 `json:"percentage"`
}

// Session is the stored header of a match voting session. Votes and
// tallies live next to it in the ledger and are derived on read.
type Session struct {
	MatchID   string     `json:"match_id"`
	MatchName string     `json:"match_name"`
	Status    VoteStatus `json:"status"`
	WinnerID  string     `json:"winner_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

type MatchVotingData struct {
	MatchID    string            `json:"match_id"`
	MatchName  string            `json:"match_name"`
	Status     VoteStatus        `json:"status"`
	Votes      []Vote            `json:"votes"`
	VoteCounts []PlayerVoteCount `json:"vote_counts"`
	TotalVotes int               `json:"total_votes"`
	Winner     *PlayerVoteCount  `json:"winner"`
	ClosedAt   *time.Time        `json:"closed_at,omitempty"`
}

type PlayerBadge struct {
	Type           string    `json:"type"`
	MatchID        string    `json:"match_id"`
	MatchName      string    `json:"match_name"`
	AwardedAt      time.Time `json:"awarded_at"`
	VoteCount      int       `json:"vote_count"`
	VotePercentage float64   `json:"vote_percentage"`
}

type PlayerStats struct {
	PlayerID           string        `json:"player_id"`
	PlayerName         string        `json:"player_name"`
	PotmCount          int           `json:"potm_count"`
	TotalVotesReceived int           `json:"total_votes_received"`
	Badges             []PlayerBadge `json:"badges"`
}

// Award is the input to a stats ledger badge award.
type Award struct {
	PlayerID   string
	PlayerName string
	MatchID    string
	MatchName  string
	VoteCount  int
	Percentage float64
	AwardedAt  time.Time
}

// Event types

const (
	EventSnapshot     = "snapshot"
	EventVoteAccepted = "vote_accepted"
	EventVotingClosed = "voting_closed"
)

// VotingEvent is pushed to live subscribers and the event stream after a
// state change has been committed.
type VotingEvent struct {
	Type       string            `json:"type"`
	MatchID    string            `json:"match_id"`
	Seq        int64             `json:"seq"` // increases with every committed change to the match
	Status     VoteStatus        `json:"status"`
	TotalVotes int               `json:"total_votes"`
	VoteCounts []PlayerVoteCount `json:"vote_counts"`
	Winner     *PlayerVoteCount  `json:"winner,omitempty"`
	At         time.Time         `json:"at"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Kind    string `json:"kind,omitempty"`
}
