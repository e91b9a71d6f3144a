// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"

	"github.com/campusarena/potm-voting/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateVote = errors.New("voter already has a vote for this match")
	ErrNotActive     = errors.New("session is no longer active")
)

// VoteLedger is the append-only record of accepted votes per match, plus
// the session header that owns them. It does not enforce session status.
type VoteLedger interface {
	// Session returns ErrNotFound when the match has no session yet
	Session(ctx context.Context, matchID string) (models.Session, error)
	// CreateSession is a no-op if a session for the match already exists
	CreateSession(ctx context.Context, s models.Session) error
	// AppendVote returns ErrDuplicateVote for a repeated (match, voter) pair
	// and leaves the ledger unchanged on any error.
	AppendVote(ctx context.Context, v models.Vote) error
	HasVoted(ctx context.Context, matchID, voterID string) (bool, error)
	// Votes are returned in append order
	Votes(ctx context.Context, matchID string) ([]models.Vote, error)
}

// StatsLedger holds cross-match player statistics and awarded badges
type StatsLedger interface {
	AwardBadge(ctx context.Context, a models.Award) error
	// PlayerStats returns ErrNotFound for players never awarded
	PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error)
	// AllPlayerStats orders by potm count descending, ties by first award
	AllPlayerStats(ctx context.Context) ([]models.PlayerStats, error)
}

// Store backs the voting service.
type Store interface {
	VoteLedger
	StatsLedger
	// CloseSession persists the session transition and, when award is
	// non-nil, the badge award as one atomic unit. It only applies to an
	// active session and returns ErrNotActive otherwise.
	CloseSession(ctx context.Context, s models.Session, award *models.Award) error
}

func newStats(a models.Award) *models.PlayerStats {
	return &models.PlayerStats{
		PlayerID:   a.PlayerID,
		PlayerName: a.PlayerName,
		Badges:     []models.PlayerBadge{},
	}
}

func badgeFor(a models.Award) models.PlayerBadge {
	return models.PlayerBadge{
		Type:           models.BadgeTypePOTM,
		MatchID:        a.MatchID,
		MatchName:      a.MatchName,
		AwardedAt:      a.AwardedAt,
		VoteCount:      a.VoteCount,
		VotePercentage: a.Percentage,
	}
}
