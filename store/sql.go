// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/campusarena/potm-voting/models"
)

// SQLStore persists the ledgers in PostgreSQL or SQLite (see package db).
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) Session(ctx context.Context, matchID string) (models.Session, error) {
	var sess models.Session
	var status string
	var winner sql.NullString
	var closedAt sql.NullTime

	err := s.db.QueryRowContext(ctx, `
		SELECT match_id, match_name, status, winner_player_id, created_at, closed_at
		FROM match_session
		WHERE match_id = $1
	`, matchID).Scan(&sess.MatchID, &sess.MatchName, &status, &winner, &sess.CreatedAt, &closedAt)

	if err == sql.ErrNoRows {
		return models.Session{}, ErrNotFound
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to query session: %w", err)
	}

	sess.Status = models.VoteStatus(status)
	sess.WinnerID = winner.String
	if closedAt.Valid {
		t := closedAt.Time
		sess.ClosedAt = &t
	}
	return sess, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, sess models.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO match_session (match_id, match_name, status, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id) DO NOTHING
	`, sess.MatchID, sess.MatchName, string(sess.Status), sess.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *SQLStore) AppendVote(ctx context.Context, v models.Vote) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx, `
			SELECT EXISTS(
				SELECT 1 FROM vote WHERE match_id = $1 AND voter_id = $2
			)
		`, v.MatchID, v.VoterID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check existing vote: %w", err)
		}
		if exists {
			return ErrDuplicateVote
		}

		var seq int64
		err = tx.QueryRowContext(ctx, `
			SELECT COALESCE(MAX(seq), 0) + 1 FROM vote WHERE match_id = $1
		`, v.MatchID).Scan(&seq)
		if err != nil {
			return fmt.Errorf("failed to allocate vote sequence: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO vote (id, match_id, seq, player_id, player_name, team, role, voter_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, v.ID, v.MatchID, seq, v.PlayerID, v.PlayerName, v.Team, v.Role, v.VoterID, v.Timestamp.UTC())
		if isDuplicateVoter(err) {
			return ErrDuplicateVote
		}
		if err != nil {
			return fmt.Errorf("failed to insert vote: %w", err)
		}
		return nil
	})
}

func (s *SQLStore) HasVoted(ctx context.Context, matchID, voterID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM vote WHERE match_id = $1 AND voter_id = $2
		)
	`, matchID, voterID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return exists, nil
}

func (s *SQLStore) Votes(ctx context.Context, matchID string) ([]models.Vote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, player_id, player_name, team, role, voter_id, created_at
		FROM vote
		WHERE match_id = $1
		ORDER BY seq
	`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.MatchID, &v.PlayerID, &v.PlayerName, &v.Team, &v.Role, &v.VoterID, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate votes: %w", err)
	}
	return votes, nil
}

func (s *SQLStore) CloseSession(ctx context.Context, sess models.Session, award *models.Award) error {
	var winner sql.NullString
	if sess.WinnerID != "" {
		winner = sql.NullString{String: sess.WinnerID, Valid: true}
	}
	var closedAt sql.NullTime
	if sess.ClosedAt != nil {
		closedAt = sql.NullTime{Time: sess.ClosedAt.UTC(), Valid: true}
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		// Another server may have closed the match since it was read
		res, err := tx.ExecContext(ctx, `
			UPDATE match_session
			SET status = $1, winner_player_id = $2, closed_at = $3
			WHERE match_id = $4 AND status = $5
		`, string(sess.Status), winner, closedAt, sess.MatchID, string(models.StatusActive))
		if err != nil {
			return fmt.Errorf("failed to update session: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read update result: %w", err)
		}
		if n == 0 {
			var exists bool
			err := tx.QueryRowContext(ctx, `
				SELECT EXISTS(SELECT 1 FROM match_session WHERE match_id = $1)
			`, sess.MatchID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to query session: %w", err)
			}
			if !exists {
				return ErrNotFound
			}
			return ErrNotActive
		}

		if award != nil {
			return awardTx(ctx, tx, *award)
		}
		return nil
	})
}

func (s *SQLStore) AwardBadge(ctx context.Context, a models.Award) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return awardTx(ctx, tx, a)
	})
}

// inTx runs fn in a transaction and commits when it returns nil. seq values
// are allocated as MAX(seq)+1, so two servers sharing a database can race
// for the same one; the loser is rerun in a fresh transaction.
func (s *SQLStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	for attempt := 1; ; attempt++ {
		err := s.runTx(ctx, fn)
		if err == nil || !isSeqConflict(err) || attempt == maxSeqAttempts {
			return err
		}
		slog.Debug("retrying after sequence conflict", "attempt", attempt, "error", err)
	}
}

func (s *SQLStore) runTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func awardTx(ctx context.Context, tx *sql.Tx, a models.Award) error {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM player_stats WHERE player_id = $1)
	`, a.PlayerID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to query player stats: %w", err)
	}

	if !exists {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO player_stats (player_id, player_name, potm_count, total_votes_received, seq, created_at)
			VALUES ($1, $2, 0, 0, (SELECT COALESCE(MAX(seq), 0) + 1 FROM player_stats), $3)
		`, a.PlayerID, a.PlayerName, a.AwardedAt.UTC())
		if err != nil {
			return fmt.Errorf("failed to insert player stats: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE player_stats
		SET potm_count = potm_count + 1, total_votes_received = total_votes_received + $1
		WHERE player_id = $2
	`, a.VoteCount, a.PlayerID)
	if err != nil {
		return fmt.Errorf("failed to update player stats: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO player_badge (player_id, match_id, seq, badge_type, match_name, awarded_at, vote_count, vote_percentage)
		VALUES ($1, $2, (SELECT COALESCE(MAX(seq), 0) + 1 FROM player_badge WHERE player_id = $1), $3, $4, $5, $6, $7)
	`, a.PlayerID, a.MatchID, models.BadgeTypePOTM, a.MatchName, a.AwardedAt.UTC(), a.VoteCount, a.Percentage)
	if err != nil {
		return fmt.Errorf("failed to insert badge: %w", err)
	}
	return nil
}

func (s *SQLStore) PlayerStats(ctx context.Context, playerID string) (models.PlayerStats, error) {
	var st models.PlayerStats
	err := s.db.QueryRowContext(ctx, `
		SELECT player_id, player_name, potm_count, total_votes_received
		FROM player_stats
		WHERE player_id = $1
	`, playerID).Scan(&st.PlayerID, &st.PlayerName, &st.PotmCount, &st.TotalVotesReceived)

	if err == sql.ErrNoRows {
		return models.PlayerStats{}, ErrNotFound
	}
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("failed to query player stats: %w", err)
	}

	badges, err := s.badges(ctx, `WHERE player_id = $1`, playerID)
	if err != nil {
		return models.PlayerStats{}, err
	}
	st.Badges = badges[playerID]
	if st.Badges == nil {
		st.Badges = []models.PlayerBadge{}
	}
	return st, nil
}

func (s *SQLStore) AllPlayerStats(ctx context.Context) ([]models.PlayerStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, player_name, potm_count, total_votes_received
		FROM player_stats
		ORDER BY potm_count DESC, seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query player stats: %w", err)
	}

	all := []models.PlayerStats{}
	for rows.Next() {
		var st models.PlayerStats
		if err := rows.Scan(&st.PlayerID, &st.PlayerName, &st.PotmCount, &st.TotalVotesReceived); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan player stats: %w", err)
		}
		all = append(all, st)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate player stats: %w", err)
	}
	// Release the connection before the badge query (SQLite runs on one)
	rows.Close()

	badges, err := s.badges(ctx, "")
	if err != nil {
		return nil, err
	}
	for i := range all {
		all[i].Badges = badges[all[i].PlayerID]
		if all[i].Badges == nil {
			all[i].Badges = []models.PlayerBadge{}
		}
	}
	return all, nil
}

// badges loads badges grouped by player, each group in award order
func (s *SQLStore) badges(ctx context.Context, where string, args ...any) (map[string][]models.PlayerBadge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT player_id, badge_type, match_id, match_name, awarded_at, vote_count, vote_percentage
		FROM player_badge `+where+`
		ORDER BY player_id, seq
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query badges: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]models.PlayerBadge)
	for rows.Next() {
		var playerID string
		var b models.PlayerBadge
		var awardedAt time.Time
		if err := rows.Scan(&playerID, &b.Type, &b.MatchID, &b.MatchName, &awardedAt, &b.VoteCount, &b.VotePercentage); err != nil {
			return nil, fmt.Errorf("failed to scan badge: %w", err)
		}
		b.AwardedAt = awardedAt
		out[playerID] = append(out[playerID], b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate badges: %w", err)
	}
	return out, nil
}

const maxSeqAttempts = 5

// Constraint names from db.CreateSchema
const voterConstraint = "vote_match_id_voter_id_key"

// retryConstraints are lost races between servers; a rerun reads the
// winner's row. player_stats_pkey covers two first awards of one player.
var retryConstraints = map[string]bool{
	"vote_match_id_seq_key":          true,
	"player_stats_seq_key":           true,
	"player_stats_pkey":              true,
	"player_badge_player_id_seq_key": true,
}

// uniqueViolation returns the constraint name (Postgres) or the failing
// column list (SQLite) of a unique constraint failure.
func uniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint, pqErr.Code == "23505"
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return liteErr.Error(), true
		}
	}
	return "", false
}

// isDuplicateVoter matches only the one-vote-per-voter constraint
func isDuplicateVoter(err error) bool {
	detail, ok := uniqueViolation(err)
	if !ok {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return detail == voterConstraint
	}
	return strings.Contains(detail, "vote.voter_id")
}

// isSeqConflict matches a lost race for a MAX(seq)+1 value
func isSeqConflict(err error) bool {
	detail, ok := uniqueViolation(err)
	if !ok {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return retryConstraints[detail]
	}
	return strings.Contains(detail, ".seq")
}
