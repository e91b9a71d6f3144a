// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campusarena/potm-voting/metrics"
	"github.com/campusarena/potm-voting/models"
	"github.com/campusarena/potm-voting/store"
)

// Notifier receives voting events after the state change is committed.
// Notify runs while the match is still locked, so the events of one match
// arrive in commit order and implementations should return promptly.
// Errors are logged and never fail the originating operation.
type Notifier interface {
	Notify(ctx context.Context, ev models.VotingEvent) error
}

// Ballot is one vote submission. VoterID must already be resolved and
// rate limited by the caller.
type Ballot struct {
	MatchID    string
	MatchName  string
	PlayerID   string
	PlayerName string
	Team       string
	Role       string
	VoterID    string
}

func (b Ballot) validate() error {
	var missing []string
	if strings.TrimSpace(b.MatchID) == "" {
		missing = append(missing, "match_id")
	}
	if strings.TrimSpace(b.PlayerID) == "" {
		missing = append(missing, "player_id")
	}
	if strings.TrimSpace(b.PlayerName) == "" {
		missing = append(missing, "player_name")
	}
	if b.VoterID == "" {
		missing = append(missing, "voter_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// Service is the per-match voting state machine. All mutations of a match
// run under that match's lock; different matches never contend.
type Service struct {
	store     store.Store
	metrics   *metrics.Metrics
	notifiers []notifierEntry
	locks     *matchLocks
	now       func() time.Time

	// awardMu serializes badge awards across matches so the stats
	// ledger's first-award order stays consistent
	awardMu sync.Mutex
}

type notifierEntry struct {
	name string
	n    Notifier
}

type Option func(*Service)

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithNotifier adds n to the fan-out list. name labels its metrics and logs.
func WithNotifier(name string, n Notifier) Option {
	return func(s *Service) {
		s.notifiers = append(s.notifiers, notifierEntry{name: name, n: n})
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		locks: newMatchLocks(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultMatchName is used when the first submission carries no match name
func DefaultMatchName(matchID string) string {
	return "Match " + matchID
}

// SubmitVote records b and returns the match's updated tally.
//
// A session is created in the active state when the match has none.
// Submissions to a non-active session fail with ErrVotingClosed; a voter
// already in the match's ledger fails with ErrAlreadyVoted. On any error
// the ledger is unchanged.
func (s *Service) SubmitVote(ctx context.Context, b Ballot) ([]models.PlayerVoteCount, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}

	unlock := s.locks.lock(b.MatchID)
	defer unlock()

	start := time.Now()
	counts, err := s.submit(ctx, b)
	s.metrics.ObserveVote(resultLabel(err), time.Since(start))
	if err != nil {
		return nil, err
	}

	total := totalOf(counts)
	slog.Info("vote accepted",
		"match_id", b.MatchID,
		"player_id", b.PlayerID,
		"total_votes", total)

	s.notify(ctx, models.VotingEvent{
		Type:       models.EventVoteAccepted,
		MatchID:    b.MatchID,
		Seq:        EventSeq(models.StatusActive, total),
		Status:     models.StatusActive,
		TotalVotes: total,
		VoteCounts: counts,
		At:         s.now(),
	})

	return counts, nil
}

// submit must be called with the match locked
func (s *Service) submit(ctx context.Context, b Ballot) ([]models.PlayerVoteCount, error) {
	sess, err := s.store.Session(ctx, b.MatchID)
	if errors.Is(err, store.ErrNotFound) {
		name := strings.TrimSpace(b.MatchName)
		if name == "" {
			name = DefaultMatchName(b.MatchID)
		}
		sess = models.Session{
			MatchID:   b.MatchID,
			MatchName: name,
			Status:    models.StatusActive,
			CreatedAt: s.now(),
		}
		if err := s.store.CreateSession(ctx, sess); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		slog.Info("voting session opened", "match_id", b.MatchID, "match_name", name)
	} else if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if sess.Status != models.StatusActive {
		return nil, ErrVotingClosed
	}

	voted, err := s.store.HasVoted(ctx, b.MatchID, b.VoterID)
	if err != nil {
		return nil, fmt.Errorf("failed to check voter: %w", err)
	}
	if voted {
		return nil, ErrAlreadyVoted
	}

	vote := models.Vote{
		ID:         uuid.NewString(),
		MatchID:    b.MatchID,
		PlayerID:   b.PlayerID,
		PlayerName: b.PlayerName,
		Team:       b.Team,
		Role:       b.Role,
		VoterID:    b.VoterID,
		Timestamp:  s.now(),
	}
	if err := s.store.AppendVote(ctx, vote); err != nil {
		if errors.Is(err, store.ErrDuplicateVote) {
			return nil, ErrAlreadyVoted
		}
		return nil, fmt.Errorf("failed to append vote: %w", err)
	}

	votes, err := s.store.Votes(ctx, b.MatchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	return Tally(votes), nil
}

// VotingData returns the full voting state of a match, or ErrNotFound.
func (s *Service) VotingData(ctx context.Context, matchID string) (*models.MatchVotingData, error) {
	sess, err := s.store.Session(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	votes, err := s.store.Votes(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load votes: %w", err)
	}
	return buildVotingData(sess, votes), nil
}

func buildVotingData(sess models.Session, votes []models.Vote) *models.MatchVotingData {
	counts := Tally(votes)

	data := &models.MatchVotingData{
		MatchID:    sess.MatchID,
		MatchName:  sess.MatchName,
		Status:     sess.Status,
		Votes:      votes,
		VoteCounts: counts,
		TotalVotes: len(votes),
		ClosedAt:   sess.ClosedAt,
	}
	if sess.WinnerID != "" {
		data.Winner = find(counts, sess.WinnerID)
	}
	return data
}

// HasVoted reports whether voterID already has a vote in the match
func (s *Service) HasVoted(ctx context.Context, matchID, voterID string) (bool, error) {
	if voterID == "" {
		return false, nil
	}
	voted, err := s.store.HasVoted(ctx, matchID, voterID)
	if err != nil {
		return false, fmt.Errorf("failed to check voter: %w", err)
	}
	return voted, nil
}

// CloseVoting ends voting for a match and returns the winner.
//
// An absent match yields (nil, ErrNotFound) and no session is created. An
// active session moves to completed with the tally leader as winner and a
// badge awarded, or to closed with no winner when nobody voted. Closing a
// session that is already closed or completed changes nothing and returns
// its recorded winner.
func (s *Service) CloseVoting(ctx context.Context, matchID string) (*models.PlayerVoteCount, error) {
	unlock := s.locks.lock(matchID)
	defer unlock()

	data, changed, err := s.close(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !changed {
		return data.Winner, nil
	}

	if data.Winner != nil {
		s.metrics.ObserveClose(string(models.StatusCompleted))
		slog.Info("voting closed",
			"match_id", matchID,
			"winner", data.Winner.PlayerID,
			"votes", data.Winner.VoteCount,
			"total_votes", data.TotalVotes)
	} else {
		s.metrics.ObserveClose("no_votes")
		slog.Info("voting closed", "match_id", matchID, "winner", nil)
	}

	s.notify(ctx, models.VotingEvent{
		Type:       models.EventVotingClosed,
		MatchID:    matchID,
		Seq:        EventSeq(data.Status, data.TotalVotes),
		Status:     data.Status,
		TotalVotes: data.TotalVotes,
		VoteCounts: data.VoteCounts,
		Winner:     data.Winner,
		At:         s.now(),
	})

	return data.Winner, nil
}

// close must be called with the match locked
func (s *Service) close(ctx context.Context, matchID string) (*models.MatchVotingData, bool, error) {
	sess, err := s.store.Session(ctx, matchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false, ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load session: %w", err)
	}

	votes, err := s.store.Votes(ctx, matchID)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load votes: %w", err)
	}

	if sess.Status != models.StatusActive {
		return buildVotingData(sess, votes), false, nil
	}

	closedAt := s.now()
	sess.Status = models.StatusClosed
	sess.ClosedAt = &closedAt

	var award *models.Award
	if winner := leader(Tally(votes)); winner != nil {
		sess.Status = models.StatusCompleted
		sess.WinnerID = winner.PlayerID
		award = &models.Award{
			PlayerID:   winner.PlayerID,
			PlayerName: winner.PlayerName,
			MatchID:    sess.MatchID,
			MatchName:  sess.MatchName,
			VoteCount:  winner.VoteCount,
			Percentage: winner.Percentage,
			AwardedAt:  closedAt,
		}
	}

	if award != nil {
		s.awardMu.Lock()
		defer s.awardMu.Unlock()
	}
	err = s.store.CloseSession(ctx, sess, award)
	if errors.Is(err, store.ErrNotActive) {
		// Closed by another server sharing the store
		data, err := s.VotingData(ctx, matchID)
		if err != nil {
			return nil, false, err
		}
		return data, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to close session: %w", err)
	}

	return buildVotingData(sess, votes), true, nil
}

// PlayerStats returns nil, nil for a player who has never been awarded.
func (s *Service) PlayerStats(ctx context.Context, playerID string) (*models.PlayerStats, error) {
	st, err := s.store.PlayerStats(ctx, playerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load player stats: %w", err)
	}
	return &st, nil
}

// Leaderboard returns every player's stats by award count descending
func (s *Service) Leaderboard(ctx context.Context) ([]models.PlayerStats, error) {
	all, err := s.store.AllPlayerStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	return all, nil
}

// EventSeq orders the events of one match. Every accepted vote and the
// close each add one, so a subscriber can drop any event whose Seq is not
// above the last one it applied.
func EventSeq(status models.VoteStatus, totalVotes int) int64 {
	seq := int64(totalVotes)
	if status != models.StatusActive {
		seq++
	}
	return seq
}

// SnapshotEvent describes the current state of a match as an event, with
// the same Seq as the last committed change it reflects.
func SnapshotEvent(data *models.MatchVotingData, at time.Time) models.VotingEvent {
	return models.VotingEvent{
		Type:       models.EventSnapshot,
		MatchID:    data.MatchID,
		Seq:        EventSeq(data.Status, data.TotalVotes),
		Status:     data.Status,
		TotalVotes: data.TotalVotes,
		VoteCounts: data.VoteCounts,
		Winner:     data.Winner,
		At:         at,
	}
}

func (s *Service) notify(ctx context.Context, ev models.VotingEvent) {
	for _, e := range s.notifiers {
		err := e.n.Notify(ctx, ev)
		s.metrics.ObserveEvent(e.name, err)
		if err != nil {
			slog.Warn("failed to deliver voting event",
				"notifier", e.name,
				"type", ev.Type,
				"match_id", ev.MatchID,
				"error", err)
		}
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "accepted"
	}
	return string(KindOf(err))
}

func totalOf(counts []models.PlayerVoteCount) int {
	total := 0
	for _, c := range counts {
		total += c.VoteCount
	}
	return total
}
