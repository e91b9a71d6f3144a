// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/campusarena/potm-voting/db"
	"github.com/campusarena/potm-voting/metrics"
	"github.com/campusarena/potm-voting/models"
	"github.com/campusarena/potm-voting/store"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.VotingEvent
	err    error
}

func (r *recordingNotifier) Notify(_ context.Context, ev models.VotingEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingNotifier) snapshot() []models.VotingEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.VotingEvent(nil), r.events...)
}

// eachService runs fn against a service backed by each store implementation
func eachService(t *testing.T, fn func(t *testing.T, svc *Service)) {
	t.Run("memory", func(t *testing.T) {
		fn(t, NewService(store.NewMemoryStore()))
	})
	t.Run("sqlite", func(t *testing.T) {
		conn, err := db.Open(db.TypeSQLite, "file:"+filepath.Join(t.TempDir(), "voting.db"))
		if err != nil {
			t.Fatalf("Failed to open sqlite: %v", err)
		}
		t.Cleanup(func() { conn.Close() })
		if err := db.CreateSchema(conn); err != nil {
			t.Fatalf("Failed to create schema: %v", err)
		}
		fn(t, NewService(store.NewSQLStore(conn)))
	})
}

func ballot(matchID, playerID, voterID string) Ballot {
	return Ballot{
		MatchID:    matchID,
		PlayerID:   playerID,
		PlayerName: "Player " + playerID,
		Team:       "Blue",
		Role:       "Player",
		VoterID:    voterID,
	}
}

func mustVote(t *testing.T, svc *Service, b Ballot) []models.PlayerVoteCount {
	t.Helper()
	counts, err := svc.SubmitVote(context.Background(), b)
	if err != nil {
		t.Fatalf("SubmitVote(%+v) error = %v", b, err)
	}
	return counts
}

func checkConsistent(t *testing.T, data *models.MatchVotingData) {
	t.Helper()
	sum := 0
	pct := 0.0
	for _, c := range data.VoteCounts {
		sum += c.VoteCount
		pct += c.Percentage
	}
	if data.TotalVotes != len(data.Votes) || data.TotalVotes != sum {
		t.Errorf("inconsistent totals: total=%d votes=%d sum=%d", data.TotalVotes, len(data.Votes), sum)
	}
	if data.TotalVotes > 0 && math.Abs(pct-100) > 1e-6 {
		t.Errorf("percentages sum to %v", pct)
	}
}

func TestSubmitVote_Scenario(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		for i, p := range []string{"P1", "P2", "P1", "P2", "P1"} {
			mustVote(t, svc, ballot("M1", p, fmt.Sprintf("V%d", i)))
		}

		data, err := svc.VotingData(ctx, "M1")
		if err != nil {
			t.Fatalf("VotingData() error = %v", err)
		}
		checkConsistent(t, data)

		if data.TotalVotes != 5 || data.Status != models.StatusActive {
			t.Fatalf("Unexpected voting data: total=%d status=%s", data.TotalVotes, data.Status)
		}
		if data.MatchName != "Match M1" {
			t.Errorf("MatchName = %q, want default name", data.MatchName)
		}
		want := []struct {
			id    string
			count int
			pct   float64
		}{{"P1", 3, 60}, {"P2", 2, 40}}
		for i, w := range want {
			c := data.VoteCounts[i]
			if c.PlayerID != w.id || c.VoteCount != w.count || math.Abs(c.Percentage-w.pct) > 1e-9 {
				t.Errorf("count %d = %+v, want %v", i, c, w)
			}
		}

		winner, err := svc.CloseVoting(ctx, "M1")
		if err != nil {
			t.Fatalf("CloseVoting() error = %v", err)
		}
		if winner == nil || winner.PlayerID != "P1" || winner.VoteCount != 3 || winner.Percentage != 60 {
			t.Fatalf("Unexpected winner: %+v", winner)
		}

		st, err := svc.PlayerStats(ctx, "P1")
		if err != nil || st == nil {
			t.Fatalf("PlayerStats() = %v, %v", st, err)
		}
		if st.PotmCount != 1 || st.TotalVotesReceived != 3 {
			t.Errorf("Unexpected stats: %+v", st)
		}
		if len(st.Badges) != 1 || st.Badges[0].Type != models.BadgeTypePOTM || st.Badges[0].MatchName != "Match M1" {
			t.Errorf("Unexpected badges: %+v", st.Badges)
		}
	})
}

func TestSubmitVote_MatchName(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		b := ballot("M1", "P1", "V1")
		b.MatchName = "Blue vs Red"
		mustVote(t, svc, b)

		// Later names are ignored
		b2 := ballot("M1", "P1", "V2")
		b2.MatchName = "Other"
		mustVote(t, svc, b2)

		data, _ := svc.VotingData(context.Background(), "M1")
		if data.MatchName != "Blue vs Red" {
			t.Errorf("MatchName = %q, want first submitted name", data.MatchName)
		}
	})
}

func TestSubmitVote_Validation(t *testing.T) {
	svc := NewService(store.NewMemoryStore())

	tests := []struct {
		name   string
		mutate func(*Ballot)
	}{
		{"missing match", func(b *Ballot) { b.MatchID = "" }},
		{"missing player", func(b *Ballot) { b.PlayerID = "" }},
		{"blank player name", func(b *Ballot) { b.PlayerName = "   " }},
		{"missing voter", func(b *Ballot) { b.VoterID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ballot("M1", "P1", "V1")
			tt.mutate(&b)
			_, err := svc.SubmitVote(context.Background(), b)
			if !errors.Is(err, ErrMissingFields) {
				t.Errorf("SubmitVote() error = %v, want ErrMissingFields", err)
			}
			if KindOf(err) != KindValidation {
				t.Errorf("KindOf() = %s", KindOf(err))
			}
		})
	}

	if _, err := svc.VotingData(context.Background(), "M1"); !errors.Is(err, ErrNotFound) {
		t.Error("Invalid ballots must not create a session")
	}
}

func TestSubmitVote_AlreadyVoted(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		mustVote(t, svc, ballot("M1", "P1", "V1"))

		_, err := svc.SubmitVote(ctx, ballot("M1", "P2", "V1"))
		if !errors.Is(err, ErrAlreadyVoted) {
			t.Fatalf("second vote error = %v, want ErrAlreadyVoted", err)
		}

		data, _ := svc.VotingData(ctx, "M1")
		if data.TotalVotes != 1 || data.VoteCounts[0].PlayerID != "P1" {
			t.Errorf("tally changed after rejected vote: %+v", data.VoteCounts)
		}

		// Same voter in a different match is fine
		mustVote(t, svc, ballot("M2", "P1", "V1"))

		voted, _ := svc.HasVoted(ctx, "M1", "V1")
		if !voted {
			t.Error("HasVoted() = false for a recorded voter")
		}
		voted, _ = svc.HasVoted(ctx, "M1", "")
		if voted {
			t.Error("HasVoted() with an empty voter should be false")
		}
	})
}

func TestSubmitVote_ClosedSession(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()

		// completed
		mustVote(t, svc, ballot("M1", "P1", "V1"))
		svc.CloseVoting(ctx, "M1")
		_, err := svc.SubmitVote(ctx, ballot("M1", "P1", "V2"))
		if !errors.Is(err, ErrVotingClosed) {
			t.Errorf("vote on completed session error = %v, want ErrVotingClosed", err)
		}

		// closed status check runs before the duplicate-voter check
		_, err = svc.SubmitVote(ctx, ballot("M1", "P1", "V1"))
		if !errors.Is(err, ErrVotingClosed) {
			t.Errorf("repeat voter on completed session error = %v, want ErrVotingClosed", err)
		}

		data, _ := svc.VotingData(ctx, "M1")
		if data.TotalVotes != 1 {
			t.Errorf("ledger changed after closed rejection: total=%d", data.TotalVotes)
		}
	})
}

func TestCloseVoting_NoVotes(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()

		// A session can only exist without votes when created directly on the store
		err := svc.store.CreateSession(ctx, models.Session{
			MatchID: "M1", MatchName: "Empty", Status: models.StatusActive, CreatedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("CreateSession() error = %v", err)
		}

		winner, err := svc.CloseVoting(ctx, "M1")
		if err != nil || winner != nil {
			t.Fatalf("CloseVoting() = %v, %v; want nil winner", winner, err)
		}

		data, _ := svc.VotingData(ctx, "M1")
		if data.Status != models.StatusClosed || data.ClosedAt == nil || data.Winner != nil {
			t.Errorf("Unexpected state after empty close: %+v", data)
		}

		board, _ := svc.Leaderboard(ctx)
		if len(board) != 0 {
			t.Errorf("Empty close must not touch stats, got %+v", board)
		}

		// Parked at closed for good
		if _, err := svc.SubmitVote(ctx, ballot("M1", "P1", "V1")); !errors.Is(err, ErrVotingClosed) {
			t.Errorf("vote after empty close error = %v", err)
		}
	})
}

func TestCloseVoting_Absent(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()

		winner, err := svc.CloseVoting(ctx, "ghost")
		if !errors.Is(err, ErrNotFound) || winner != nil {
			t.Fatalf("CloseVoting() = %v, %v; want nil, ErrNotFound", winner, err)
		}
		if _, err := svc.VotingData(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
			t.Error("Closing an absent match must not create a session")
		}
	})
}

func TestCloseVoting_Idempotent(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		mustVote(t, svc, ballot("M1", "P1", "V1"))
		mustVote(t, svc, ballot("M1", "P2", "V2"))

		first, _ := svc.CloseVoting(ctx, "M1")
		before, _ := svc.VotingData(ctx, "M1")

		for i := 0; i < 3; i++ {
			again, err := svc.CloseVoting(ctx, "M1")
			if err != nil {
				t.Fatalf("repeat CloseVoting() error = %v", err)
			}
			if again == nil || again.PlayerID != first.PlayerID {
				t.Errorf("repeat close winner = %+v, want %+v", again, first)
			}
		}

		after, _ := svc.VotingData(ctx, "M1")
		if !after.ClosedAt.Equal(*before.ClosedAt) {
			t.Error("repeat close restamped closed_at")
		}

		st, _ := svc.PlayerStats(ctx, "P1")
		if st == nil || st.PotmCount != 1 || len(st.Badges) != 1 {
			t.Errorf("repeat close awarded again: %+v", st)
		}
	})
}

// staleSessionStore keeps reporting sessions as active, like a server that
// read the session just before another one closed it
type staleSessionStore struct {
	store.Store
}

func (s staleSessionStore) Session(ctx context.Context, matchID string) (models.Session, error) {
	sess, err := s.Store.Session(ctx, matchID)
	sess.Status = models.StatusActive
	sess.WinnerID = ""
	return sess, err
}

func TestCloseVoting_ClosedElsewhere(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		mustVote(t, svc, ballot("M1", "P1", "V1"))
		mustVote(t, svc, ballot("M1", "P1", "V2"))

		rec := &recordingNotifier{}
		other := NewService(staleSessionStore{svc.store}, WithNotifier("rec", rec))

		if _, err := svc.CloseVoting(ctx, "M1"); err != nil {
			t.Fatalf("CloseVoting() error = %v", err)
		}
		winner, err := other.CloseVoting(ctx, "M1")
		if err != nil {
			t.Fatalf("CloseVoting() on already closed match error = %v", err)
		}
		if winner == nil || winner.PlayerID != "P1" {
			t.Errorf("Expected recorded winner P1, got %+v", winner)
		}
		if len(rec.snapshot()) != 0 {
			t.Error("A close that changed nothing must not emit an event")
		}

		stats, _ := svc.PlayerStats(ctx, "P1")
		if stats == nil || stats.PotmCount != 1 {
			t.Errorf("Expected exactly one award, got %+v", stats)
		}
	})
}

func TestPlayerStats_Unknown(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	st, err := svc.PlayerStats(context.Background(), "nobody")
	if err != nil || st != nil {
		t.Errorf("PlayerStats() = %v, %v; want nil, nil", st, err)
	}
}

func TestLeaderboard(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()

		// P2 wins M1, P1 wins M2 and M3
		mustVote(t, svc, ballot("M1", "P2", "V1"))
		mustVote(t, svc, ballot("M2", "P1", "V1"))
		mustVote(t, svc, ballot("M3", "P1", "V1"))
		mustVote(t, svc, ballot("M3", "P1", "V2"))
		for _, m := range []string{"M1", "M2", "M3"} {
			if _, err := svc.CloseVoting(ctx, m); err != nil {
				t.Fatalf("CloseVoting(%s) error = %v", m, err)
			}
		}

		board, err := svc.Leaderboard(ctx)
		if err != nil {
			t.Fatalf("Leaderboard() error = %v", err)
		}
		if len(board) != 2 || board[0].PlayerID != "P1" || board[1].PlayerID != "P2" {
			t.Fatalf("Unexpected leaderboard: %+v", board)
		}
		if board[0].PotmCount != 2 || board[0].TotalVotesReceived != 3 {
			t.Errorf("Unexpected P1 stats: %+v", board[0])
		}
	})
}

func TestSubmitVote_ConcurrentSameVoter(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()

		var wg sync.WaitGroup
		var accepted, rejected atomic.Int32
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := svc.SubmitVote(ctx, ballot("M1", fmt.Sprintf("P%d", i%3), "same"))
				switch {
				case err == nil:
					accepted.Add(1)
				case errors.Is(err, ErrAlreadyVoted):
					rejected.Add(1)
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}(i)
		}
		wg.Wait()

		if accepted.Load() != 1 || rejected.Load() != 24 {
			t.Errorf("accepted=%d rejected=%d, want 1 and 24", accepted.Load(), rejected.Load())
		}
		data, _ := svc.VotingData(ctx, "M1")
		checkConsistent(t, data)
		if data.TotalVotes != 1 {
			t.Errorf("TotalVotes = %d, want 1", data.TotalVotes)
		}
	})
}

func TestSubmitVote_ConcurrentWithClose(t *testing.T) {
	svc := NewService(store.NewMemoryStore())
	ctx := context.Background()
	mustVote(t, svc, ballot("M1", "P1", "seed"))

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.SubmitVote(ctx, ballot("M1", "P2", fmt.Sprintf("V%d", i)))
			if err == nil {
				accepted.Add(1)
			} else if !errors.Is(err, ErrVotingClosed) {
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.CloseVoting(ctx, "M1")
	}()
	wg.Wait()

	data, _ := svc.VotingData(ctx, "M1")
	checkConsistent(t, data)
	if data.TotalVotes != int(accepted.Load())+1 {
		t.Errorf("TotalVotes = %d, accepted = %d", data.TotalVotes, accepted.Load())
	}
	if data.Status != models.StatusCompleted || data.Winner == nil {
		t.Errorf("Unexpected final state: status=%s winner=%v", data.Status, data.Winner)
	}
}

func TestNotifiers(t *testing.T) {
	rec := &recordingNotifier{}
	failing := &recordingNotifier{err: errors.New("broker unavailable")}
	m := metrics.New(prometheus.NewRegistry())

	svc := NewService(store.NewMemoryStore(),
		WithNotifier("rec", rec),
		WithNotifier("failing", failing),
		WithMetrics(m))
	ctx := context.Background()

	mustVote(t, svc, ballot("M1", "P1", "V1"))
	svc.SubmitVote(ctx, ballot("M1", "P1", "V1")) // rejected, no event
	if _, err := svc.CloseVoting(ctx, "M1"); err != nil {
		t.Fatalf("CloseVoting() error = %v", err)
	}
	svc.CloseVoting(ctx, "M1") // no-op, no event

	events := rec.snapshot()
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d: %+v", len(events), events)
	}
	if events[0].Type != models.EventVoteAccepted || events[0].TotalVotes != 1 {
		t.Errorf("Unexpected vote event: %+v", events[0])
	}
	if events[1].Type != models.EventVotingClosed || events[1].Winner == nil || events[1].Status != models.StatusCompleted {
		t.Errorf("Unexpected close event: %+v", events[1])
	}
	if len(failing.snapshot()) != 2 {
		t.Error("A failing notifier must still receive every event")
	}

	if got := testutil.ToFloat64(m.Votes.WithLabelValues("accepted")); got != 1 {
		t.Errorf("accepted votes metric = %v", got)
	}
	if got := testutil.ToFloat64(m.Votes.WithLabelValues(string(KindAlreadyVoted))); got != 1 {
		t.Errorf("already voted metric = %v", got)
	}
	if got := testutil.ToFloat64(m.EventsEmitted.WithLabelValues("failing", "error")); got != 2 {
		t.Errorf("failing notifier metric = %v", got)
	}
	if got := testutil.ToFloat64(m.Closes.WithLabelValues("completed")); got != 1 {
		t.Errorf("closes metric = %v", got)
	}
}

// holdingNotifier parks the first event until release is closed
type holdingNotifier struct {
	recordingNotifier
	once    sync.Once
	held    chan struct{}
	release chan struct{}
}

func (h *holdingNotifier) Notify(ctx context.Context, ev models.VotingEvent) error {
	first := false
	h.once.Do(func() { first = true })
	if first {
		close(h.held)
		<-h.release
	}
	return h.recordingNotifier.Notify(ctx, ev)
}

func TestNotifiers_CommitOrder(t *testing.T) {
	n := &holdingNotifier{held: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(store.NewMemoryStore(), WithNotifier("held", n))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.SubmitVote(ctx, ballot("M1", "P1", "V1"))
	}()
	<-n.held

	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.SubmitVote(ctx, ballot("M1", "P2", "V2"))
	}()
	go func() {
		defer wg.Done()
		time.Sleep(10 * time.Millisecond)
		svc.CloseVoting(ctx, "M1")
	}()

	time.Sleep(30 * time.Millisecond)
	close(n.release)
	wg.Wait()

	events := n.snapshot()
	if len(events) < 2 {
		t.Fatalf("Expected at least 2 events, got %+v", events)
	}
	if events[0].Type != models.EventVoteAccepted || events[0].TotalVotes != 1 || events[0].Seq != 1 {
		t.Errorf("First delivered event = %+v, want the first vote", events[0])
	}
	for i := 1; i < len(events); i++ {
		if events[i].Seq <= events[i-1].Seq {
			t.Errorf("event %d seq %d delivered after seq %d", i, events[i].Seq, events[i-1].Seq)
		}
	}

	data, _ := svc.VotingData(ctx, "M1")
	last := events[len(events)-1]
	if last.Type != models.EventVotingClosed || last.TotalVotes != data.TotalVotes {
		t.Errorf("Last delivered event = %s total=%d, want voting_closed total=%d", last.Type, last.TotalVotes, data.TotalVotes)
	}
}

func TestEventSeq(t *testing.T) {
	tests := []struct {
		status models.VoteStatus
		total  int
		want   int64
	}{
		{models.StatusActive, 0, 0},
		{models.StatusActive, 3, 3},
		{models.StatusClosed, 0, 1},
		{models.StatusCompleted, 3, 4},
	}
	for _, tt := range tests {
		if got := EventSeq(tt.status, tt.total); got != tt.want {
			t.Errorf("EventSeq(%s, %d) = %d, want %d", tt.status, tt.total, got, tt.want)
		}
	}
}

func TestSeedDemo(t *testing.T) {
	eachService(t, func(t *testing.T, svc *Service) {
		ctx := context.Background()
		if err := svc.SeedDemo(ctx); err != nil {
			t.Fatalf("SeedDemo() error = %v", err)
		}
		// Second run is a no-op
		if err := svc.SeedDemo(ctx); err != nil {
			t.Fatalf("second SeedDemo() error = %v", err)
		}

		data, err := svc.VotingData(ctx, DemoMatchID)
		if err != nil {
			t.Fatalf("VotingData() error = %v", err)
		}
		checkConsistent(t, data)
		if data.TotalVotes != 55 || data.MatchName != DemoMatchName {
			t.Fatalf("Unexpected demo data: total=%d name=%q", data.TotalVotes, data.MatchName)
		}

		order := []string{"5", "1", "3", "2"}
		for i, id := range order {
			if data.VoteCounts[i].PlayerID != id {
				t.Errorf("position %d = %s, want %s", i, data.VoteCounts[i].PlayerID, id)
			}
		}
		if data.VoteCounts[3].Role != "Coach" {
			t.Errorf("Bob Johnson should carry the Coach role, got %q", data.VoteCounts[3].Role)
		}

		voted, _ := svc.HasVoted(ctx, DemoMatchID, "mock-voter-5-0")
		if !voted {
			t.Error("Seeded voter should be recorded")
		}
	})
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want Kind
	}{
		{ErrMissingFields, KindValidation},
		{fmt.Errorf("%w: player_id", ErrMissingFields), KindValidation},
		{ErrRateLimited, KindRateLimited},
		{ErrAlreadyVoted, KindAlreadyVoted},
		{ErrVotingClosed, KindVotingClosed},
		{ErrNotFound, KindNotFound},
		{errors.New("disk on fire"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
