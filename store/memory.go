// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"sync"

	"github.com/campusarena/potm-voting/models"
)

// MemoryStore keeps everything in process memory. State is lost on restart.
type MemoryStore struct {
	mu sync.RWMutex

	sessions map[string]models.Session
	votes    map[string][]models.Vote
	voters   map[string]map[string]bool // [matchID][voterID]

	stats      map[string]*models.PlayerStats
	statsOrder []string // player IDs in first-award order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]models.Session),
		votes:    make(map[string][]models.Vote),
		voters:   make(map[string]map[string]bool),
		stats:    make(map[string]*models.PlayerStats),
	}
}

func (m *MemoryStore) Session(_ context.Context, matchID string) (models.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[matchID]
	if !ok {
		return models.Session{}, ErrNotFound
	}
	return s, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[s.MatchID]; exists {
		return nil
	}
	m.sessions[s.MatchID] = s
	m.voters[s.MatchID] = make(map[string]bool)
	return nil
}

func (m *MemoryStore) AppendVote(_ context.Context, v models.Vote) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[v.MatchID]; !ok {
		return ErrNotFound
	}
	if m.voters[v.MatchID][v.VoterID] {
		return ErrDuplicateVote
	}

	m.voters[v.MatchID][v.VoterID] = true
	m.votes[v.MatchID] = append(m.votes[v.MatchID], v)
	return nil
}

func (m *MemoryStore) HasVoted(_ context.Context, matchID, voterID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.voters[matchID][voterID], nil
}

func (m *MemoryStore) Votes(_ context.Context, matchID string) ([]models.Vote, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	src := m.votes[matchID]
	out := make([]models.Vote, len(src))
	copy(out, src)
	return out, nil
}

func (m *MemoryStore) CloseSession(_ context.Context, s models.Session, award *models.Award) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.sessions[s.MatchID]
	if !ok {
		return ErrNotFound
	}
	if cur.Status != models.StatusActive {
		return ErrNotActive
	}
	m.sessions[s.MatchID] = s
	if award != nil {
		m.award(*award)
	}
	return nil
}

func (m *MemoryStore) AwardBadge(_ context.Context, a models.Award) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.award(a)
	return nil
}

// award must be called with m.mu held
func (m *MemoryStore) award(a models.Award) {
	st, ok := m.stats[a.PlayerID]
	if !ok {
		st = newStats(a)
		m.stats[a.PlayerID] = st
		m.statsOrder = append(m.statsOrder, a.PlayerID)
	}

	st.PotmCount++
	st.TotalVotesReceived += a.VoteCount
	st.Badges = append(st.Badges, badgeFor(a))
}

func (m *MemoryStore) PlayerStats(_ context.Context, playerID string) (models.PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st, ok := m.stats[playerID]
	if !ok {
		return models.PlayerStats{}, ErrNotFound
	}
	return copyStats(st), nil
}

func (m *MemoryStore) AllPlayerStats(_ context.Context) ([]models.PlayerStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.PlayerStats, 0, len(m.statsOrder))
	for _, id := range m.statsOrder {
		out = append(out, copyStats(m.stats[id]))
	}
	sortStats(out)
	return out, nil
}

func copyStats(st *models.PlayerStats) models.PlayerStats {
	c := *st
	c.Badges = make([]models.PlayerBadge, len(st.Badges))
	copy(c.Badges, st.Badges)
	return c
}
