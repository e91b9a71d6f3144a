// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/campusarena/potm-voting/models"
	"github.com/campusarena/potm-voting/store"
)

const (
	DemoMatchID   = "match-1"
	DemoMatchName = "Blue Strikers vs Red Raptors"
)

type demoPlayer struct {
	id, name, team, role string
	votes                int
}

var demoPlayers = []demoPlayer{
	{"1", "Alice Smith", "Blue Strikers", "Player", 15},
	{"2", "Bob Johnson", "Red Raptors", "Coach", 8},
	{"3", "Charlie Davis", "Blue Strikers", "Player", 12},
	{"5", "Edward Norton", "Red Raptors", "Player", 20},
}

// SeedDemo loads an active demo match with 55 votes. It does nothing when
// the demo match already exists.
func (s *Service) SeedDemo(ctx context.Context) error {
	unlock := s.locks.lock(DemoMatchID)
	defer unlock()

	_, err := s.store.Session(ctx, DemoMatchID)
	if err == nil {
		slog.Debug("demo match already present", "match_id", DemoMatchID)
		return nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load demo session: %w", err)
	}

	now := s.now()
	err = s.store.CreateSession(ctx, models.Session{
		MatchID:   DemoMatchID,
		MatchName: DemoMatchName,
		Status:    models.StatusActive,
		CreatedAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to create demo session: %w", err)
	}

	total := 0
	for _, p := range demoPlayers {
		for i := 0; i < p.votes; i++ {
			err := s.store.AppendVote(ctx, models.Vote{
				ID:         uuid.NewString(),
				MatchID:    DemoMatchID,
				PlayerID:   p.id,
				PlayerName: p.name,
				Team:       p.team,
				Role:       p.role,
				VoterID:    fmt.Sprintf("mock-voter-%s-%d", p.id, i),
				Timestamp:  now,
			})
			if err != nil {
				return fmt.Errorf("failed to seed demo vote: %w", err)
			}
			total++
		}
	}

	slog.Info("seeded demo match", "match_id", DemoMatchID, "votes", total)
	return nil
}
