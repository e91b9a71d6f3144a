// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package voting

import (
	"sort"

	"github.com/campusarena/potm-voting/models"
)

// Tally aggregates votes per player. Players are collected in the order
// they first appear, then stably sorted by vote count descending, so tied
// players keep first-vote order. Team and role come from the first vote
// seen for each player.
func Tally(votes []models.Vote) []models.PlayerVoteCount {
	counts := make([]models.PlayerVoteCount, 0)
	index := make(map[string]int)

	for _, v := range votes {
		i, ok := index[v.PlayerID]
		if !ok {
			i = len(counts)
			index[v.PlayerID] = i
			counts = append(counts, models.PlayerVoteCount{
				PlayerID:   v.PlayerID,
				PlayerName: v.PlayerName,
				Team:       v.Team,
				Role:       v.Role,
			})
		}
		counts[i].VoteCount++
	}

	total := len(votes)
	for i := range counts {
		if total > 0 {
			counts[i].Percentage = float64(counts[i].VoteCount) / float64(total) * 100
		}
	}

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].VoteCount > counts[j].VoteCount
	})

	return counts
}

// leader returns the first tally entry, or nil for an empty tally
func leader(counts []models.PlayerVoteCount) *models.PlayerVoteCount {
	if len(counts) == 0 {
		return nil
	}
	w := counts[0]
	return &w
}

// find returns the tally entry for playerID, or nil
func find(counts []models.PlayerVoteCount, playerID string) *models.PlayerVoteCount {
	for _, c := range counts {
		if c.PlayerID == playerID {
			return &c
		}
	}
	return nil
}
