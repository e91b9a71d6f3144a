// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"sort"

	"github.com/campusarena/potm-voting/models"
)

// sortStats orders by potm count descending. The input must already be in
// first-award order; the stable sort keeps that order among ties.
func sortStats(stats []models.PlayerStats) {
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].PotmCount > stats[j].PotmCount
	})
}
