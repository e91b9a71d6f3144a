// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/dustin/go-humanize"

	"github.com/campusarena/potm-voting/middleware"
	"github.com/campusarena/potm-voting/models"
	"github.com/campusarena/potm-voting/voting"
)

type StatsHandler struct {
	svc *voting.Service
}

func NewStatsHandler(svc *voting.Service) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// GetPlayerStats handles GET /players/{id}/stats
// Unknown players get 200 with null stats.
func (h *StatsHandler) GetPlayerStats(w http.ResponseWriter, r *http.Request) {
	playerID := r.PathValue("id")
	if playerID == "" {
		middleware.KindErrorResponse(w, http.StatusBadRequest, string(voting.KindValidation), "player id is required")
		return
	}

	stats, err := h.svc.PlayerStats(r.Context(), playerID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.PlayerStatsResponse{Stats: stats})
}

// Leaderboard handles GET /players/leaderboard
func (h *StatsHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	all, err := h.svc.Leaderboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.LeaderboardResponse{Players: rank(all)})
}

// rank assigns competition ranks (1, 2, 2, 4) to stats already sorted by
// award count
func rank(all []models.PlayerStats) []models.LeaderboardEntry {
	entries := make([]models.LeaderboardEntry, len(all))
	for i, st := range all {
		r := i + 1
		if i > 0 && st.PotmCount == all[i-1].PotmCount {
			r = entries[i-1].Rank
		}
		entries[i] = models.LeaderboardEntry{
			Rank:        r,
			Place:       humanize.Ordinal(r),
			PlayerStats: st,
		}
	}
	return entries
}
