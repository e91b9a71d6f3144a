// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"

	"github.com/campusarena/potm-voting/auth"
	"github.com/campusarena/potm-voting/cliparse"
	"github.com/campusarena/potm-voting/metrics"
	"github.com/campusarena/potm-voting/middleware"
	"github.com/campusarena/potm-voting/models"
	"github.com/campusarena/potm-voting/ratelimit"
	"github.com/campusarena/potm-voting/voting"
)

const AdminKeyHeader = "X-Admin-Key"

type VotingHandler struct {
	svc      *voting.Service
	resolver auth.Resolver
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	cfg      cliparse.Config
}

func NewVotingHandler(svc *voting.Service, resolver auth.Resolver, limiter ratelimit.Limiter, m *metrics.Metrics, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{
		svc:      svc,
		resolver: resolver,
		limiter:  limiter,
		metrics:  m,
		cfg:      cfg,
	}
}

// SubmitVote handles POST /voting/vote
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.KindErrorResponse(w, http.StatusBadRequest, string(voting.KindValidation), "Invalid JSON")
		return
	}

	if strings.TrimSpace(req.MatchID) == "" ||
		strings.TrimSpace(req.PlayerID) == "" ||
		strings.TrimSpace(req.PlayerName) == "" {
		writeError(w, r, voting.ErrMissingFields)
		return
	}

	voterID := h.resolver.Resolve(w, r)

	// Every attempt counts, including ones rejected below
	allowed, err := h.limiter.Allow(r.Context(), voterID)
	if err != nil {
		// Fail open: the ledger still rejects duplicates
		slog.Warn("rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		h.metrics.ObserveRateLimited()
		slog.Info("vote rate limited", "match_id", req.MatchID, "voter", voterID)
		writeError(w, r, voting.ErrRateLimited)
		return
	}

	counts, err := h.svc.SubmitVote(r.Context(), voting.Ballot{
		MatchID:    req.MatchID,
		MatchName:  req.MatchName,
		PlayerID:   req.PlayerID,
		PlayerName: req.PlayerName,
		Team:       req.Team,
		Role:       req.Role,
		VoterID:    voterID,
	})

	if errors.Is(err, voting.ErrAlreadyVoted) {
		// Not an error for the client: show the current standings
		resp := models.SubmitVoteResponse{
			Success:      false,
			Message:      kindMessages[voting.KindAlreadyVoted],
			AlreadyVoted: true,
			VoteCounts:   []models.PlayerVoteCount{},
		}
		if data, err := h.svc.VotingData(r.Context(), req.MatchID); err == nil {
			resp.VoteCounts = data.VoteCounts
		} else {
			slog.Warn("failed to load tally for already-voted response", "match_id", req.MatchID, "error", err)
		}
		middleware.JSONResponse(w, http.StatusConflict, resp)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitVoteResponse{
		Success:    true,
		Message:    "Thank you for voting!",
		VoteCounts: counts,
	})
}

// GetVotingData handles GET /voting/matches/{id}
// ?voter_check=true also reports whether the caller has voted.
func (h *VotingHandler) GetVotingData(w http.ResponseWriter, r *http.Request) {
	matchID := r.PathValue("id")
	if matchID == "" {
		middleware.KindErrorResponse(w, http.StatusBadRequest, string(voting.KindValidation), "match id is required")
		return
	}

	data, err := h.svc.VotingData(r.Context(), matchID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := models.VotingDataResponse{MatchVotingData: *data}
	if r.URL.Query().Get("voter_check") == "true" {
		voterID := h.resolver.Resolve(w, r)
		voted, err := h.svc.HasVoted(r.Context(), matchID, voterID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		resp.HasUserVoted = voted
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// CloseVoting handles POST /voting/close
// Requires X-Admin-Key when an admin salt is configured.
func (h *VotingHandler) CloseVoting(w http.ResponseWriter, r *http.Request) {
	var req models.CloseVotingRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.KindErrorResponse(w, http.StatusBadRequest, string(voting.KindValidation), "Invalid JSON")
		return
	}
	if strings.TrimSpace(req.MatchID) == "" {
		middleware.KindErrorResponse(w, http.StatusBadRequest, string(voting.KindValidation), "Match ID is required")
		return
	}

	if h.cfg.AdminKeySalt != "" {
		if err := auth.ValidateAdminKey(req.MatchID, r.Header.Get(AdminKeyHeader), h.cfg.AdminKeySalt); err != nil {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid admin key")
			return
		}
	}

	winner, err := h.svc.CloseVoting(r.Context(), req.MatchID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := h.svc.VotingData(r.Context(), req.MatchID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := models.CloseVotingResponse{
		Success:    true,
		Message:    "Voting closed with no votes",
		Winner:     winner,
		VotingData: *data,
	}
	if winner != nil {
		resp.Message = fmt.Sprintf("Voting closed. %s wins Player of the Match!", winner.PlayerName)
		resp.Summary = winnerSummary(winner, data.TotalVotes)
	}

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// winnerSummary renders e.g. "Edward Norton took 20 of 1,055 votes (1.9%)"
func winnerSummary(winner *models.PlayerVoteCount, total int) string {
	return fmt.Sprintf("%s took %s of %s %s (%s%%)",
		winner.PlayerName,
		humanize.Comma(int64(winner.VoteCount)),
		humanize.Comma(int64(total)),
		english.PluralWord(total, "vote", "votes"),
		humanize.FtoaWithDigits(winner.Percentage, 1))
}
