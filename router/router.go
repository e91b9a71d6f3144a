// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusarena/potm-voting/auth"
	"github.com/campusarena/potm-voting/cliparse"
	"github.com/campusarena/potm-voting/handlers"
	"github.com/campusarena/potm-voting/metrics"
	"github.com/campusarena/potm-voting/middleware"
	"github.com/campusarena/potm-voting/pubsub"
	"github.com/campusarena/potm-voting/ratelimit"
	"github.com/campusarena/potm-voting/voting"
)

// Deps are the long-lived components the routes are served from
type Deps struct {
	Service  *voting.Service
	Resolver auth.Resolver
	Limiter  ratelimit.Limiter
	Hub      *pubsub.Hub
	Metrics  *metrics.Metrics
	// Gatherer backs /metrics; the route is omitted when nil
	Gatherer prometheus.Gatherer
	Config   cliparse.Config
}

func NewRouter(d Deps) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	votingHandler := handlers.NewVotingHandler(d.Service, d.Resolver, d.Limiter, d.Metrics, d.Config)
	statsHandler := handlers.NewStatsHandler(d.Service)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Voting (public, close guarded by X-Admin-Key when configured)
	mux.HandleFunc("POST /voting/vote", middleware.WithLogging(votingHandler.SubmitVote))
	mux.HandleFunc("GET /voting/matches/{id}", middleware.WithLogging(votingHandler.GetVotingData))
	mux.HandleFunc("POST /voting/close", middleware.WithLogging(votingHandler.CloseVoting))

	// Live tally stream
	if d.Hub != nil {
		liveHandler := handlers.NewLiveHandler(d.Service, d.Hub)
		mux.HandleFunc("GET /voting/matches/{id}/live", middleware.WithLogging(liveHandler.Stream))
	}

	// Player stats (public)
	mux.HandleFunc("GET /players/{id}/stats", middleware.WithLogging(statsHandler.GetPlayerStats))
	mux.HandleFunc("GET /players/leaderboard", middleware.WithLogging(statsHandler.Leaderboard))

	if d.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("potm-voting API v1"))
	})

	return mux
}

// NewResolver builds the voter identity resolver for cfg.IdentityMode
func NewResolver(cfg cliparse.Config) auth.Resolver {
	network := auth.NetworkResolver{Salt: cfg.VoterSalt}
	token := auth.TokenResolver{Provision: true, MaxAge: 30 * 24 * time.Hour}

	switch cfg.IdentityMode {
	case cliparse.IdentityNetwork:
		return network
	case cliparse.IdentityToken:
		return token
	default:
		return auth.AutoResolver{Token: token, Network: network}
	}
}
