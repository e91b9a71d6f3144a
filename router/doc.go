// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the Player of the Match voting API.

# Route Registration

NewRouter creates a configured http.ServeMux from the server's long-lived
components:

	mux := router.NewRouter(router.Deps{Service: svc, Resolver: r, ...})

# Endpoints

Health:

	GET /health
	GET /metrics - Prometheus exposition (when a Gatherer is set)

Voting:

	POST /voting/vote              - Submit a vote
	GET  /voting/matches/{id}      - Tally, status and winner
	GET  /voting/matches/{id}/live - Websocket tally stream (when a Hub is set)
	POST /voting/close             - Close voting (X-Admin-Key)

Players:

	GET /players/{id}/stats   - Awards and badges
	GET /players/leaderboard  - All players by award count

# Voter Identity

NewResolver maps the configured identity mode to an auth.Resolver: "ip"
uses the client address, "token" a provisioned voter token, and "auto"
prefers a token when the request carries one.
*/
package router
