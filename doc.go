// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Player of the Match voting
server.

Fans vote for the standout player of a match. Each voter gets one vote per
match, submissions are rate limited per voter, and closing a match awards a
player-of-the-match badge to the leader.

# Starting the Server

With no configuration the server keeps everything in memory:

	go run . -seed-demo

For durable storage:

	DATABASE_TYPE=postgres DATABASE_URL=postgres://... go run .
	go run . -t sqlite -d file:potm.db

# Configuration

Optional settings (see package cliparse for the full list):

  - PORT (-p): Server port (default: 3318)
  - REDIS_URL (-redis): share the rate limiter between instances
  - KAFKA_BROKERS (-kafka): stream voting events to Kafka
  - ADMIN_KEY_SALT (-admin-salt): require X-Admin-Key to close voting

Print the close key for a match:

	go run . -admin-salt secret -print-admin-key match-1

# Architecture

  - voting: session state machine, tally and stats
  - store: vote and stats ledgers (memory or SQL)
  - ratelimit: fixed-window limiter (memory or Redis)
  - auth: voter identity and admin keys
  - handlers, router, middleware: HTTP surface
  - pubsub, event: live websocket stream and Kafka events
  - metrics: Prometheus collectors
  - db: connections and schema
  - cliparse: configuration parsing
*/
package main
