// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens SQL connections and creates the schema.

# Connections

	conn, err := db.Open(db.TypeSQLite, "file:potm.db")
	conn, err := db.Open(db.TypePostgres, "postgres://...")

SQLite connections are limited to one open connection.

# Schema Creation

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The same DDL runs on SQLite and PostgreSQL.

# Tables

  - match_session: status header per match (active, closed, completed)
  - vote: append-only votes, one per (match_id, voter_id)
  - player_stats: Player of the Match counts per player
  - player_badge: one badge per (player_id, match_id)

# Relationships

	match_session 1──* vote
	player_stats 1──* player_badge

Ordering columns (vote.seq, player_stats.seq, player_badge.seq) record
insertion order so reads match the in-memory store exactly.
*/
package db
