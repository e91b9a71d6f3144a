// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// The DDL is shared between SQLite and PostgreSQL.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Match voting sessions
CREATE TABLE IF NOT EXISTS match_session (
    match_id TEXT PRIMARY KEY,
    match_name TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'closed', 'completed')),
    winner_player_id TEXT,
    created_at TIMESTAMP NOT NULL,
    closed_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_match_session_status ON match_session(status);

-- Votes (append-only)
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    match_id TEXT NOT NULL REFERENCES match_session(match_id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    player_id TEXT NOT NULL,
    player_name TEXT NOT NULL,
    team TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    voter_id TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    CONSTRAINT vote_match_id_voter_id_key UNIQUE (match_id, voter_id),
    CONSTRAINT vote_match_id_seq_key UNIQUE (match_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_vote_match_id ON vote(match_id);

-- Player statistics
CREATE TABLE IF NOT EXISTS player_stats (
    player_id TEXT PRIMARY KEY,
    player_name TEXT NOT NULL,
    potm_count INTEGER NOT NULL DEFAULT 0,
    total_votes_received INTEGER NOT NULL DEFAULT 0,
    seq INTEGER NOT NULL CONSTRAINT player_stats_seq_key UNIQUE,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_player_stats_potm ON player_stats(potm_count);

-- Awarded badges
CREATE TABLE IF NOT EXISTS player_badge (
    player_id TEXT NOT NULL REFERENCES player_stats(player_id) ON DELETE CASCADE,
    match_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    badge_type TEXT NOT NULL,
    match_name TEXT NOT NULL,
    awarded_at TIMESTAMP NOT NULL,
    vote_count INTEGER NOT NULL,
    vote_percentage DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (player_id, match_id),
    CONSTRAINT player_badge_player_id_seq_key UNIQUE (player_id, seq)
);
`
