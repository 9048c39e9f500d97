// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"
)

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
// Timestamps are always written by the application, so the DDL stays
// portable between sqlite and postgres.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

const schema = `
-- Voters
CREATE TABLE IF NOT EXISTS voter (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'voter' CHECK (role IN ('admin', 'voter')),
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_voter_username ON voter(username);

-- Campaigns
CREATE TABLE IF NOT EXISTS campaign (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT,
    votes_per_voter INTEGER NOT NULL CHECK (votes_per_voter >= 1),
    status TEXT NOT NULL DEFAULT 'inactive' CHECK (status IN ('inactive', 'active', 'finished')),
    start_time TIMESTAMP NOT NULL,
    end_time TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_campaign_status ON campaign(status);

-- Candidates. seq is a per-campaign insertion counter so listings and
-- tallies keep creation order even when timestamps collide.
CREATE TABLE IF NOT EXISTS candidate (
    id TEXT PRIMARY KEY,
    campaign_id TEXT NOT NULL REFERENCES campaign(id) ON DELETE CASCADE,
    name TEXT NOT NULL,
    description TEXT,
    photo_url TEXT,
    seq INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_candidate_campaign_id ON candidate(campaign_id);

-- Votes (append-only: no UPDATE or DELETE is ever issued against this table)
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    voter_id TEXT NOT NULL REFERENCES voter(id),
    campaign_id TEXT NOT NULL REFERENCES campaign(id),
    candidate_id TEXT NOT NULL REFERENCES candidate(id),
    cast_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_campaign ON vote(campaign_id);
CREATE INDEX IF NOT EXISTS idx_vote_voter_campaign ON vote(voter_id, campaign_id);
CREATE INDEX IF NOT EXISTS idx_vote_candidate_campaign ON vote(candidate_id, campaign_id);
`
