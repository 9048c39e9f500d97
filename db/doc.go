// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database schema creation.

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

The schema includes:

  - voter: Registered users and their roles
  - campaign: Election instances with voting window and quota
  - candidate: Choices within a campaign
  - vote: Append-only record of cast votes

# Relationships

	campaign 1──* candidate
	campaign 1──* vote
	candidate 1──* vote
	voter 1──* vote

Candidates cascade on campaign deletion; votes intentionally do not
reference campaigns with CASCADE, since a campaign with recorded votes
can never be deleted.

# Indexes

Performance indexes on:

  - voter.username (unique)
  - campaign.status
  - candidate.campaign_id
  - vote.campaign_id
  - vote.(voter_id, campaign_id)
  - vote.(candidate_id, campaign_id)
*/
package db
