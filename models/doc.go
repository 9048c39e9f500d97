// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - RegisterRequest: username, email, password, optional role
  - LoginRequest: username, password
  - CreateCampaignRequest / UpdateCampaignRequest: campaign fields
  - CreateCandidateRequest / UpdateCandidateRequest: candidate fields
  - SubmitVoteRequest: campaign_id, candidate_id
  - StartTimerRequest: duration_minutes

# Response Types

Types for JSON responses:

  - AuthResponse: token, voter
  - SubmitVoteResponse: vote_id, message, votes_used, votes_remaining
  - VoteStatusResponse: votes, votes_used, votes_remaining, votes_per_voter
  - CampaignDetailResponse: campaign, candidates, caller vote status
  - CampaignReportResponse: campaign, tally
  - ErrorResponse: error, message

# Domain Types

Internal data structures:

  - Voter: registered user with role (password hash never serialized)
  - Campaign: election instance with voting window and per-voter quota
  - Candidate: one choice within a campaign
  - Vote: immutable record of one cast vote
  - CandidateTally / TallySnapshot: derived per-campaign results

# Constants

Campaign status values:

	StatusInactive = "inactive"
	StatusActive   = "active"
	StatusFinished = "finished"

Roles:

	RoleAdmin = "admin"
	RoleVoter = "voter"
*/
package models
