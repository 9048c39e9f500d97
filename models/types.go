// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Campaign status constants
const (
	StatusInactive = "inactive"
	StatusActive   = "active"
	StatusFinished = "finished"
)

// Voter role constants
const (
	RoleAdmin = "admin"
	RoleVoter = "voter"
)

// Request types

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateCampaignRequest struct {
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	VotesPerVoter int       `json:"votes_per_voter"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
}

// UpdateCampaignRequest carries partial updates; nil fields are left untouched.
type UpdateCampaignRequest struct {
	Title         *string    `json:"title,omitempty"`
	Description   *string    `json:"description,omitempty"`
	VotesPerVoter *int       `json:"votes_per_voter,omitempty"`
	Status        *string    `json:"status,omitempty"`
	StartTime     *time.Time `json:"start_time,omitempty"`
	EndTime       *time.Time `json:"end_time,omitempty"`
}

type CreateCandidateRequest struct {
	CampaignID  string `json:"campaign_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PhotoURL    string `json:"photo_url"`
}

type UpdateCandidateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

type SubmitVoteRequest struct {
	CampaignID  string `json:"campaign_id"`
	CandidateID string `json:"candidate_id"`
}

type StartTimerRequest struct {
	DurationMinutes int `json:"duration_minutes"`
}

// Response types

type AuthResponse struct {
	Token string `json:"token"`
	Voter Voter  `json:"voter"`
}

type SubmitVoteResponse struct {
	VoteID         string `json:"vote_id"`
	Message        string `json:"message"`
	VotesUsed      int    `json:"votes_used"`
	VotesRemaining int    `json:"votes_remaining"`
}

type VoteStatusResponse struct {
	Votes          []Vote `json:"votes"`
	VotesUsed      int    `json:"votes_used"`
	VotesRemaining int    `json:"votes_remaining"`
	VotesPerVoter  int    `json:"votes_per_voter"`
}

type CampaignDetailResponse struct {
	Campaign       Campaign    `json:"campaign"`
	Candidates     []Candidate `json:"candidates"`
	VotesUsed      int         `json:"votes_used"`
	VotesRemaining int         `json:"votes_remaining"`
}

type CampaignReportResponse struct {
	Campaign Campaign      `json:"campaign"`
	Tally    TallySnapshot `json:"tally"`
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// Domain types

type Voter struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type Campaign struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	VotesPerVoter int       `json:"votes_per_voter"`
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	CreatedAt     time.Time `json:"created_at"`
}

type Candidate struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Vote struct {
	ID          string    `json:"id"`
	VoterID     string    `json:"voter_id"`
	CampaignID  string    `json:"campaign_id"`
	CandidateID string    `json:"candidate_id"`
	CastAt      time.Time `json:"cast_at"`
}

// Tally types

// CandidateTally is one row of a campaign tally. Percentage is the share
// of all votes cast in the campaign, formatted like "42.86%".
type CandidateTally struct {
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	Votes         int    `json:"votes"`
	Percentage    string `json:"percentage"`
}

// TallySnapshot is the derived result set for one campaign. It is
// recomputed on demand from the vote table and never persisted.
type TallySnapshot struct {
	CampaignID        string           `json:"campaign_id"`
	Results           []CandidateTally `json:"results"`
	TotalVotes        int              `json:"total_votes"`
	TotalUniqueVoters int              `json:"total_unique_voters"`
	TotalCandidates   int              `json:"total_candidates"`
	ComputedAt        time.Time        `json:"computed_at"`
}
