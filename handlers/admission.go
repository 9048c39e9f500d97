// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielhkuo/electoral-live/auth"
	"github.com/danielhkuo/electoral-live/models"
)

// Admission rejection reasons, checked in this order.
var (
	ErrCampaignNotFound    = errors.New("campaign not found")
	ErrCampaignNotActive   = errors.New("campaign is not active for voting")
	ErrOutsideVotingWindow = errors.New("campaign is outside its voting window")
	ErrCandidateNotFound   = errors.New("candidate not found in this campaign")
)

// QuotaExceededError reports that a voter has already cast the maximum
// number of votes the campaign allows.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("already cast the maximum of %d votes allowed for this campaign", e.Limit)
}

// AdmissionResult describes one accepted vote.
type AdmissionResult struct {
	VoteID         string
	VotesUsed      int
	VotesRemaining int
}

// VoterLocks serializes vote admission per (voter, campaign) pair.
// Two concurrent submissions for the same pair must not both observe
// used < quota and both insert; everything between the count and the
// insert runs under the pair's lock. Entries are reference-counted so
// the map does not grow with the vote history.
type VoterLocks struct {
	mu    sync.Mutex
	locks map[string]*voterLock
}

type voterLock struct {
	mu   sync.Mutex
	refs int
}

func NewVoterLocks() *VoterLocks {
	return &VoterLocks{locks: make(map[string]*voterLock)}
}

func (l *VoterLocks) acquire(key string) *voterLock {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &voterLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return entry
}

func (l *VoterLocks) release(key string, entry *voterLock) {
	entry.mu.Unlock()

	l.mu.Lock()
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// AdmitVote decides a single vote attempt. Preconditions are checked in
// order: campaign exists, campaign is active, current time is inside the
// voting window, the candidate belongs to the campaign, and the voter
// has quota left. The quota check and the insert run in one transaction
// under the (voter, campaign) lock; the lock is released before the
// caller recomputes the tally or broadcasts, so slow subscribers never
// delay admission for other voters.
func AdmitVote(db *sql.DB, locks *VoterLocks, voterID, campaignID, candidateID string) (AdmissionResult, error) {
	var (
		status        string
		votesPerVoter int
		startTime     time.Time
		endTime       time.Time
	)
	err := db.QueryRow(`
		SELECT status, votes_per_voter, start_time, end_time
		FROM campaign WHERE id = $1
	`, campaignID).Scan(&status, &votesPerVoter, &startTime, &endTime)

	if err == sql.ErrNoRows {
		return AdmissionResult{}, ErrCampaignNotFound
	}
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("failed to query campaign: %w", err)
	}

	if status != models.StatusActive {
		return AdmissionResult{}, ErrCampaignNotActive
	}

	now := time.Now()
	if now.Before(startTime) || now.After(endTime) {
		return AdmissionResult{}, ErrOutsideVotingWindow
	}

	var candidateCampaign string
	err = db.QueryRow(`
		SELECT campaign_id FROM candidate WHERE id = $1
	`, candidateID).Scan(&candidateCampaign)

	if err == sql.ErrNoRows || (err == nil && candidateCampaign != campaignID) {
		return AdmissionResult{}, ErrCandidateNotFound
	}
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("failed to query candidate: %w", err)
	}

	// Critical section: count-and-insert must be indivisible per pair.
	key := voterID + "/" + campaignID
	entry := locks.acquire(key)
	defer locks.release(key, entry)

	tx, err := db.Begin()
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var used int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM vote WHERE voter_id = $1 AND campaign_id = $2
	`, voterID, campaignID).Scan(&used)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("failed to count votes: %w", err)
	}

	if used >= votesPerVoter {
		return AdmissionResult{}, &QuotaExceededError{Limit: votesPerVoter}
	}

	voteID := auth.GenerateID()
	_, err = tx.Exec(`
		INSERT INTO vote (id, voter_id, campaign_id, candidate_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, voterID, campaignID, candidateID, now)
	if err != nil {
		return AdmissionResult{}, fmt.Errorf("failed to insert vote: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return AdmissionResult{}, fmt.Errorf("failed to commit vote: %w", err)
	}

	return AdmissionResult{
		VoteID:         voteID,
		VotesUsed:      used + 1,
		VotesRemaining: votesPerVoter - used - 1,
	}, nil
}

// VoteStatus reports how many votes a voter has used in a campaign.
func VoteStatus(db *sql.DB, voterID, campaignID string) (models.VoteStatusResponse, error) {
	var votesPerVoter int
	err := db.QueryRow(`
		SELECT votes_per_voter FROM campaign WHERE id = $1
	`, campaignID).Scan(&votesPerVoter)

	if err == sql.ErrNoRows {
		return models.VoteStatusResponse{}, ErrCampaignNotFound
	}
	if err != nil {
		return models.VoteStatusResponse{}, fmt.Errorf("failed to query campaign: %w", err)
	}

	rows, err := db.Query(`
		SELECT id, voter_id, campaign_id, candidate_id, cast_at
		FROM vote
		WHERE voter_id = $1 AND campaign_id = $2
		ORDER BY cast_at, id
	`, voterID, campaignID)
	if err != nil {
		return models.VoteStatusResponse{}, fmt.Errorf("failed to query votes: %w", err)
	}
	defer rows.Close()

	votes := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.ID, &v.VoterID, &v.CampaignID, &v.CandidateID, &v.CastAt); err != nil {
			return models.VoteStatusResponse{}, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return models.VoteStatusResponse{}, fmt.Errorf("failed to read votes: %w", err)
	}

	return models.VoteStatusResponse{
		Votes:          votes,
		VotesUsed:      len(votes),
		VotesRemaining: votesPerVoter - len(votes),
		VotesPerVoter:  votesPerVoter,
	}, nil
}
