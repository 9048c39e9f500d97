// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/danielhkuo/electoral-live/models"
)

// ComputeTally derives the current results for a campaign from the vote
// table. Every candidate of the campaign appears in the output, zero-vote
// candidates included. Results are ordered by vote count descending; ties
// keep candidate insertion order, so identical inputs always produce
// identical output. Never mutates state.
func ComputeTally(db *sql.DB, campaignID string) (models.TallySnapshot, error) {
	var exists bool
	err := db.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM campaign WHERE id = $1)
	`, campaignID).Scan(&exists)
	if err != nil {
		return models.TallySnapshot{}, fmt.Errorf("failed to query campaign: %w", err)
	}
	if !exists {
		return models.TallySnapshot{}, ErrCampaignNotFound
	}

	candidates, err := campaignCandidateNames(db, campaignID)
	if err != nil {
		return models.TallySnapshot{}, fmt.Errorf("failed to get candidates: %w", err)
	}

	counts, err := campaignVoteCounts(db, campaignID)
	if err != nil {
		return models.TallySnapshot{}, fmt.Errorf("failed to count votes: %w", err)
	}

	totalVotes := 0
	for _, n := range counts {
		totalVotes += n
	}

	results := make([]models.CandidateTally, len(candidates))
	for i, c := range candidates {
		results[i] = models.CandidateTally{
			CandidateID:   c.id,
			CandidateName: c.name,
			Votes:         counts[c.id],
			Percentage:    formatPercentage(counts[c.id], totalVotes),
		}
	}

	// Stable sort keeps insertion order between equal vote counts.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Votes > results[j].Votes
	})

	var uniqueVoters int
	err = db.QueryRow(`
		SELECT COUNT(DISTINCT voter_id) FROM vote WHERE campaign_id = $1
	`, campaignID).Scan(&uniqueVoters)
	if err != nil {
		return models.TallySnapshot{}, fmt.Errorf("failed to count unique voters: %w", err)
	}

	return models.TallySnapshot{
		CampaignID:        campaignID,
		Results:           results,
		TotalVotes:        totalVotes,
		TotalUniqueVoters: uniqueVoters,
		TotalCandidates:   len(candidates),
		ComputedAt:        time.Now(),
	}, nil
}

type candidateName struct {
	id   string
	name string
}

// campaignCandidateNames returns candidates in insertion order.
func campaignCandidateNames(db *sql.DB, campaignID string) ([]candidateName, error) {
	rows, err := db.Query(`
		SELECT id, name FROM candidate
		WHERE campaign_id = $1
		ORDER BY seq, id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []candidateName
	for rows.Next() {
		var c candidateName
		if err := rows.Scan(&c.id, &c.name); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}

// campaignVoteCounts returns vote counts grouped by candidate.
func campaignVoteCounts(db *sql.DB, campaignID string) (map[string]int, error) {
	rows, err := db.Query(`
		SELECT candidate_id, COUNT(*) FROM vote
		WHERE campaign_id = $1
		GROUP BY candidate_id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var candidateID string
		var n int
		if err := rows.Scan(&candidateID, &n); err != nil {
			return nil, err
		}
		counts[candidateID] = n
	}

	return counts, rows.Err()
}

// formatPercentage renders a vote share with two decimals. A campaign
// with no votes yields "0.00%" for every candidate rather than dividing
// by zero.
func formatPercentage(votes, totalVotes int) string {
	if totalVotes == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", float64(votes)/float64(totalVotes)*100)
}
