// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/electoral-live/cliparse"
	"github.com/danielhkuo/electoral-live/middleware"
	"github.com/danielhkuo/electoral-live/models"
)

// Broadcaster is the subset of the hub handlers emit through.
type Broadcaster interface {
	EmitVoteUpdate(campaignID string, tally models.TallySnapshot)
	EmitCampaignStatusChange(campaignID string, isActive bool)
}

type VoteHandler struct {
	db    *sql.DB
	cfg   cliparse.Config
	bus   Broadcaster
	locks *VoterLocks
}

func NewVoteHandler(db *sql.DB, cfg cliparse.Config, bus Broadcaster) *VoteHandler {
	return &VoteHandler{db: db, cfg: cfg, bus: bus, locks: NewVoterLocks()}
}

// SubmitVote handles POST /votes
func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.CampaignID == "" || req.CandidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign_id and candidate_id are required")
		return
	}

	result, err := AdmitVote(h.db, h.locks, claims.VoterID, req.CampaignID, req.CandidateID)
	if err != nil {
		h.rejectVote(w, req.CampaignID, err)
		return
	}

	slog.Info("vote admitted",
		"campaign_id", req.CampaignID,
		"candidate_id", req.CandidateID,
		"votes_remaining", result.VotesRemaining,
	)

	// The admission guard is released; tally and broadcast happen after
	// the durable write, outside any critical section.
	tally, err := ComputeTally(h.db, req.CampaignID)
	if err != nil {
		slog.Error("failed to compute tally after vote", "campaign_id", req.CampaignID, "error", err)
	} else {
		h.bus.EmitVoteUpdate(req.CampaignID, tally)
	}

	middleware.JSONResponse(w, http.StatusCreated, models.SubmitVoteResponse{
		VoteID:         result.VoteID,
		Message:        "Vote recorded successfully",
		VotesUsed:      result.VotesUsed,
		VotesRemaining: result.VotesRemaining,
	})
}

// rejectVote maps each admission rejection to a definitive response. A
// rejection never triggers a broadcast.
func (h *VoteHandler) rejectVote(w http.ResponseWriter, campaignID string, err error) {
	var quotaErr *QuotaExceededError

	switch {
	case errors.Is(err, ErrCampaignNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
	case errors.Is(err, ErrCampaignNotActive):
		middleware.ErrorResponse(w, http.StatusConflict, "Campaign is not active for voting")
	case errors.Is(err, ErrOutsideVotingWindow):
		middleware.ErrorResponse(w, http.StatusConflict, "Campaign is outside its voting window")
	case errors.Is(err, ErrCandidateNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found in this campaign")
	case errors.As(err, &quotaErr):
		middleware.ErrorResponse(w, http.StatusConflict, quotaErr.Error())
	default:
		slog.Error("vote admission failed", "campaign_id", campaignID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to record vote")
	}
}

// GetUserVoteStatus handles GET /votes/user/campaign/{campaignId}
func (h *VoteHandler) GetUserVoteStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	campaignID := r.PathValue("campaignId")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	status, err := VoteStatus(h.db, claims.VoterID, campaignID)
	if err == ErrCampaignNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		slog.Error("failed to get vote status", "campaign_id", campaignID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, status)
}

// GetCampaignResults handles GET /votes/campaign/{campaignId}/results
func (h *VoteHandler) GetCampaignResults(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaignId")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaignId is required")
		return
	}

	tally, err := ComputeTally(h.db, campaignID)
	if err == ErrCampaignNotFound {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		slog.Error("failed to compute tally", "campaign_id", campaignID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, tally)
}
