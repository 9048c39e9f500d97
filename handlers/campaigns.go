// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielhkuo/electoral-live/auth"
	"github.com/danielhkuo/electoral-live/cliparse"
	"github.com/danielhkuo/electoral-live/middleware"
	"github.com/danielhkuo/electoral-live/models"
)

// TimerControl is the subset of the timer service campaign handlers use.
type TimerControl interface {
	Start(campaignID string, duration time.Duration)
	Stop(campaignID string)
}

type CampaignHandler struct {
	db     *sql.DB
	cfg    cliparse.Config
	bus    Broadcaster
	timers TimerControl
}

func NewCampaignHandler(db *sql.DB, cfg cliparse.Config, bus Broadcaster, timers TimerControl) *CampaignHandler {
	return &CampaignHandler{db: db, cfg: cfg, bus: bus, timers: timers}
}

// ListCampaigns handles GET /campaigns
func (h *CampaignHandler) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	rows, err := h.db.Query(`
		SELECT id, title, description, votes_per_voter, status, start_time, end_time, created_at
		FROM campaign
		ORDER BY created_at DESC
	`)
	if err != nil {
		slog.Error("failed to query campaigns", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer rows.Close()

	campaigns := []models.Campaign{}
	for rows.Next() {
		var c models.Campaign
		if err := rows.Scan(&c.ID, &c.Title, &c.Description, &c.VotesPerVoter,
			&c.Status, &c.StartTime, &c.EndTime, &c.CreatedAt); err != nil {
			slog.Error("failed to scan campaign", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
		campaigns = append(campaigns, c)
	}

	middleware.JSONResponse(w, http.StatusOK, campaigns)
}

// GetCampaign handles GET /campaigns/{id}
// Returns the campaign, its candidates, and the caller's vote status.
func (h *CampaignHandler) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign id is required")
		return
	}

	campaign, err := h.loadCampaign(campaignID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		slog.Error("failed to query campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	candidates, err := campaignCandidates(h.db, campaignID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	votesUsed := 0
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		err = h.db.QueryRow(`
			SELECT COUNT(*) FROM vote WHERE voter_id = $1 AND campaign_id = $2
		`, claims.VoterID, campaignID).Scan(&votesUsed)
		if err != nil {
			slog.Error("failed to count voter's votes", "error", err)
			middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
			return
		}
	}

	middleware.JSONResponse(w, http.StatusOK, models.CampaignDetailResponse{
		Campaign:       campaign,
		Candidates:     candidates,
		VotesUsed:      votesUsed,
		VotesRemaining: campaign.VotesPerVoter - votesUsed,
	})
}

// CreateCampaign handles POST /campaigns
func (h *CampaignHandler) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCampaignRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if req.Title == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.VotesPerVoter < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "votes_per_voter must be at least 1")
		return
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() || !req.StartTime.Before(req.EndTime) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start_time must be before end_time")
		return
	}

	campaignID := auth.GenerateID()
	now := time.Now()

	_, err := h.db.Exec(`
		INSERT INTO campaign (id, title, description, votes_per_voter, status, start_time, end_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, campaignID, req.Title, req.Description, req.VotesPerVoter,
		models.StatusInactive, req.StartTime, req.EndTime, now)

	if err != nil {
		slog.Error("failed to insert campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create campaign")
		return
	}

	slog.Info("campaign created", "campaign_id", campaignID, "title", req.Title)

	campaign, err := h.loadCampaign(campaignID)
	if err != nil {
		slog.Error("failed to reload campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, campaign)
}

// UpdateCampaign handles PUT /campaigns/{id}
// A status change is broadcast to the campaign's room; leaving active
// also stops any running countdown.
func (h *CampaignHandler) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign id is required")
		return
	}

	var req models.UpdateCampaignRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	campaign, err := h.loadCampaign(campaignID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		slog.Error("failed to query campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	previousStatus := campaign.Status

	if req.Title != nil {
		campaign.Title = *req.Title
	}
	if req.Description != nil {
		campaign.Description = *req.Description
	}
	if req.VotesPerVoter != nil {
		if *req.VotesPerVoter < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "votes_per_voter must be at least 1")
			return
		}
		campaign.VotesPerVoter = *req.VotesPerVoter
	}
	if req.Status != nil {
		switch *req.Status {
		case models.StatusInactive, models.StatusActive, models.StatusFinished:
			campaign.Status = *req.Status
		default:
			middleware.ErrorResponse(w, http.StatusBadRequest, "status must be inactive, active, or finished")
			return
		}
	}
	if req.StartTime != nil {
		campaign.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		campaign.EndTime = *req.EndTime
	}
	if !campaign.StartTime.Before(campaign.EndTime) {
		middleware.ErrorResponse(w, http.StatusBadRequest, "start_time must be before end_time")
		return
	}

	_, err = h.db.Exec(`
		UPDATE campaign
		SET title = $1, description = $2, votes_per_voter = $3, status = $4, start_time = $5, end_time = $6
		WHERE id = $7
	`, campaign.Title, campaign.Description, campaign.VotesPerVoter,
		campaign.Status, campaign.StartTime, campaign.EndTime, campaignID)

	if err != nil {
		slog.Error("failed to update campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update campaign")
		return
	}

	if campaign.Status != previousStatus {
		if previousStatus == models.StatusActive {
			h.timers.Stop(campaignID)
		}
		h.bus.EmitCampaignStatusChange(campaignID, campaign.Status == models.StatusActive)
		slog.Info("campaign status changed",
			"campaign_id", campaignID, "from", previousStatus, "to", campaign.Status)
	}

	middleware.JSONResponse(w, http.StatusOK, campaign)
}

// DeleteCampaign handles DELETE /campaigns/{id}
// A campaign with recorded votes can never be deleted.
func (h *CampaignHandler) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign id is required")
		return
	}

	var exists bool
	err := h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM campaign WHERE id = $1)`, campaignID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}

	var voteCount int
	err = h.db.QueryRow(`SELECT COUNT(*) FROM vote WHERE campaign_id = $1`, campaignID).Scan(&voteCount)
	if err != nil {
		slog.Error("failed to count votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if voteCount > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Campaign has recorded votes and cannot be deleted")
		return
	}

	tx, err := h.db.Begin()
	if err != nil {
		slog.Error("failed to begin transaction", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM candidate WHERE campaign_id = $1`, campaignID); err != nil {
		slog.Error("failed to delete candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete campaign")
		return
	}
	if _, err := tx.Exec(`DELETE FROM campaign WHERE id = $1`, campaignID); err != nil {
		slog.Error("failed to delete campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete campaign")
		return
	}
	if err := tx.Commit(); err != nil {
		slog.Error("failed to commit deletion", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete campaign")
		return
	}

	h.timers.Stop(campaignID)

	slog.Info("campaign deleted", "campaign_id", campaignID)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"message": "Campaign deleted successfully",
	})
}

// CampaignReport handles GET /campaigns/{id}/report
func (h *CampaignHandler) CampaignReport(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign id is required")
		return
	}

	campaign, err := h.loadCampaign(campaignID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		slog.Error("failed to query campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	tally, err := ComputeTally(h.db, campaignID)
	if err != nil {
		slog.Error("failed to compute tally", "campaign_id", campaignID, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CampaignReportResponse{
		Campaign: campaign,
		Tally:    tally,
	})
}

// StartTimer handles POST /campaigns/{id}/timer/start
func (h *CampaignHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign id is required")
		return
	}

	var req models.StartTimerRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.DurationMinutes < 1 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "duration_minutes must be at least 1")
		return
	}

	campaign, err := h.loadCampaign(campaignID)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		slog.Error("failed to query campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if campaign.Status != models.StatusActive {
		middleware.ErrorResponse(w, http.StatusConflict, "Campaign must be active to start its timer")
		return
	}

	h.timers.Start(campaignID, time.Duration(req.DurationMinutes)*time.Minute)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"message": "Campaign timer started",
	})
}

// StopTimer handles POST /campaigns/{id}/timer/stop
func (h *CampaignHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("id")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign id is required")
		return
	}

	h.timers.Stop(campaignID)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"message": "Campaign timer stopped",
	})
}

func (h *CampaignHandler) loadCampaign(campaignID string) (models.Campaign, error) {
	var c models.Campaign
	err := h.db.QueryRow(`
		SELECT id, title, description, votes_per_voter, status, start_time, end_time, created_at
		FROM campaign
		WHERE id = $1
	`, campaignID).Scan(&c.ID, &c.Title, &c.Description, &c.VotesPerVoter,
		&c.Status, &c.StartTime, &c.EndTime, &c.CreatedAt)
	return c, err
}
