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

type CandidateHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewCandidateHandler(db *sql.DB, cfg cliparse.Config) *CandidateHandler {
	return &CandidateHandler{db: db, cfg: cfg}
}

// GetCandidatesByCampaign handles GET /candidates/campaign/{campaignId}
func (h *CandidateHandler) GetCandidatesByCampaign(w http.ResponseWriter, r *http.Request) {
	campaignID := r.PathValue("campaignId")
	if campaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaignId is required")
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

	candidates, err := campaignCandidates(h.db, campaignID)
	if err != nil {
		slog.Error("failed to query candidates", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, candidates)
}

// GetCandidate handles GET /candidates/{id}
func (h *CandidateHandler) GetCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID := r.PathValue("id")
	if candidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate id is required")
		return
	}

	var c models.Candidate
	err := h.db.QueryRow(`
		SELECT id, campaign_id, name, description, photo_url, created_at
		FROM candidate
		WHERE id = $1
	`, candidateID).Scan(&c.ID, &c.CampaignID, &c.Name, &c.Description, &c.PhotoURL, &c.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}
	if err != nil {
		slog.Error("failed to query candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, c)
}

// CreateCandidate handles POST /candidates
func (h *CandidateHandler) CreateCandidate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.CampaignID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "campaign_id is required")
		return
	}
	if req.Name == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "name is required")
		return
	}

	var status string
	err := h.db.QueryRow(`SELECT status FROM campaign WHERE id = $1`, req.CampaignID).Scan(&status)
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Campaign not found")
		return
	}
	if err != nil {
		slog.Error("failed to query campaign", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if status == models.StatusFinished {
		middleware.ErrorResponse(w, http.StatusConflict, "Cannot add candidates to a finished campaign")
		return
	}

	candidateID := auth.GenerateID()
	now := time.Now()

	// seq picks up where the campaign's last candidate left off, so
	// creation order survives identical timestamps.
	_, err = h.db.Exec(`
		INSERT INTO candidate (id, campaign_id, name, description, photo_url, seq, created_at)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM candidate WHERE campaign_id = $2),
			$6)
	`, candidateID, req.CampaignID, req.Name, req.Description, req.PhotoURL, now)

	if err != nil {
		slog.Error("failed to insert candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to create candidate")
		return
	}

	slog.Info("candidate created", "candidate_id", candidateID, "campaign_id", req.CampaignID)

	middleware.JSONResponse(w, http.StatusCreated, models.Candidate{
		ID:          candidateID,
		CampaignID:  req.CampaignID,
		Name:        req.Name,
		Description: req.Description,
		PhotoURL:    req.PhotoURL,
		CreatedAt:   now,
	})
}

// UpdateCandidate handles PUT /candidates/{id}
// The owning campaign is immutable after creation.
func (h *CandidateHandler) UpdateCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID := r.PathValue("id")
	if candidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate id is required")
		return
	}

	var req models.UpdateCandidateRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var c models.Candidate
	err := h.db.QueryRow(`
		SELECT id, campaign_id, name, description, photo_url, created_at
		FROM candidate
		WHERE id = $1
	`, candidateID).Scan(&c.ID, &c.CampaignID, &c.Name, &c.Description, &c.PhotoURL, &c.CreatedAt)

	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}
	if err != nil {
		slog.Error("failed to query candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if req.Name != nil {
		if *req.Name == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "name cannot be empty")
			return
		}
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.PhotoURL != nil {
		c.PhotoURL = *req.PhotoURL
	}

	_, err = h.db.Exec(`
		UPDATE candidate SET name = $1, description = $2, photo_url = $3 WHERE id = $4
	`, c.Name, c.Description, c.PhotoURL, candidateID)

	if err != nil {
		slog.Error("failed to update candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to update candidate")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, c)
}

// DeleteCandidate handles DELETE /candidates/{id}
// A candidate with recorded votes cannot be deleted.
func (h *CandidateHandler) DeleteCandidate(w http.ResponseWriter, r *http.Request) {
	candidateID := r.PathValue("id")
	if candidateID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "candidate id is required")
		return
	}

	var exists bool
	err := h.db.QueryRow(`SELECT EXISTS(SELECT 1 FROM candidate WHERE id = $1)`, candidateID).Scan(&exists)
	if err != nil {
		slog.Error("failed to query candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if !exists {
		middleware.ErrorResponse(w, http.StatusNotFound, "Candidate not found")
		return
	}

	var voteCount int
	err = h.db.QueryRow(`SELECT COUNT(*) FROM vote WHERE candidate_id = $1`, candidateID).Scan(&voteCount)
	if err != nil {
		slog.Error("failed to count votes", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}
	if voteCount > 0 {
		middleware.ErrorResponse(w, http.StatusConflict, "Candidate has recorded votes and cannot be deleted")
		return
	}

	if _, err := h.db.Exec(`DELETE FROM candidate WHERE id = $1`, candidateID); err != nil {
		slog.Error("failed to delete candidate", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to delete candidate")
		return
	}

	slog.Info("candidate deleted", "candidate_id", candidateID)

	middleware.JSONResponse(w, http.StatusOK, map[string]string{
		"message": "Candidate deleted successfully",
	})
}

// campaignCandidates returns a campaign's candidates in insertion order.
func campaignCandidates(db *sql.DB, campaignID string) ([]models.Candidate, error) {
	rows, err := db.Query(`
		SELECT id, campaign_id, name, description, photo_url, created_at
		FROM candidate
		WHERE campaign_id = $1
		ORDER BY seq, id
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.ID, &c.CampaignID, &c.Name, &c.Description, &c.PhotoURL, &c.CreatedAt); err != nil {
			return nil, err
		}
		candidates = append(candidates, c)
	}

	return candidates, rows.Err()
}
