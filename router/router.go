// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"database/sql"
	"net/http"

	"github.com/danielhkuo/electoral-live/cliparse"
	"github.com/danielhkuo/electoral-live/handlers"
	"github.com/danielhkuo/electoral-live/hub"
	"github.com/danielhkuo/electoral-live/middleware"
	"github.com/danielhkuo/electoral-live/timers"
)

func NewRouter(db *sql.DB, cfg cliparse.Config, h *hub.Hub, ts *timers.Service) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	userHandler := handlers.NewUserHandler(db, cfg)
	campaignHandler := handlers.NewCampaignHandler(db, cfg, h, ts)
	candidateHandler := handlers.NewCandidateHandler(db, cfg)
	voteHandler := handlers.NewVoteHandler(db, cfg, h)

	secret := cfg.JWTSecret

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Authentication
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(userHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(userHandler.Login))
	mux.HandleFunc("GET /auth/verify", middleware.WithLogging(middleware.RequireAuth(secret, userHandler.Verify)))

	// Campaign management (admin operations) and viewing
	mux.HandleFunc("GET /campaigns", middleware.WithLogging(middleware.RequireAuth(secret, campaignHandler.ListCampaigns)))
	mux.HandleFunc("GET /campaigns/{id}", middleware.WithLogging(middleware.RequireAuth(secret, campaignHandler.GetCampaign)))
	mux.HandleFunc("POST /campaigns", middleware.WithLogging(middleware.RequireAdmin(secret, campaignHandler.CreateCampaign)))
	mux.HandleFunc("PUT /campaigns/{id}", middleware.WithLogging(middleware.RequireAdmin(secret, campaignHandler.UpdateCampaign)))
	mux.HandleFunc("DELETE /campaigns/{id}", middleware.WithLogging(middleware.RequireAdmin(secret, campaignHandler.DeleteCampaign)))
	mux.HandleFunc("GET /campaigns/{id}/report", middleware.WithLogging(middleware.RequireAdmin(secret, campaignHandler.CampaignReport)))

	// Campaign countdown control
	mux.HandleFunc("POST /campaigns/{id}/timer/start", middleware.WithLogging(middleware.RequireAdmin(secret, campaignHandler.StartTimer)))
	mux.HandleFunc("POST /campaigns/{id}/timer/stop", middleware.WithLogging(middleware.RequireAdmin(secret, campaignHandler.StopTimer)))

	// Candidates
	mux.HandleFunc("GET /candidates/campaign/{campaignId}", middleware.WithLogging(middleware.RequireAuth(secret, candidateHandler.GetCandidatesByCampaign)))
	mux.HandleFunc("GET /candidates/{id}", middleware.WithLogging(middleware.RequireAuth(secret, candidateHandler.GetCandidate)))
	mux.HandleFunc("POST /candidates", middleware.WithLogging(middleware.RequireAdmin(secret, candidateHandler.CreateCandidate)))
	mux.HandleFunc("PUT /candidates/{id}", middleware.WithLogging(middleware.RequireAdmin(secret, candidateHandler.UpdateCandidate)))
	mux.HandleFunc("DELETE /candidates/{id}", middleware.WithLogging(middleware.RequireAdmin(secret, candidateHandler.DeleteCandidate)))

	// Voting
	mux.HandleFunc("POST /votes", middleware.WithLogging(middleware.RequireAuth(secret, voteHandler.SubmitVote)))
	mux.HandleFunc("GET /votes/user/campaign/{campaignId}", middleware.WithLogging(middleware.RequireAuth(secret, voteHandler.GetUserVoteStatus)))
	mux.HandleFunc("GET /votes/campaign/{campaignId}/results", middleware.WithLogging(middleware.RequireAuth(secret, voteHandler.GetCampaignResults)))

	// Realtime subscriptions (token checked before the upgrade)
	mux.HandleFunc("GET /ws", hub.ServeWS(h, secret, cfg.ClientOrigin))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("electoral-live API v1"))
	})

	return mux
}
