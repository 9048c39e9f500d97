// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the URL routing table.

# Routes

Uses Go 1.22+ http.ServeMux method routing:

	mux := router.NewRouter(db, cfg, hub, timers)

Authentication routes are open; campaign, candidate, and vote routes
require a bearer token; mutating campaign/candidate routes and reports
additionally require the admin role. GET /ws upgrades to the realtime
subscription socket after verifying the same token.

# Route Groups

	POST /auth/register, POST /auth/login, GET /auth/verify
	GET|POST /campaigns, GET|PUT|DELETE /campaigns/{id}
	GET /campaigns/{id}/report
	POST /campaigns/{id}/timer/start, POST /campaigns/{id}/timer/stop
	GET /candidates/campaign/{campaignId}, GET|PUT|DELETE /candidates/{id}
	POST /candidates
	POST /votes
	GET /votes/user/campaign/{campaignId}
	GET /votes/campaign/{campaignId}/results
	GET /ws
	GET /health
*/
package router
