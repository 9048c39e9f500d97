// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and response helpers.

# Middleware

  - WithLogging: request/completion logging with duration
  - CORS: cross-origin headers and preflight handling
  - RequireAuth: bearer-token verification, attaches claims to context
  - RequireAdmin: RequireAuth plus admin role enforcement

# Helpers

  - JSONResponse: write a JSON body with status code
  - ErrorResponse: write a standard error envelope
  - ParseJSONBody: decode a request body
  - ClaimsFromContext: read verified claims inside a handler
  - BearerToken: extract a token from header or query string

# Usage

	mux.HandleFunc("POST /votes",
		middleware.WithLogging(
			middleware.RequireAuth(cfg.JWTSecret, voteHandler.SubmitVote)))

Handlers behind RequireAuth can trust the claims:

	claims, _ := middleware.ClaimsFromContext(r.Context())
	voterID := claims.VoterID
*/
package middleware
