// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Electoral Live API server.

Electoral Live is a real-time election service: registered voters cast a
limited number of votes per campaign among a fixed candidate list, and
every subscribed client sees the tally move live.

# Starting the Server

The server reads a .env file if present, then environment variables or
CLI flags:

	DATABASE_URL=file:electoral.db JWT_SECRET=... go run main.go

Or with flags:

	go run main.go -p 5000 -d "postgres://..." -t postgres -jwt-secret ...

# Configuration

Required settings:

  - DATABASE_URL (-d): Database connection string
  - JWT_SECRET (-jwt-secret): Secret for signing auth tokens

Optional settings:

  - PORT (-p): Server port (default: 5000)
  - DATABASE_TYPE (-t): sqlite or postgres (default: sqlite)
  - CLIENT_ORIGIN (-origin): Allowed origin for CORS and websockets

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP handlers plus vote admission and tally logic
  - hub: websocket rooms and event fan-out per campaign
  - timers: per-campaign voting countdown with auto-deactivation
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers, JWT auth
  - models: Request/response types
  - auth: Tokens, password hashing, IDs
  - db: Schema creation
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
