// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielhkuo/electoral-live/auth"
	"github.com/danielhkuo/electoral-live/cliparse"
	"github.com/danielhkuo/electoral-live/db"
	"github.com/danielhkuo/electoral-live/models"
)

// SetupTestDB creates a fresh in-memory database with the full schema.
// Each call gets its own database, so tests are isolated and hermetic.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Shared-cache keeps the in-memory database alive across pool
	// connections; a unique name isolates it per test.
	dsn := "file:" + auth.GenerateID() + "?mode=memory&cache=shared"
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	// sqlite admits a single writer; serializing at the pool keeps
	// concurrent tests free of SQLITE_BUSY errors.
	conn.SetMaxOpenConns(1)

	if err := db.CreateSchema(conn); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         5000,
		DatabaseURL:  "file::memory:",
		DatabaseType: "sqlite",
		JWTSecret:    "test-jwt-secret",
	}
}

// CreateTestVoter inserts a voter with the given role and returns it.
// The password for every test voter is "test-password".
func CreateTestVoter(t *testing.T, conn *sql.DB, username, role string) models.Voter {
	t.Helper()

	hash, err := auth.HashPassword("test-password")
	if err != nil {
		t.Fatalf("Failed to hash test password: %v", err)
	}

	voter := models.Voter{
		ID:        auth.GenerateID(),
		Username:  username,
		Email:     username + "@example.com",
		Role:      role,
		CreatedAt: time.Now(),
	}

	_, err = conn.Exec(`
		INSERT INTO voter (id, username, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, voter.ID, voter.Username, voter.Email, hash, voter.Role, voter.CreatedAt)
	if err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return voter
}

// AuthToken mints a token for a voter, as the login endpoint would.
func AuthToken(t *testing.T, cfg cliparse.Config, voterID, role string) string {
	t.Helper()

	token, err := auth.GenerateToken(voterID, role, cfg.JWTSecret, auth.DefaultTokenTTL)
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}
	return token
}

// CreateTestCampaign creates a campaign whose voting window spans the
// present (one hour either side).
func CreateTestCampaign(t *testing.T, conn *sql.DB, status string, votesPerVoter int) string {
	t.Helper()

	now := time.Now()
	return CreateTestCampaignAt(t, conn, status, votesPerVoter, now.Add(-time.Hour), now.Add(time.Hour))
}

// CreateTestCampaignAt creates a campaign with an explicit voting window.
func CreateTestCampaignAt(t *testing.T, conn *sql.DB, status string, votesPerVoter int, start, end time.Time) string {
	t.Helper()

	campaignID := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO campaign (id, title, description, votes_per_voter, status, start_time, end_time, created_at)
		VALUES ($1, 'Test Campaign', 'A test campaign', $2, $3, $4, $5, $6)
	`, campaignID, votesPerVoter, status, start, end, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test campaign: %v", err)
	}

	return campaignID
}

// AddTestCandidate adds a candidate to a campaign and returns its ID.
// Successive calls preserve insertion order via the seq counter.
func AddTestCandidate(t *testing.T, conn *sql.DB, campaignID, name string) string {
	t.Helper()

	candidateID := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO candidate (id, campaign_id, name, description, photo_url, seq, created_at)
		VALUES ($1, $2, $3, '', '',
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM candidate WHERE campaign_id = $2),
			$4)
	`, candidateID, campaignID, name, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return candidateID
}

// CastTestVote inserts a vote directly, bypassing admission.
func CastTestVote(t *testing.T, conn *sql.DB, voterID, campaignID, candidateID string) string {
	t.Helper()

	voteID := auth.GenerateID()
	_, err := conn.Exec(`
		INSERT INTO vote (id, voter_id, campaign_id, candidate_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, voteID, voterID, campaignID, candidateID, time.Now())
	if err != nil {
		t.Fatalf("Failed to create test vote: %v", err)
	}

	return voteID
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
