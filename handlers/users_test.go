// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/electoral-live/middleware"
	"github.com/danielhkuo/electoral-live/models"
	"github.com/danielhkuo/electoral-live/testutil"
)

func TestRegister(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(conn, cfg)

	req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "a-long-password",
	}, nil)

	w := httptest.NewRecorder()
	handler.Register(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.AuthResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Token == "" {
		t.Error("Expected a token in the response")
	}
	if resp.Voter.Role != models.RoleVoter {
		t.Errorf("Default role should be voter, got %s", resp.Voter.Role)
	}
}

func TestRegisterAdminRole(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(conn, cfg)

	req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "root",
		Email:    "root@example.com",
		Password: "a-long-password",
		Role:     models.RoleAdmin,
	}, nil)

	w := httptest.NewRecorder()
	handler.Register(w, req)

	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.AuthResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Voter.Role != models.RoleAdmin {
		t.Errorf("Expected admin role, got %s", resp.Voter.Role)
	}
}

func TestRegisterValidation(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(conn, cfg)

	cases := []struct {
		name string
		req  models.RegisterRequest
	}{
		{"missing username", models.RegisterRequest{Email: "a@example.com", Password: "a-long-password"}},
		{"username too short", models.RegisterRequest{Username: "a", Email: "a@example.com", Password: "a-long-password"}},
		{"bad email", models.RegisterRequest{Username: "alice", Email: "not-an-email", Password: "a-long-password"}},
		{"short password", models.RegisterRequest{Username: "alice", Email: "a@example.com", Password: "short"}},
	}

	for _, tc := range cases {
		req := testutil.MakeRequest("POST", "/auth/register", tc.req, nil)
		w := httptest.NewRecorder()
		handler.Register(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, w.Code)
		}
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(conn, cfg)
	testutil.CreateTestVoter(t, conn, "alice", models.RoleVoter)

	req := testutil.MakeRequest("POST", "/auth/register", models.RegisterRequest{
		Username: "alice",
		Email:    "alice2@example.com",
		Password: "a-long-password",
	}, nil)

	w := httptest.NewRecorder()
	handler.Register(w, req)

	testutil.AssertStatus(t, w, http.StatusConflict)
}

func TestLogin(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(conn, cfg)
	voter := testutil.CreateTestVoter(t, conn, "alice", models.RoleVoter)

	req := testutil.MakeRequest("POST", "/auth/login", models.LoginRequest{
		Username: "alice",
		Password: "test-password",
	}, nil)

	w := httptest.NewRecorder()
	handler.Login(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.AuthResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.Token == "" {
		t.Error("Expected a token in the response")
	}
	if resp.Voter.ID != voter.ID {
		t.Errorf("Expected voter %s, got %s", voter.ID, resp.Voter.ID)
	}
}

// Unknown user and wrong password get the same response, so login
// failures reveal nothing about which usernames exist.
func TestLoginInvalidCredentials(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(conn, cfg)
	testutil.CreateTestVoter(t, conn, "alice", models.RoleVoter)

	cases := []models.LoginRequest{
		{Username: "alice", Password: "wrong-password"},
		{Username: "nobody", Password: "test-password"},
	}

	var bodies []string
	for _, lr := range cases {
		req := testutil.MakeRequest("POST", "/auth/login", lr, nil)
		w := httptest.NewRecorder()
		handler.Login(w, req)

		testutil.AssertStatus(t, w, http.StatusUnauthorized)
		bodies = append(bodies, w.Body.String())
	}

	if bodies[0] != bodies[1] {
		t.Error("Wrong password and unknown user should produce identical responses")
	}
}

func TestVerify(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	cfg := testutil.GetTestConfig()
	handler := NewUserHandler(conn, cfg)
	voter := testutil.CreateTestVoter(t, conn, "alice", models.RoleVoter)
	token := testutil.AuthToken(t, cfg, voter.ID, voter.Role)

	req := testutil.MakeRequest("GET", "/auth/verify", nil, map[string]string{
		"Authorization": "Bearer " + token,
	})

	w := httptest.NewRecorder()
	middleware.RequireAuth(cfg.JWTSecret, handler.Verify)(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.Voter
	testutil.AssertJSON(t, w, &resp)
	if resp.ID != voter.ID || resp.Username != "alice" {
		t.Errorf("Unexpected profile: %+v", resp)
	}
	if resp.PasswordHash != "" {
		t.Error("Password hash must never appear in a response")
	}
}
