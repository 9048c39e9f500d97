// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/electoral-live/auth"
	"github.com/danielhkuo/electoral-live/models"
)

const testSecret = "test-jwt-secret"

func newTestClient() *Client {
	return &Client{
		Session: Session{VoterID: "voter-1", Role: models.RoleVoter},
		send:    make(chan []byte, sendBufferSize),
		rooms:   make(map[string]bool),
	}
}

func TestJoinIsIdempotent(t *testing.T) {
	h := NewHub()
	c := newTestClient()

	h.Join(c, "campaign-1")
	h.Join(c, "campaign-1")

	if got := h.RoomSize("campaign-1"); got != 1 {
		t.Errorf("Expected room size 1 after double join, got %d", got)
	}
}

func TestLeave(t *testing.T) {
	h := NewHub()
	c := newTestClient()

	h.Join(c, "campaign-1")
	h.Leave(c, "campaign-1")

	if got := h.RoomSize("campaign-1"); got != 0 {
		t.Errorf("Expected empty room after leave, got %d", got)
	}

	// Leaving a room the client is not in is a no-op.
	h.Leave(c, "campaign-1")
	h.Leave(c, "campaign-2")
}

func TestDisconnectRemovesAllRooms(t *testing.T) {
	h := NewHub()
	c := newTestClient()

	h.Join(c, "campaign-1")
	h.Join(c, "campaign-2")
	h.Disconnect(c)

	if h.RoomSize("campaign-1") != 0 || h.RoomSize("campaign-2") != 0 {
		t.Error("Disconnect should remove the client from every room")
	}
	if len(c.rooms) != 0 {
		t.Errorf("Client should track no rooms after disconnect, got %d", len(c.rooms))
	}
}

func TestBroadcastOnlyReachesRoomMembers(t *testing.T) {
	h := NewHub()
	member := newTestClient()
	outsider := newTestClient()

	h.Join(member, "campaign-1")
	h.Join(outsider, "campaign-2")

	h.EmitVoteUpdate("campaign-1", models.TallySnapshot{CampaignID: "campaign-1", TotalVotes: 1})

	select {
	case raw := <-member.send:
		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			t.Fatalf("Failed to decode frame: %v", err)
		}
		if f.Event != EventVoteUpdate {
			t.Errorf("Expected %s, got %s", EventVoteUpdate, f.Event)
		}
	default:
		t.Fatal("Room member should have received the emission")
	}

	select {
	case <-outsider.send:
		t.Fatal("A client in another room must not receive the emission")
	default:
	}
}

func TestBroadcastDropsSlowSubscriber(t *testing.T) {
	h := NewHub()

	// An unbuffered channel with no reader makes every send fail.
	slow := &Client{
		Session: Session{VoterID: "slow-voter", Role: models.RoleVoter},
		send:    make(chan []byte),
		rooms:   make(map[string]bool),
	}
	healthy := newTestClient()

	h.Join(slow, "campaign-1")
	h.Join(healthy, "campaign-1")

	h.EmitTimeUpdate("campaign-1", 30)

	if got := h.RoomSize("campaign-1"); got != 1 {
		t.Errorf("The slow subscriber should have been dropped, room size %d", got)
	}

	if _, ok := <-slow.send; ok {
		t.Error("The dropped subscriber's send channel should be closed")
	}

	select {
	case <-healthy.send:
	default:
		t.Error("A healthy subscriber must still receive the emission")
	}
}

// A dropped subscriber's read loop may still be processing a join frame.
// The hub must refuse that join, otherwise the next broadcast would send
// on the already closed channel and panic.
func TestDroppedSubscriberCannotRejoin(t *testing.T) {
	h := NewHub()

	slow := &Client{
		Session: Session{VoterID: "slow-voter", Role: models.RoleVoter},
		send:    make(chan []byte),
		rooms:   make(map[string]bool),
	}
	h.Join(slow, "campaign-1")

	h.EmitTimeUpdate("campaign-1", 30)

	h.Join(slow, "campaign-1")

	if got := h.RoomSize("campaign-1"); got != 0 {
		t.Errorf("A dropped subscriber must not rejoin, room size %d", got)
	}

	h.EmitTimeUpdate("campaign-1", 29)
}

func TestEmitPayloads(t *testing.T) {
	h := NewHub()
	c := newTestClient()
	h.Join(c, "campaign-1")

	h.EmitCampaignStatusChange("campaign-1", false)
	h.EmitTimeUpdate("campaign-1", 42)

	var f frame
	if err := json.Unmarshal(<-c.send, &f); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if f.Event != EventCampaignStatusChange {
		t.Errorf("Expected %s first, got %s", EventCampaignStatusChange, f.Event)
	}

	raw := <-c.send
	var timed struct {
		Event string            `json:"event"`
		Data  TimeUpdatePayload `json:"data"`
	}
	if err := json.Unmarshal(raw, &timed); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if timed.Event != EventTimeUpdate || timed.Data.RemainingSeconds != 42 {
		t.Errorf("Unexpected time update frame: %s", raw)
	}
}

func wsURL(srv *httptest.Server, token string) string {
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return url
}

func TestServeWSRejectsUnauthenticated(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(ServeWS(h, testSecret, "")))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	if err == nil {
		t.Fatal("Expected the handshake to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 before any upgrade, got %+v", resp)
	}
}

func TestServeWSRejectsBadToken(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(ServeWS(h, testSecret, "")))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "not-a-token"), nil)
	if err == nil {
		t.Fatal("Expected the handshake to fail with a bad token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 before any upgrade, got %+v", resp)
	}
}

func TestServeWSJoinAndReceive(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(ServeWS(h, testSecret, "")))
	defer srv.Close()

	token, err := auth.GenerateToken("voter-1", models.RoleVoter, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	join := `{"event":"joinCampaign","campaignId":"campaign-1"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(join)); err != nil {
		t.Fatalf("Failed to send join: %v", err)
	}

	// The join is processed asynchronously by the read pump.
	deadline := time.Now().Add(2 * time.Second)
	for h.RoomSize("campaign-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the join to register")
		}
		time.Sleep(5 * time.Millisecond)
	}

	h.EmitVoteUpdate("campaign-1", models.TallySnapshot{CampaignID: "campaign-1", TotalVotes: 7})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read emission: %v", err)
	}

	var got struct {
		Event string            `json:"event"`
		Data  VoteUpdatePayload `json:"data"`
	}
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("Failed to decode frame: %v", err)
	}
	if got.Event != EventVoteUpdate {
		t.Errorf("Expected %s, got %s", EventVoteUpdate, got.Event)
	}
	if got.Data.Tally.TotalVotes != 7 {
		t.Errorf("Expected the snapshot in the payload, got %+v", got.Data)
	}
}

func TestServeWSLeaveStopsDelivery(t *testing.T) {
	h := NewHub()
	srv := httptest.NewServer(http.HandlerFunc(ServeWS(h, testSecret, "")))
	defer srv.Close()

	token, err := auth.GenerateToken("voter-1", models.RoleVoter, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	if err != nil {
		t.Fatalf("Failed to dial: %v", err)
	}
	defer conn.Close()

	join := `{"event":"joinCampaign","campaignId":"campaign-1"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(join)); err != nil {
		t.Fatalf("Failed to send join: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for h.RoomSize("campaign-1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the join to register")
		}
		time.Sleep(5 * time.Millisecond)
	}

	leave := `{"event":"leaveCampaign","campaignId":"campaign-1"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(leave)); err != nil {
		t.Fatalf("Failed to send leave: %v", err)
	}

	deadline = time.Now().Add(2 * time.Second)
	for h.RoomSize("campaign-1") != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for the leave to register")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
