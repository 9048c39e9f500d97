// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/electoral-live/models"
)

// Outbound event names, one per kind of campaign update.
const (
	EventVoteUpdate           = "voteUpdate"
	EventCampaignStatusChange = "campaignStatusChange"
	EventTimeUpdate           = "timeUpdate"
)

// Inbound event names clients may send.
const (
	eventJoinCampaign  = "joinCampaign"
	eventLeaveCampaign = "leaveCampaign"
)

type frame struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type VoteUpdatePayload struct {
	CampaignID string               `json:"campaign_id"`
	Tally      models.TallySnapshot `json:"tally"`
	EmittedAt  time.Time            `json:"emitted_at"`
}

type StatusChangePayload struct {
	CampaignID string `json:"campaign_id"`
	IsActive   bool   `json:"is_active"`
}

type TimeUpdatePayload struct {
	CampaignID       string `json:"campaign_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// Hub tracks which connections are subscribed to which campaign and fans
// events out to them. Membership and emission share one lock, so a
// client joining mid-emission either receives that emission in full or
// not at all.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[string]map[*Client]bool)}
}

// Join subscribes a client to a campaign's room. Joining twice has no
// additional effect. A client that has been disconnected is refused:
// its send channel is closed or about to be, and it must never receive
// another emission.
func (h *Hub) Join(c *Client, campaignID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c.closed {
		return
	}

	room, ok := h.rooms[campaignID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[campaignID] = room
	}
	room[c] = true
	c.rooms[campaignID] = true

	slog.Info("client joined campaign room", "voter_id", c.Session.VoterID, "campaign_id", campaignID)
}

// Leave unsubscribes a client from a campaign's room.
func (h *Hub) Leave(c *Client, campaignID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c, campaignID)
}

// Disconnect removes a client from every room it joined and bars it from
// rejoining. Called when the connection's read loop exits, or when
// broadcast drops a slow subscriber while its read loop is still running.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.closed = true
	for campaignID := range c.rooms {
		h.removeLocked(c, campaignID)
	}
}

func (h *Hub) removeLocked(c *Client, campaignID string) {
	if room, ok := h.rooms[campaignID]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, campaignID)
		}
	}
	delete(c.rooms, campaignID)
}

// RoomSize reports the number of current members of a campaign room.
func (h *Hub) RoomSize(campaignID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[campaignID])
}

// EmitVoteUpdate pushes a fresh tally snapshot to a campaign's room.
func (h *Hub) EmitVoteUpdate(campaignID string, tally models.TallySnapshot) {
	h.broadcast(campaignID, EventVoteUpdate, VoteUpdatePayload{
		CampaignID: campaignID,
		Tally:      tally,
		EmittedAt:  time.Now(),
	})
}

// EmitCampaignStatusChange announces a campaign turning active or inactive.
func (h *Hub) EmitCampaignStatusChange(campaignID string, isActive bool) {
	h.broadcast(campaignID, EventCampaignStatusChange, StatusChangePayload{
		CampaignID: campaignID,
		IsActive:   isActive,
	})
}

// EmitTimeUpdate announces the remaining voting time in seconds.
func (h *Hub) EmitTimeUpdate(campaignID string, remainingSeconds int) {
	h.broadcast(campaignID, EventTimeUpdate, TimeUpdatePayload{
		CampaignID:       campaignID,
		RemainingSeconds: remainingSeconds,
	})
}

// broadcast marshals the event once and queues it on every room member.
// A member whose send buffer is full is dropped rather than allowed to
// block the emitter.
func (h *Hub) broadcast(campaignID, event string, data interface{}) {
	msg, err := json.Marshal(frame{Event: event, Data: data})
	if err != nil {
		slog.Error("failed to marshal event", "event", event, "error", err)
		return
	}

	var slow []*Client

	h.mu.RLock()
	for c := range h.rooms[campaignID] {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		slog.Warn("dropping slow subscriber", "voter_id", c.Session.VoterID, "campaign_id", campaignID)
		h.Disconnect(c)
		c.closeSend()
	}
}
