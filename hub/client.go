// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package hub

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/electoral-live/auth"
	"github.com/danielhkuo/electoral-live/middleware"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 32
)

// Session is the verified identity attached to a connection at upgrade
// time. It never changes for the lifetime of the connection.
type Session struct {
	VoterID string
	Role    string
}

// Client is one websocket connection and its room memberships. The rooms
// map and the closed flag are guarded by the hub's lock. Once closed is
// set the send channel may be closed at any moment, so the hub refuses
// further joins.
type Client struct {
	Session Session

	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	rooms     map[string]bool
	closed    bool
	closeOnce sync.Once
}

func (c *Client) closeSend() {
	c.closeOnce.Do(func() { close(c.send) })
}

// clientMessage is the inbound frame shape for join/leave requests.
type clientMessage struct {
	Event      string `json:"event"`
	CampaignID string `json:"campaignId"`
}

// ServeWS upgrades an HTTP request to a websocket subscription. The
// bearer token is verified before the upgrade; connections that fail
// authentication are rejected with 401 and never registered.
func ServeWS(h *Hub, secret, allowedOrigin string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		token := middleware.BearerToken(r)
		if token == "" {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Authorization token required")
			return
		}

		claims, err := auth.ParseToken(token, secret)
		if err != nil {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}

		client := &Client{
			Session: Session{VoterID: claims.VoterID, Role: claims.Role},
			hub:     h,
			conn:    conn,
			send:    make(chan []byte, sendBufferSize),
			rooms:   make(map[string]bool),
		}

		slog.Info("websocket connected", "voter_id", client.Session.VoterID)

		go client.writePump()
		go client.readPump()
	}
}

// readPump handles join/leave requests until the connection closes, then
// removes the client from all rooms.
func (c *Client) readPump() {
	defer func() {
		c.hub.Disconnect(c)
		c.closeSend()
		c.conn.Close()
		slog.Info("websocket disconnected", "voter_id", c.Session.VoterID)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "voter_id", c.Session.VoterID, "error", err)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.CampaignID == "" {
			continue
		}

		switch msg.Event {
		case eventJoinCampaign:
			c.hub.Join(c, msg.CampaignID)
		case eventLeaveCampaign:
			c.hub.Leave(c, msg.CampaignID)
		}
	}
}

// writePump drains the send channel onto the connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
