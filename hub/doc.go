// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package hub fans campaign events out to subscribed websocket clients.

# Rooms

Each campaign has a room: the set of connections currently subscribed to
its updates. Clients join and leave rooms by sending JSON frames over an
authenticated websocket:

	{"event": "joinCampaign", "campaignId": "..."}
	{"event": "leaveCampaign", "campaignId": "..."}

Joining is idempotent. Disconnecting removes the client from every room
it was a member of.

# Events

Three outbound event kinds, each delivered to every room member as a
JSON frame {"event": ..., "data": ...}:

  - voteUpdate: fresh tally snapshot after a successful vote
  - campaignStatusChange: campaign turned active or inactive
  - timeUpdate: remaining voting seconds, once per second while a
    campaign timer runs

# Connections

ServeWS authenticates the bearer token (Authorization header or ?token=
query parameter) before upgrading; rejected connections are never
registered. The verified identity is stored in a typed Session on the
client. Each client owns a buffered send channel; a subscriber that
cannot keep up is dropped so it never blocks an emission.
*/
package hub
