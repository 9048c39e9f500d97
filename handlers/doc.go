// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers and the vote admission
and tally logic behind them.

# Handler Types

Each handler is a struct with database and config dependencies:

  - UserHandler: registration, login, token verification
  - CampaignHandler: campaign lifecycle, reports, timer control
  - CandidateHandler: candidate management
  - VoteHandler: vote submission, vote status, live results

Handlers are created via constructor functions; the vote and campaign
handlers additionally take the broadcast hub and timer service:

	voteHandler := handlers.NewVoteHandler(db, cfg, hub)
	campaignHandler := handlers.NewCampaignHandler(db, cfg, hub, timers)

# Vote Admission

AdmitVote in admission.go is the single authority over whether a vote
attempt is accepted. It checks, in order: campaign exists, campaign is
active, current time is inside the voting window, the candidate belongs
to the campaign, and the voter has quota left. The quota check and vote
insert run inside one transaction under a per-(voter, campaign) lock, so
concurrent submissions can never exceed votes_per_voter.

After an accepted vote the handler recomputes the tally and emits a
voteUpdate event to the campaign's room. Rejections never broadcast.

# Tally

ComputeTally in tally.go derives per-candidate counts and percentages
from the vote table:

	tally, err := handlers.ComputeTally(db, campaignID)

All candidates appear in the output, zero-vote candidates included, in
vote-count order with ties kept in candidate insertion order.

# Campaign Lifecycle

Campaigns move between inactive, active, and finished. A status change
through UpdateCampaign is broadcast to the campaign's room; the
lifecycle timer performs the active → inactive transition automatically
when a started countdown expires.
*/
package handlers
