// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package timers runs the per-campaign voting countdown.

# Lifecycle

Each campaign has at most one live timer. Start replaces any running
timer for the same campaign; Stop cancels one without touching campaign
status (used when an administrator deactivates a campaign manually).

	svc := timers.NewService(db, hub)
	svc.Start(campaignID, 30*time.Minute)
	svc.Stop(campaignID)

While running, the timer emits a timeUpdate event with the remaining
seconds once per second. Remaining time is rounded up, so 0 appears only
in the expiry sequence.

# Expiry

When the countdown reaches zero the service writes the campaign's status
to inactive, then emits campaignStatusChange(false) followed by
timeUpdate(0). The status write happens before either emission; if it
fails, the tick loop logs the error and retries on the next tick so one
campaign's storage trouble never kills another campaign's timer.
*/
package timers
