// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package timers

import (
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/electoral-live/models"
	"github.com/danielhkuo/electoral-live/testutil"
)

// timerEvent is one recorded emission, in arrival order.
type timerEvent struct {
	kind             string // "status" or "time"
	isActive         bool
	remainingSeconds int
}

// recorder implements Broadcaster and signals when the countdown
// reaches zero.
type recorder struct {
	mu      sync.Mutex
	events  []timerEvent
	expired chan struct{}
	once    sync.Once
}

func newRecorder() *recorder {
	return &recorder{expired: make(chan struct{})}
}

func (r *recorder) EmitCampaignStatusChange(campaignID string, isActive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, timerEvent{kind: "status", isActive: isActive})
}

func (r *recorder) EmitTimeUpdate(campaignID string, remainingSeconds int) {
	r.mu.Lock()
	r.events = append(r.events, timerEvent{kind: "time", remainingSeconds: remainingSeconds})
	r.mu.Unlock()

	if remainingSeconds == 0 {
		r.once.Do(func() { close(r.expired) })
	}
}

func (r *recorder) snapshot() []timerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]timerEvent(nil), r.events...)
}

func waitExpired(t *testing.T, r *recorder) {
	t.Helper()
	select {
	case <-r.expired:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for the countdown to expire")
	}
}

func campaignStatus(t *testing.T, s *Service, campaignID string) string {
	t.Helper()
	var status string
	if err := s.db.QueryRow(`SELECT status FROM campaign WHERE id = $1`, campaignID).Scan(&status); err != nil {
		t.Fatalf("Failed to query campaign status: %v", err)
	}
	return status
}

func TestTimerExpiry(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	campaignID := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)

	bus := newRecorder()
	s := NewService(conn, bus)
	s.interval = 5 * time.Millisecond

	s.Start(campaignID, 30*time.Millisecond)
	waitExpired(t, bus)

	if got := campaignStatus(t, s, campaignID); got != models.StatusInactive {
		t.Errorf("Expired campaign should be inactive, got %s", got)
	}
	if s.Running(campaignID) {
		t.Error("An expired timer should no longer be registered")
	}

	events := bus.snapshot()
	if len(events) < 2 {
		t.Fatalf("Expected at least a status change and a final tick, got %v", events)
	}

	// The last two emissions are deactivation then the zero tick, in
	// that order; storage was already updated before either fired.
	last, prev := events[len(events)-1], events[len(events)-2]
	if prev.kind != "status" || prev.isActive {
		t.Errorf("Expected a deactivation before the zero tick, got %+v", prev)
	}
	if last.kind != "time" || last.remainingSeconds != 0 {
		t.Errorf("Expected the final emission to be the zero tick, got %+v", last)
	}

	zeros := 0
	for _, e := range events {
		if e.kind == "time" {
			if e.remainingSeconds < 0 {
				t.Errorf("Remaining seconds must never be negative, got %d", e.remainingSeconds)
			}
			if e.remainingSeconds == 0 {
				zeros++
			}
		}
	}
	if zeros != 1 {
		t.Errorf("Zero must be emitted exactly once, got %d times", zeros)
	}
}

func TestTimerRemainingNeverIncreases(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	campaignID := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)

	bus := newRecorder()
	s := NewService(conn, bus)
	s.interval = 20 * time.Millisecond

	s.Start(campaignID, 2*time.Second+50*time.Millisecond)

	// Collect a handful of ticks, then stop early.
	time.Sleep(150 * time.Millisecond)
	s.Stop(campaignID)

	prev := -1
	for _, e := range bus.snapshot() {
		if e.kind != "time" {
			continue
		}
		if prev >= 0 && e.remainingSeconds > prev {
			t.Fatalf("Remaining seconds increased from %d to %d", prev, e.remainingSeconds)
		}
		prev = e.remainingSeconds
	}
	if prev < 0 {
		t.Fatal("Expected at least one time update")
	}
}

func TestTimerStop(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	campaignID := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)

	bus := newRecorder()
	s := NewService(conn, bus)
	s.interval = 5 * time.Millisecond

	s.Start(campaignID, time.Hour)
	if !s.Running(campaignID) {
		t.Fatal("Timer should be running after Start")
	}

	s.Stop(campaignID)
	if s.Running(campaignID) {
		t.Error("Timer should be gone after Stop")
	}

	// Give a stale goroutine time to misbehave if Stop failed.
	time.Sleep(30 * time.Millisecond)

	if got := campaignStatus(t, s, campaignID); got != models.StatusActive {
		t.Errorf("Stopping a timer must not touch campaign status, got %s", got)
	}
	for _, e := range bus.snapshot() {
		if e.kind == "status" {
			t.Errorf("Stop must not emit a status change, got %+v", e)
		}
	}
}

func TestTimerRestartReplaces(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	campaignID := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)

	bus := newRecorder()
	s := NewService(conn, bus)
	s.interval = 5 * time.Millisecond

	// The second Start supersedes the hour-long countdown entirely.
	s.Start(campaignID, time.Hour)
	s.Start(campaignID, 30*time.Millisecond)

	s.mu.Lock()
	n := len(s.active)
	s.mu.Unlock()
	if n != 1 {
		t.Fatalf("Expected exactly one registered timer, got %d", n)
	}

	waitExpired(t, bus)

	if got := campaignStatus(t, s, campaignID); got != models.StatusInactive {
		t.Errorf("Replacement timer should have expired the campaign, got %s", got)
	}
	if s.Running(campaignID) {
		t.Error("No timer should remain after expiry")
	}
}

// A replaced timer's goroutine can receive one last tick after the stop
// signal. Run such a stale goroutine directly, past its end time, and
// verify it exits without deactivating the campaign or emitting expiry.
func TestStaleTimerDoesNotExpireCampaign(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	campaignID := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)

	bus := newRecorder()
	s := NewService(conn, bus)
	s.interval = 5 * time.Millisecond
	defer s.StopAll()

	// The registered replacement keeps the campaign alive.
	s.Start(campaignID, time.Hour)

	stale := &campaignTimer{
		campaignID: campaignID,
		endTime:    time.Now().Add(-time.Second),
		stop:       make(chan struct{}),
	}
	done := make(chan struct{})
	go func() {
		s.run(stale)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stale timer goroutine never exited")
	}

	if got := campaignStatus(t, s, campaignID); got != models.StatusActive {
		t.Errorf("A stale timer must not deactivate the campaign, got %s", got)
	}
	if !s.Running(campaignID) {
		t.Error("The replacement timer should still be registered")
	}
	for _, e := range bus.snapshot() {
		if e.kind == "status" {
			t.Errorf("A stale timer must not emit a status change, got %+v", e)
		}
		if e.kind == "time" && e.remainingSeconds == 0 {
			t.Errorf("A stale timer must not emit the zero tick")
		}
	}
}

func TestTimerIndependentCampaigns(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	shortID := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)
	longID := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)

	bus := newRecorder()
	s := NewService(conn, bus)
	s.interval = 5 * time.Millisecond
	defer s.StopAll()

	s.Start(shortID, 30*time.Millisecond)
	s.Start(longID, time.Hour)

	waitExpired(t, bus)

	if got := campaignStatus(t, s, shortID); got != models.StatusInactive {
		t.Errorf("Short campaign should have expired, got %s", got)
	}
	if got := campaignStatus(t, s, longID); got != models.StatusActive {
		t.Errorf("Long campaign should be untouched, got %s", got)
	}
	if !s.Running(longID) {
		t.Error("The long campaign's timer should still be running")
	}
}

func TestStopAll(t *testing.T) {
	conn := testutil.SetupTestDB(t)
	defer conn.Close()

	a := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)
	b := testutil.CreateTestCampaign(t, conn, models.StatusActive, 1)

	s := NewService(conn, newRecorder())
	s.interval = 5 * time.Millisecond

	s.Start(a, time.Hour)
	s.Start(b, time.Hour)
	s.StopAll()

	if s.Running(a) || s.Running(b) {
		t.Error("StopAll should cancel every timer")
	}
}
