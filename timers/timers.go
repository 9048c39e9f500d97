// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package timers

import (
	"database/sql"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/electoral-live/models"
)

// Broadcaster is the subset of the hub the timer service emits through.
type Broadcaster interface {
	EmitCampaignStatusChange(campaignID string, isActive bool)
	EmitTimeUpdate(campaignID string, remainingSeconds int)
}

// Service owns the running countdown for each active campaign. At most
// one timer exists per campaign id; starting a new one always stops the
// old one first.
type Service struct {
	db  *sql.DB
	bus Broadcaster

	// interval is one second in production; tests shorten it.
	interval time.Duration

	mu     sync.Mutex
	active map[string]*campaignTimer
}

type campaignTimer struct {
	campaignID string
	endTime    time.Time
	stop       chan struct{}
}

func NewService(db *sql.DB, bus Broadcaster) *Service {
	return &Service{
		db:       db,
		bus:      bus,
		interval: time.Second,
		active:   make(map[string]*campaignTimer),
	}
}

// Start begins a countdown for a campaign. Any timer already running for
// the same campaign is replaced, not stacked; a replaced timer that has
// already passed its stop check exits without expiring the campaign.
func (s *Service) Start(campaignID string, duration time.Duration) {
	s.mu.Lock()
	if old, ok := s.active[campaignID]; ok {
		close(old.stop)
	}
	t := &campaignTimer{
		campaignID: campaignID,
		endTime:    time.Now().Add(duration),
		stop:       make(chan struct{}),
	}
	s.active[campaignID] = t
	s.mu.Unlock()

	go s.run(t)

	slog.Info("campaign timer started", "campaign_id", campaignID, "duration", duration)
}

// Stop cancels a campaign's countdown without touching its status.
func (s *Service) Stop(campaignID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.active[campaignID]; ok {
		close(t.stop)
		delete(s.active, campaignID)
		slog.Info("campaign timer stopped", "campaign_id", campaignID)
	}
}

// StopAll cancels every running countdown. Used at shutdown.
func (s *Service) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.active {
		close(t.stop)
		delete(s.active, id)
	}
}

// Running reports whether a campaign currently has a live timer.
func (s *Service) Running(campaignID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.active[campaignID]
	return ok
}

// run ticks once per interval until the countdown expires or is stopped.
// On expiry the campaign is deactivated in storage before any emission;
// if that write fails, the tick loop logs it and retries on the next
// tick rather than dying.
func (s *Service) run(t *campaignTimer) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			remaining := time.Until(t.endTime)
			if remaining > 0 {
				// Round up so 0 is only ever emitted at expiry.
				secs := int((remaining + time.Second - 1) / time.Second)
				s.bus.EmitTimeUpdate(t.campaignID, secs)
				continue
			}

			// A replaced timer can reach this tick after its stop
			// channel closes; only the registered timer may expire
			// the campaign.
			if !s.current(t) {
				return
			}

			if err := s.deactivate(t.campaignID); err != nil {
				slog.Error("failed to deactivate expired campaign, will retry",
					"campaign_id", t.campaignID, "error", err)
				continue
			}

			s.bus.EmitCampaignStatusChange(t.campaignID, false)
			s.bus.EmitTimeUpdate(t.campaignID, 0)
			s.remove(t)
			slog.Info("campaign expired", "campaign_id", t.campaignID)
			return
		}
	}
}

func (s *Service) deactivate(campaignID string) error {
	_, err := s.db.Exec(`
		UPDATE campaign SET status = $1 WHERE id = $2
	`, models.StatusInactive, campaignID)
	return err
}

// current reports whether t is still the registered timer for its campaign.
func (s *Service) current(t *campaignTimer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[t.campaignID] == t
}

// remove drops the timer from the active map, unless it has already been
// replaced by a newer one for the same campaign.
func (s *Service) remove(t *campaignTimer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active[t.campaignID] == t {
		delete(s.active, t.campaignID)
	}
}
