// internal/game/timer.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoundEndHandler is invoked when a round's timer expires. Wired to the
// state machine's round-end path at startup.
type RoundEndHandler func(lobbyID, roundID uuid.UUID)

type timerHandle struct {
	lobbyID uuid.UUID
	roundID uuid.UUID
	timer   *time.Timer
}

// TimerScheduler owns at most one pending round timer per lobby. Scheduling
// replaces any existing timer for the lobby; expiry claims the handle out of
// the table before running the handler, so a stale timer that fires after a
// replace or cancel is a no-op. This table and the connection tracker's are
// the only process-wide mutable shared structures.
type TimerScheduler struct {
	mu     sync.Mutex
	timers map[uuid.UUID]*timerHandle

	store Store
	log   *logrus.Logger

	// OnRoundEnd receives expiry callbacks. Assigned once during wiring,
	// before any timer is scheduled.
	OnRoundEnd RoundEndHandler

	// afterFunc is swappable for fake-clock tests.
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// NewTimerScheduler returns a scheduler with an empty timer table.
func NewTimerScheduler(store Store, log *logrus.Logger) *TimerScheduler {
	return &TimerScheduler{
		timers:    make(map[uuid.UUID]*timerHandle),
		store:     store,
		log:       log,
		afterFunc: time.AfterFunc,
	}
}

// Schedule arms the round timer for a lobby, replacing any pending one. The
// round is re-fetched so the timer runs for the persisted duration rather
// than whatever a stale round object upstream carried.
func (s *TimerScheduler) Schedule(ctx context.Context, lobbyID, roundID uuid.UUID) error {
	round, err := s.store.Round(ctx, roundID)
	if err != nil {
		return fmt.Errorf("schedule round timer: %w", err)
	}
	duration := time.Duration(round.DurationSeconds) * time.Second

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.timers[lobbyID]; ok {
		old.timer.Stop()
		delete(s.timers, lobbyID)
	}

	h := &timerHandle{lobbyID: lobbyID, roundID: roundID}
	h.timer = s.afterFunc(duration, func() {
		s.fire(h)
	})
	s.timers[lobbyID] = h

	s.log.Infof("round timer armed for lobby %s round %s (%s)", lobbyID, roundID, duration)
	return nil
}

// Cancel stops and removes the lobby's pending timer, if any. Safe to call
// when nothing is pending.
func (s *TimerScheduler) Cancel(lobbyID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.timers[lobbyID]; ok {
		h.timer.Stop()
		delete(s.timers, lobbyID)
		s.log.Infof("round timer cancelled for lobby %s", lobbyID)
	}
}

// Pending reports whether a timer is currently armed for the lobby.
func (s *TimerScheduler) Pending(lobbyID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[lobbyID]
	return ok
}

// fire runs on timer expiry. Only the handle still registered for its lobby
// may proceed; claiming removes it, so the explicit early-end path racing
// this one finds nothing left to cancel and exactly one side runs the
// handler.
func (s *TimerScheduler) fire(h *timerHandle) {
	s.mu.Lock()
	current, ok := s.timers[h.lobbyID]
	if !ok || current != h {
		s.mu.Unlock()
		s.log.Debugf("stale round timer for lobby %s round %s ignored", h.lobbyID, h.roundID)
		return
	}
	delete(s.timers, h.lobbyID)
	s.mu.Unlock()

	s.log.Infof("round timer expired for lobby %s round %s", h.lobbyID, h.roundID)
	if s.OnRoundEnd != nil {
		s.OnRoundEnd(h.lobbyID, h.roundID)
	}
}
