// internal/session/tracker.go
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/models"
)

// ConnState is a player's liveness as seen by the tracker.
type ConnState int

const (
	// StateConnected means the player has a live transport session.
	StateConnected ConnState = iota
	// StateDisconnected means the transport closed and the reconnection
	// window is running.
	StateDisconnected
	// StateInactive means the reconnection window elapsed; the player is
	// still in the lobby but marked inactive.
	StateInactive
)

func (s ConnState) String() string {
	switch s {
	case StateConnected:
		return "CONNECTED"
	case StateDisconnected:
		return "DISCONNECTED"
	case StateInactive:
		return "INACTIVE"
	}
	return "UNKNOWN"
}

// PlayerStore is the slice of persistence the tracker needs to mirror the
// active flag. Writes are best effort and never block a state transition.
type PlayerStore interface {
	Player(ctx context.Context, id uuid.UUID) (*models.Player, error)
	SavePlayer(ctx context.Context, p *models.Player) error
}

type connRecord struct {
	state      ConnState
	changedAt  time.Time
	playerID   uuid.UUID
	lobbyID    uuid.UUID
	sess       Session
}

// TrackerConfig holds the tracker's timeouts and sweep cadences.
type TrackerConfig struct {
	// DisconnectTimeout is the reconnection window: how long a player may be
	// DISCONNECTED before the sweep marks them INACTIVE.
	DisconnectTimeout time.Duration
	// InactiveTimeout is the observation threshold for the slow sweep, which
	// only reports players INACTIVE for longer than this.
	InactiveTimeout time.Duration

	SweepInterval         time.Duration
	InactiveSweepInterval time.Duration
	StatsInterval         time.Duration
}

// DefaultTrackerConfig mirrors the shipped defaults: 60s reconnection window,
// 10m long-inactive threshold, 30s/5m/1m sweep cadences.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		DisconnectTimeout:     60 * time.Second,
		InactiveTimeout:       10 * time.Minute,
		SweepInterval:         30 * time.Second,
		InactiveSweepInterval: 5 * time.Minute,
		StatsInterval:         time.Minute,
	}
}

// Tracker is the per-player connection-state machine. The in-memory table is
// the single source of truth for current liveness; the persisted active flag
// is a best-effort mirror. Entries are never evicted, only aged.
type Tracker struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*connRecord

	players PlayerStore
	cfg     TrackerConfig
	log     *logrus.Logger

	// OnStatusChange is invoked after the active flag is persisted, so the
	// wiring layer can broadcast a status-change message to the lobby.
	// Assigned once at startup, before any connection is registered.
	OnStatusChange func(playerID, lobbyID uuid.UUID, active bool)

	// now is injectable for sweep tests.
	now func() time.Time
}

// NewTracker returns a tracker with an empty connection table.
func NewTracker(players PlayerStore, cfg TrackerConfig, log *logrus.Logger) *Tracker {
	return &Tracker{
		conns:   make(map[uuid.UUID]*connRecord),
		players: players,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// RegisterConnection records a live session for a player. Any prior state
// (first join, reconnect after disconnect, reconnect after going inactive)
// snaps back to CONNECTED and resets the state-change timestamp.
func (t *Tracker) RegisterConnection(playerID, lobbyID uuid.UUID, s Session) {
	t.mu.Lock()
	rec, exists := t.conns[playerID]
	if exists {
		rec.sess = s
		rec.lobbyID = lobbyID
		rec.state = StateConnected
		rec.changedAt = t.now()
	} else {
		t.conns[playerID] = &connRecord{
			state:     StateConnected,
			changedAt: t.now(),
			playerID:  playerID,
			lobbyID:   lobbyID,
			sess:      s,
		}
	}
	t.mu.Unlock()

	if exists {
		t.log.Infof("player %s reconnected to lobby %s", playerID, lobbyID)
	} else {
		t.log.Infof("player %s connected to lobby %s", playerID, lobbyID)
	}

	t.persistActive(playerID, true)
}

// HandleDisconnection starts the reconnection window for a player whose
// transport closed. Unknown players are ignored.
func (t *Tracker) HandleDisconnection(playerID uuid.UUID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.conns[playerID]
	if !ok {
		return
	}
	rec.state = StateDisconnected
	rec.changedAt = t.now()
	t.log.Infof("player %s disconnected, reconnection window started", playerID)
}

// IsConnected reports whether the player currently has a live session.
func (t *Tracker) IsConnected(playerID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.conns[playerID]
	return ok && rec.state == StateConnected
}

// State returns the tracked state for a player; ok is false for players the
// tracker has never seen.
func (t *Tracker) State(playerID uuid.UUID) (ConnState, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.conns[playerID]
	if !ok {
		return 0, false
	}
	return rec.state, true
}

// PlayerSession returns the live session for a connected player, or nil.
func (t *Tracker) PlayerSession(playerID uuid.UUID) Session {
	t.mu.Lock()
	defer t.mu.Unlock()
	rec, ok := t.conns[playerID]
	if ok && rec.state == StateConnected {
		return rec.sess
	}
	return nil
}

// SweepDisconnected ages DISCONNECTED players past the reconnection window
// into INACTIVE, persisting active=false for each. Called periodically by
// Run; exported so tests can drive it with a fake clock.
func (t *Tracker) SweepDisconnected() {
	var aged []uuid.UUID

	t.mu.Lock()
	for id, rec := range t.conns {
		if rec.state == StateDisconnected && t.now().Sub(rec.changedAt) > t.cfg.DisconnectTimeout {
			rec.state = StateInactive
			rec.changedAt = t.now()
			aged = append(aged, id)
		}
	}
	t.mu.Unlock()

	for _, id := range aged {
		t.log.Infof("player %s exceeded reconnection window of %s, marking inactive", id, t.cfg.DisconnectTimeout)
		t.persistActive(id, false)
	}
}

// SweepInactive reports players that have stayed INACTIVE beyond the long
// threshold. Observation only; no state changes.
func (t *Tracker) SweepInactive() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	count := 0
	for id, rec := range t.conns {
		if rec.state == StateInactive && t.now().Sub(rec.changedAt) > t.cfg.InactiveTimeout {
			count++
			t.log.Infof("player %s has been inactive for more than %s", id, t.cfg.InactiveTimeout)
		}
	}
	return count
}

// Stats returns the current per-state connection counts.
func (t *Tracker) Stats() (connected, disconnected, inactive int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, rec := range t.conns {
		switch rec.state {
		case StateConnected:
			connected++
		case StateDisconnected:
			disconnected++
		case StateInactive:
			inactive++
		}
	}
	return
}

// Run drives the periodic sweeps until ctx is cancelled. Start it once from
// main; the tickers are owned here rather than by any scheduling framework.
func (t *Tracker) Run(ctx context.Context) {
	sweep := time.NewTicker(t.cfg.SweepInterval)
	inactive := time.NewTicker(t.cfg.InactiveSweepInterval)
	stats := time.NewTicker(t.cfg.StatsInterval)
	defer sweep.Stop()
	defer inactive.Stop()
	defer stats.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			t.SweepDisconnected()
		case <-inactive.C:
			t.SweepInactive()
		case <-stats.C:
			c, d, i := t.Stats()
			t.log.WithFields(logrus.Fields{
				"connected":    c,
				"disconnected": d,
				"inactive":     i,
			}).Info("connection tracker stats")
		}
	}
}

// persistActive mirrors the liveness flag onto the player row and fires the
// status-change callback. Skips the write (and the broadcast) when the stored
// flag already matches.
func (t *Tracker) persistActive(playerID uuid.UUID, active bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := t.players.Player(ctx, playerID)
	if err != nil {
		t.log.Warnf("tracker: load player %s: %v", playerID, err)
		return
	}
	if p.Active == active {
		return
	}
	p.Active = active
	if err := t.players.SavePlayer(ctx, p); err != nil {
		t.log.Warnf("tracker: persist active=%v for player %s: %v", active, playerID, err)
		return
	}
	if t.OnStatusChange != nil {
		t.OnStatusChange(playerID, p.LobbyID, active)
	}
}
