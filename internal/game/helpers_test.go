// internal/game/helpers_test.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/models"
	"github.com/guesshole/guesshole/internal/session"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

// fakeStore is an in-memory Store for the service tests.
type fakeStore struct {
	mu          sync.Mutex
	lobbies     map[uuid.UUID]*models.Lobby
	players     map[uuid.UUID]*models.Player
	playerOrder []uuid.UUID
	states      map[uuid.UUID]*models.GameState
	rounds      map[uuid.UUID]*models.Round
	gamePlayers []*models.GameInstancePlayer
	templates   []*models.RoundTemplate
	guesses     []*models.Guess
	locations   map[int64]*models.LocationPoint
	nextLocID   int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		lobbies:   make(map[uuid.UUID]*models.Lobby),
		players:   make(map[uuid.UUID]*models.Player),
		states:    make(map[uuid.UUID]*models.GameState),
		rounds:    make(map[uuid.UUID]*models.Round),
		locations: make(map[int64]*models.LocationPoint),
		nextLocID: 1000,
	}
}

func (f *fakeStore) addLobby() *models.Lobby {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := &models.Lobby{ID: uuid.New(), Name: "test lobby", Privacy: "public", ShortCode: "ABC123"}
	f.lobbies[l.ID] = l
	f.states[l.ID] = models.NewGameState(l.ID)
	return l
}

func (f *fakeStore) addPlayer(lobbyID uuid.UUID, name string, host, active bool) *models.Player {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := &models.Player{ID: uuid.New(), Name: name, LobbyID: lobbyID, Host: host, Avatar: models.DefaultAvatar, Active: active}
	f.players[p.ID] = p
	f.playerOrder = append(f.playerOrder, p.ID)
	return p
}

func (f *fakeStore) addTemplate(videoLength int, lat, lon float64) *models.RoundTemplate {
	f.mu.Lock()
	defer f.mu.Unlock()
	loc := &models.LocationPoint{ID: f.nextLocID, Latitude: lat, Longitude: lon}
	f.locations[loc.ID] = loc
	f.nextLocID++
	tpl := &models.RoundTemplate{
		ID:                 uuid.New(),
		VideoID:            fmt.Sprintf("video-%d", len(f.templates)),
		StartSeconds:       30,
		VideoLengthSeconds: videoLength,
		Latitude:           lat,
		Longitude:          lon,
		LocationPointID:    loc.ID,
	}
	f.templates = append(f.templates, tpl)
	return tpl
}

func (f *fakeStore) Lobby(_ context.Context, id uuid.UUID) (*models.Lobby, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lobbies[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (f *fakeStore) SaveLobby(_ context.Context, l *models.Lobby) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *l
	f.lobbies[l.ID] = &cp
	return nil
}

func (f *fakeStore) Player(_ context.Context, id uuid.UUID) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) SavePlayer(_ context.Context, p *models.Player) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.players[p.ID]; !ok {
		f.playerOrder = append(f.playerOrder, p.ID)
	}
	cp := *p
	f.players[p.ID] = &cp
	return nil
}

func (f *fakeStore) LobbyPlayers(_ context.Context, lobbyID uuid.UUID) ([]*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Player
	for _, id := range f.playerOrder {
		p := f.players[id]
		if p.LobbyID == lobbyID && !p.Kicked {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) GameState(_ context.Context, lobbyID uuid.UUID) (*models.GameState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gs, ok := f.states[lobbyID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *gs
	return &cp, nil
}

func (f *fakeStore) SaveGameState(_ context.Context, gs *models.GameState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *gs
	f.states[gs.LobbyID] = &cp
	return nil
}

func (f *fakeStore) CreateGameInstance(_ context.Context, gi *models.GameInstance, rounds []*models.Round) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range rounds {
		cp := *r
		f.rounds[r.ID] = &cp
	}
	return nil
}

func (f *fakeStore) SaveGameInstancePlayers(_ context.Context, gips []*models.GameInstancePlayer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, gip := range gips {
		cp := *gip
		f.gamePlayers = append(f.gamePlayers, &cp)
	}
	return nil
}

func (f *fakeStore) Round(_ context.Context, id uuid.UUID) (*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (f *fakeStore) InstanceRounds(_ context.Context, gameInstanceID uuid.UUID) ([]*models.Round, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Round
	for _, r := range f.rounds {
		if r.GameInstanceID == gameInstanceID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) RandomRoundTemplates(_ context.Context, n int, _ string) ([]*models.RoundTemplate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n > len(f.templates) {
		n = len(f.templates)
	}
	out := make([]*models.RoundTemplate, n)
	copy(out, f.templates[:n])
	return out, nil
}

func (f *fakeStore) SaveGuess(_ context.Context, g *models.Guess) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *g
	f.guesses = append(f.guesses, &cp)
	return nil
}

func (f *fakeStore) RoundGuesses(_ context.Context, roundID uuid.UUID) ([]*models.Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Guess
	for _, g := range f.guesses {
		if g.RoundID == roundID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) CountRoundGuesses(_ context.Context, roundID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, g := range f.guesses {
		if g.RoundID == roundID {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) InstanceGuesses(_ context.Context, gameInstanceID uuid.UUID) ([]*models.Guess, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Guess
	for _, g := range f.guesses {
		if g.GameInstanceID == gameInstanceID {
			cp := *g
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeStore) LocationPoint(_ context.Context, id int64) (*models.LocationPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lp, ok := f.locations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *lp
	return &cp, nil
}

func (f *fakeStore) ResolveLocation(_ context.Context, lat, lon float64) (*models.LocationPoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lp := &models.LocationPoint{ID: f.nextLocID, Latitude: lat, Longitude: lon}
	f.nextLocID++
	f.locations[lp.ID] = lp
	cp := *lp
	return &cp, nil
}

// sentMessage records one notifier call, in order.
type sentMessage struct {
	// broadcast is true for lobby fan-outs; otherwise playerID is set.
	broadcast bool
	playerID  uuid.UUID
	msg       interface{}
}

// fakeNotifier records every outbound call in order.
type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentMessage
	closed []uuid.UUID
}

func (n *fakeNotifier) Broadcast(_ context.Context, _ uuid.UUID, msg interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{broadcast: true, msg: msg})
}

func (n *fakeNotifier) SendToPlayer(_ context.Context, playerID uuid.UUID, msg interface{}) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{playerID: playerID, msg: msg})
	return true
}

func (n *fakeNotifier) ClosePlayer(playerID uuid.UUID, _ string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, playerID)
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]sentMessage, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
	n.closed = nil
}

// broadcasts filters the record down to lobby fan-outs.
func (n *fakeNotifier) broadcasts() []interface{} {
	var out []interface{}
	for _, m := range n.messages() {
		if m.broadcast {
			out = append(out, m.msg)
		}
	}
	return out
}

// fakeRegistrar records tracker registrations.
type fakeRegistrar struct {
	mu         sync.Mutex
	registered []uuid.UUID
}

func (r *fakeRegistrar) RegisterConnection(playerID, _ uuid.UUID, _ session.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registered = append(r.registered, playerID)
}

func (r *fakeRegistrar) HandleDisconnection(uuid.UUID) {}

// fakeSession records frames sent directly to one connection.
type fakeSession struct {
	mu   sync.Mutex
	id   string
	sent []interface{}
}

func (s *fakeSession) ID() string { return s.id }

func (s *fakeSession) Send(_ context.Context, msg interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

func (s *fakeSession) Close(string) error { return nil }
func (s *fakeSession) Open() bool         { return true }

// fakeClock captures AfterFunc calls so tests can fire timers by hand,
// including stale ones that a real clock would have dropped.
type fakeClock struct {
	mu        sync.Mutex
	scheduled []scheduledTimer
}

type scheduledTimer struct {
	d time.Duration
	f func()
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) *time.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scheduled = append(c.scheduled, scheduledTimer{d: d, f: f})
	// The returned timer never fires on its own; tests drive f directly.
	t := time.NewTimer(24 * time.Hour)
	t.Stop()
	return t
}

func (c *fakeClock) timers() []scheduledTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]scheduledTimer, len(c.scheduled))
	copy(out, c.scheduled)
	return out
}

func (c *fakeClock) fire(i int) {
	c.mu.Lock()
	f := c.scheduled[i].f
	c.mu.Unlock()
	f()
}
