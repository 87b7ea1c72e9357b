// internal/session/session.go
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Session is the core's view of one live transport connection. The WebSocket
// adapter in internal/handlers implements it; tests use in-memory fakes.
// Session identity is per-connection and distinct from player identity.
type Session interface {
	// ID is a stable identifier for this connection.
	ID() string
	// Send enqueues one outbound message. It must not block; implementations
	// drop (and log) when the outbound buffer is full or closed.
	Send(ctx context.Context, msg interface{}) error
	// Close tears the connection down with a reason visible to the client.
	Close(reason string) error
	// Open reports whether the connection is still usable.
	Open() bool
}

// Registry tracks which sessions belong to which lobby, and which player each
// session authenticated as. It is one of the two process-wide mutable shared
// structures (the other is the round-timer table) and must tolerate
// concurrent register/unregister across many lobbies.
type Registry struct {
	mu sync.Mutex
	// lobby id -> session id -> session
	lobbies map[uuid.UUID]map[string]Session
	// session id -> player id
	players map[string]uuid.UUID
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		lobbies: make(map[uuid.UUID]map[string]Session),
		players: make(map[string]uuid.UUID),
	}
}

// Register adds a session to a lobby's fan-out set.
func (r *Registry) Register(lobbyID uuid.UUID, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.lobbies[lobbyID]
	if !ok {
		set = make(map[string]Session)
		r.lobbies[lobbyID] = set
	}
	set[s.ID()] = s
}

// Unregister removes a session from a lobby and forgets its player binding.
func (r *Registry) Unregister(lobbyID uuid.UUID, s Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.lobbies[lobbyID]; ok {
		delete(set, s.ID())
		if len(set) == 0 {
			delete(r.lobbies, lobbyID)
		}
	}
	delete(r.players, s.ID())
}

// LobbySessions returns a snapshot of the sessions registered for a lobby.
func (r *Registry) LobbySessions(lobbyID uuid.UUID) []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.lobbies[lobbyID]
	out := make([]Session, 0, len(set))
	for _, s := range set {
		out = append(out, s)
	}
	return out
}

// BindPlayer records which player a session speaks for.
func (r *Registry) BindPlayer(s Session, playerID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[s.ID()] = playerID
}

// PlayerID returns the player a session is bound to, if any.
func (r *Registry) PlayerID(s Session) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.players[s.ID()]
	return id, ok
}

// Broadcast sends a message to every session in a lobby. Send errors are the
// implementation's problem (non-blocking, logged there); fan-out never fails.
func (r *Registry) Broadcast(ctx context.Context, lobbyID uuid.UUID, msg interface{}) {
	for _, s := range r.LobbySessions(lobbyID) {
		if s.Open() {
			_ = s.Send(ctx, msg)
		}
	}
}
