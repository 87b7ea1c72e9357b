// internal/models/player.go
package models

import "github.com/google/uuid"

// Player represents a row in the players table. A player belongs to exactly
// one lobby at a time. Kicked players keep their row (kicked=true) so that a
// later reconnect with the same id can be treated as a rejoin.
type Player struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	LobbyID uuid.UUID `json:"lobbyId"`
	Host    bool      `json:"isHost"`
	Avatar  string    `json:"avatar"`

	// Active mirrors the connection tracker's view, best effort. The
	// in-memory tracker is authoritative for current liveness.
	Active bool `json:"active"`
	Kicked bool `json:"kicked"`
}

// DefaultAvatar is assigned when a client supplies none.
const DefaultAvatar = "avatar1"
