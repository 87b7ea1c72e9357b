// internal/models/game_state.go
package models

import "github.com/google/uuid"

// Lobby lifecycle states. Exactly one GameState row exists per lobby and is
// overwritten in place on every transition.
const (
	StateLobby           = "LOBBY"
	StateGameInProgress  = "GAME_IN_PROGRESS"
	StateRoundScoreboard = "ROUND_SCOREBOARD"
)

// GameState is the single mutable pointer per lobby: which state the lobby is
// in, which game instance is running and which round is current.
type GameState struct {
	ID             uuid.UUID `json:"id"`
	LobbyID        uuid.UUID `json:"lobbyId"`
	State          string    `json:"state"`
	GameInstanceID uuid.UUID `json:"gameInstanceId"` // uuid.Nil outside a game
	RoundID        uuid.UUID `json:"roundId"`        // uuid.Nil outside a game
}

// NewGameState returns the initial LOBBY state for a freshly created lobby.
func NewGameState(lobbyID uuid.UUID) *GameState {
	return &GameState{
		ID:      uuid.New(),
		LobbyID: lobbyID,
		State:   StateLobby,
	}
}
