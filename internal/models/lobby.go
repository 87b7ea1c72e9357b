// internal/models/lobby.go
package models

import "github.com/google/uuid"

// Lobby represents a row in the lobbies table. A lobby outlives individual
// games; the same lobby may run many successive game instances.
type Lobby struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Privacy   string    `json:"privacy"` // 'public' or 'private'
	ShortCode string    `json:"shortCode"`

	// GameConfig holds the settings of the most recently started game.
	// Nil until the host has started a game at least once.
	GameConfig *GameConfiguration `json:"gameConfiguration,omitempty"`
}

// GameConfiguration captures the host-chosen settings for one game.
type GameConfiguration struct {
	ID                 uuid.UUID `json:"id"`
	GameType           string    `json:"gameType"`
	NumRounds          int       `json:"numRounds"`
	RoundLengthSeconds int       `json:"roundLengthSeconds"`
	GeographyType      string    `json:"geographyType"`
}

// GameTypeCityGuesser is the only game type the runtime currently drives.
const GameTypeCityGuesser = "CITY_GUESSER"
