// internal/models/round.go
package models

import "github.com/google/uuid"

// Round is one guessing challenge inside a game instance. The target
// coordinates are never serialized; while a round is active clients receive
// the client-safe copy, and once it ends the resolved LocationPoint is
// attached instead.
type Round struct {
	ID             uuid.UUID `json:"id"`
	GameInstanceID uuid.UUID `json:"gameInstanceId"`
	Order          int       `json:"roundOrder"` // dense 0..N-1 within the game instance

	VideoID         string `json:"youtubeVideoId"`
	StartSeconds    int    `json:"startTimeSeconds"`
	DurationSeconds int    `json:"durationSeconds"`

	Latitude  float64 `json:"-"`
	Longitude float64 `json:"-"`

	LocationPointID int64          `json:"locationPointId,omitempty"`
	Location        *LocationPoint `json:"location,omitempty"`
}

// ClientSafe returns a copy with the target location stripped, for broadcast
// while the round is still being played.
func (r *Round) ClientSafe() *Round {
	safe := *r
	safe.Latitude = 0
	safe.Longitude = 0
	safe.LocationPointID = 0
	safe.Location = nil
	return &safe
}

// GameInstance is one played-through game: a fixed ordered list of rounds
// created atomically at game start.
type GameInstance struct {
	ID       uuid.UUID `json:"id"`
	GameType string    `json:"gameType"`
	Rounds   []*Round  `json:"rounds,omitempty"`
}

// GameInstancePlayer links a lobby player to a game instance they were
// present for at game start.
type GameInstancePlayer struct {
	ID             uuid.UUID `json:"id"`
	GameInstanceID uuid.UUID `json:"gameInstanceId"`
	PlayerID       uuid.UUID `json:"playerId"`
}

// RoundTemplate is a curated source clip a round can be minted from.
type RoundTemplate struct {
	ID                 uuid.UUID `json:"id"`
	VideoID            string    `json:"youtubeVideoId"`
	StartSeconds       int       `json:"startTime"`
	VideoLengthSeconds int       `json:"videoLength"`
	Latitude           float64   `json:"latitude"`
	Longitude          float64   `json:"longitude"`
	LocationPointID    int64     `json:"locationPointId"`
}
