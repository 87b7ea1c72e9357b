// internal/models/guess.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// Guess is a player's coordinate submission for one round, with its resolved
// location, distance to target and computed scores.
type Guess struct {
	ID             uuid.UUID `json:"id"`
	PlayerID       uuid.UUID `json:"playerId"`
	RoundID        uuid.UUID `json:"roundId"`
	GameInstanceID uuid.UUID `json:"gameInstanceId"`

	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`

	LocationPointID int64          `json:"locationPointId,omitempty"`
	Location        *LocationPoint `json:"location,omitempty"`

	DistanceKm float64 `json:"distanceKm"`
	BaseScore  int     `json:"baseScore"`
	Score      int     `json:"score"`

	Multipliers []ScoreMultiplier `json:"scoreMultipliers"`

	// Timing within the round: total round length and seconds elapsed from
	// round start to submission.
	RoundDuration int `json:"roundDuration"`
	GuessTime     int `json:"guessTime"`

	CreatedAt time.Time `json:"timestamp"`
}

// MultiplierKind tags why a bonus applied.
type MultiplierKind string

const (
	MultiplierTriggerHappy   MultiplierKind = "TRIGGER_HAPPY"
	MultiplierFirstGuess     MultiplierKind = "FIRST_GUESS"
	MultiplierCorrectCountry MultiplierKind = "CORRECT_COUNTRY"
	MultiplierCorrectRegion  MultiplierKind = "CORRECT_REGION"
	MultiplierCorrectLocale  MultiplierKind = "CORRECT_LOCALE"
)

// ScoreMultiplier is an immutable bonus tag attached to a guess. Multiple
// multipliers stack multiplicatively.
type ScoreMultiplier struct {
	ID          uuid.UUID      `json:"id"`
	GuessID     uuid.UUID      `json:"guessId"`
	Kind        MultiplierKind `json:"multiplierType"`
	Value       float64        `json:"multiplierValue"`
	DisplayName string         `json:"displayName"`
	Tooltip     string         `json:"tooltip"`
}
