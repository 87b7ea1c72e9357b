// internal/game/messages.go
package game

import (
	"time"

	"github.com/google/uuid"

	"github.com/guesshole/guesshole/internal/models"
)

// Outbound message kinds. Every outbound frame carries one of these in its
// "type" field.
const (
	KindPlayerIDAssigned   = "PLAYER_ID_ASSIGNED"
	KindPlayerJoined       = "PLAYER_JOINED"
	KindPlayersUpdate      = "PLAYERS_UPDATE"
	KindPlayerUpdated      = "PLAYER_UPDATED"
	KindPlayerStatusChange = "PLAYER_STATUS_CHANGE"
	KindGameState          = "GAME_STATE"
	KindGuessResult        = "GUESS_RESULT"
	KindHeartbeat          = "HEARTBEAT"
)

// PlayerIDAssigned tells a fresh session which player identity it received.
type PlayerIDAssigned struct {
	Type     string    `json:"type"`
	PlayerID uuid.UUID `json:"playerId"`
}

func NewPlayerIDAssigned(playerID uuid.UUID) PlayerIDAssigned {
	return PlayerIDAssigned{Type: KindPlayerIDAssigned, PlayerID: playerID}
}

// PlayerJoined announces a new (or rejoining) player to the lobby.
type PlayerJoined struct {
	Type   string         `json:"type"`
	Player *models.Player `json:"player"`
}

func NewPlayerJoined(p *models.Player) PlayerJoined {
	return PlayerJoined{Type: KindPlayerJoined, Player: p}
}

// PlayersUpdate carries the full lobby roster (kicked players excluded).
type PlayersUpdate struct {
	Type    string           `json:"type"`
	Players []*models.Player `json:"players"`
}

func NewPlayersUpdate(players []*models.Player) PlayersUpdate {
	return PlayersUpdate{Type: KindPlayersUpdate, Players: players}
}

// PlayerUpdated carries one player's new state plus the list of fields that
// changed, so clients can animate just what moved.
type PlayerUpdated struct {
	Type          string         `json:"type"`
	Player        *models.Player `json:"player"`
	UpdatedFields []string       `json:"updatedFields"`
}

func NewPlayerUpdated(p *models.Player, fields []string) PlayerUpdated {
	return PlayerUpdated{Type: KindPlayerUpdated, Player: p, UpdatedFields: fields}
}

// PlayerStatusChange reports a liveness flip detected by the tracker.
type PlayerStatusChange struct {
	Type     string    `json:"type"`
	PlayerID uuid.UUID `json:"playerId"`
	Active   bool      `json:"active"`
}

func NewPlayerStatusChange(playerID uuid.UUID, active bool) PlayerStatusChange {
	return PlayerStatusChange{Type: KindPlayerStatusChange, PlayerID: playerID, Active: active}
}

// PlayerScore is one scoreboard row: the player's guess result for the round
// just played (nil if they never guessed) and their running total.
type PlayerScore struct {
	Player     *models.Player `json:"player"`
	RoundScore int            `json:"roundScore"`
	TotalScore int            `json:"totalScore"`
	Guess      *models.Guess  `json:"guess,omitempty"`
}

// GameStateMessage is the canonical lobby snapshot, rebuilt from persisted
// state on every broadcast. CurrentRound is client-safe while a round is
// being played and carries the resolved location once it ends.
type GameStateMessage struct {
	Type           string                    `json:"type"`
	State          string                    `json:"state"`
	GameInstanceID uuid.UUID                 `json:"gameInstanceId,omitempty"`
	CurrentRound   *models.Round             `json:"currentRound,omitempty"`
	TotalRounds    int                       `json:"totalRounds,omitempty"`
	RoundOrder     int                       `json:"roundOrder"`
	LastRound      bool                      `json:"lastRound"`
	PlayerScores   []PlayerScore             `json:"playerScores,omitempty"`
	GameConfig     *models.GameConfiguration `json:"gameConfiguration,omitempty"`
}

// GuessResult carries one player's scored guess. Sent to the submitter, and
// to lobby members who have already guessed the round themselves.
type GuessResult struct {
	Type           string                   `json:"type"`
	GuessID        uuid.UUID                `json:"guessId"`
	RoundID        uuid.UUID                `json:"roundId"`
	Player         *models.Player           `json:"player"`
	GuessLocation  *models.LocationPoint    `json:"guessLocation,omitempty"`
	ActualLocation *models.LocationPoint    `json:"actualLocation,omitempty"`
	Latitude       float64                  `json:"latitude"`
	Longitude      float64                  `json:"longitude"`
	DistanceKm     float64                  `json:"distanceKm"`
	BaseScore      int                      `json:"baseScore"`
	Score          int                      `json:"score"`
	Multipliers    []models.ScoreMultiplier `json:"scoreMultipliers"`
	GuessTime      int                      `json:"guessTime"`
}

// Heartbeat is the periodic application-level keep-alive.
type Heartbeat struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
}

func NewHeartbeat(now time.Time) Heartbeat {
	return Heartbeat{Type: KindHeartbeat, Timestamp: now}
}
