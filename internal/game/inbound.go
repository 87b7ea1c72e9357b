// internal/game/inbound.go
package game

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Inbound message kinds. Clients tag every frame with one of these in its
// "type" field; anything else is dropped by the router.
const (
	KindUpdatePlayer    = "UPDATE_PLAYER"
	KindStartGame       = "START_GAME"
	KindGuessSubmitted  = "GUESS_SUBMITTED"
	KindStartNextRound  = "START_NEXT_ROUND"
	KindReturnToLobby   = "RETURN_TO_LOBBY"
	KindKickPlayer      = "KICK_PLAYER"
	KindPlayerReconnect = "PLAYER_RECONNECT"
	KindHeartbeatAck    = "HEARTBEAT_ACK"
)

// UpdatePlayerMessage creates the session's player on first receipt and
// updates name/avatar afterwards.
type UpdatePlayerMessage struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// StartGameMessage carries the host-chosen game settings.
type StartGameMessage struct {
	NumRounds          int    `json:"numRounds"`
	RoundLengthSeconds int    `json:"roundLength"`
	GeographyType      string `json:"geoType"`
}

// GuessSubmittedMessage is one coordinate submission. RoundDuration and
// GuessTime are client-measured seconds; the server re-reads the persisted
// round duration for timer purposes but scores with what the client played.
type GuessSubmittedMessage struct {
	RoundID       uuid.UUID `json:"roundId"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	RoundDuration int       `json:"roundDuration"`
	GuessTime     int       `json:"guessTime"`
}

// StartNextRoundMessage echoes the id of the round the client just saw end.
type StartNextRoundMessage struct {
	CurrentRoundID uuid.UUID `json:"currentRoundId"`
}

// KickPlayerMessage names the player the host wants removed.
type KickPlayerMessage struct {
	PlayerID uuid.UUID `json:"playerId"`
}

// PlayerReconnectMessage binds a new session to an existing player identity.
type PlayerReconnectMessage struct {
	PlayerID uuid.UUID `json:"playerId"`
}

// decodeKind reads just the type tag so the router can switch before
// decoding the full payload.
func decodeKind(data []byte) (string, error) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("decode message envelope: %w", err)
	}
	if env.Type == "" {
		return "", fmt.Errorf("message has no type tag")
	}
	return env.Type, nil
}
