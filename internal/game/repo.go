// internal/game/repo.go
package game

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/guesshole/guesshole/internal/models"
)

// ErrNotFound is returned when a referenced entity does not resolve. The
// database adapter maps pgx.ErrNoRows onto it; callers treat it as an
// abort-without-retry condition.
var ErrNotFound = errors.New("not found")

// Store is the persistence collaborator for the game runtime. The concrete
// implementation lives in internal/database; tests use an in-memory fake.
type Store interface {
	Lobby(ctx context.Context, id uuid.UUID) (*models.Lobby, error)
	SaveLobby(ctx context.Context, l *models.Lobby) error

	Player(ctx context.Context, id uuid.UUID) (*models.Player, error)
	SavePlayer(ctx context.Context, p *models.Player) error
	// LobbyPlayers returns the lobby's roster, excluding kicked players.
	LobbyPlayers(ctx context.Context, lobbyID uuid.UUID) ([]*models.Player, error)

	GameState(ctx context.Context, lobbyID uuid.UUID) (*models.GameState, error)
	SaveGameState(ctx context.Context, gs *models.GameState) error

	// CreateGameInstance persists the instance and its rounds atomically.
	CreateGameInstance(ctx context.Context, gi *models.GameInstance, rounds []*models.Round) error
	// SaveGameInstancePlayers records which players a game instance was
	// started with, one row per player.
	SaveGameInstancePlayers(ctx context.Context, gips []*models.GameInstancePlayer) error
	Round(ctx context.Context, id uuid.UUID) (*models.Round, error)
	InstanceRounds(ctx context.Context, gameInstanceID uuid.UUID) ([]*models.Round, error)

	// RandomRoundTemplates picks up to n templates at random, optionally
	// filtered by geography type.
	RandomRoundTemplates(ctx context.Context, n int, geographyType string) ([]*models.RoundTemplate, error)

	// SaveGuess persists the guess and its multiplier rows atomically.
	SaveGuess(ctx context.Context, g *models.Guess) error
	RoundGuesses(ctx context.Context, roundID uuid.UUID) ([]*models.Guess, error)
	CountRoundGuesses(ctx context.Context, roundID uuid.UUID) (int, error)
	InstanceGuesses(ctx context.Context, gameInstanceID uuid.UUID) ([]*models.Guess, error)

	LocationPoint(ctx context.Context, id int64) (*models.LocationPoint, error)
	// ResolveLocation reverse-geocodes a coordinate into its administrative
	// hierarchy, inserting a new row when the coordinate is new.
	ResolveLocation(ctx context.Context, lat, lon float64) (*models.LocationPoint, error)
}

// Notifier is the outbound half of the transport boundary. The wiring layer
// adapts the session registry and connection tracker behind it; tests record
// the calls.
type Notifier interface {
	// Broadcast fans a message out to every open session in a lobby.
	Broadcast(ctx context.Context, lobbyID uuid.UUID, msg interface{})
	// SendToPlayer delivers to the player's live session, if any. Returns
	// false when the player has no connected session.
	SendToPlayer(ctx context.Context, playerID uuid.UUID, msg interface{}) bool
	// ClosePlayer force-closes the player's live session with a reason.
	ClosePlayer(playerID uuid.UUID, reason string)
}

// EventSink receives completed-guess and round-end records for the analytics
// consumer. Publishing is best effort; implementations log and swallow
// failures. A nil sink is valid and means events are discarded.
type EventSink interface {
	PublishGuess(ctx context.Context, g *models.Guess)
	PublishRoundEnd(ctx context.Context, lobbyID, gameInstanceID, roundID uuid.UUID)
}
