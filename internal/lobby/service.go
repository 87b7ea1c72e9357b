// internal/lobby/service.go
package lobby

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/models"
)

// Store is the persistence the lobby service needs. *database.Store
// implements it.
type Store interface {
	SaveLobby(ctx context.Context, l *models.Lobby) error
	SaveGameState(ctx context.Context, gs *models.GameState) error
	LobbyByCode(ctx context.Context, code string) (*models.Lobby, error)
	ShortCodeExists(ctx context.Context, code string) (bool, error)
}

// Ambiguous characters (0/O, 1/I) are left out of join codes.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const codeLength = 6

// maxCodeAttempts bounds the retry loop on join-code collisions.
const maxCodeAttempts = 10

// Service creates lobbies and resolves join codes.
type Service struct {
	store Store
	log   *logrus.Logger

	// randIntn is swappable for deterministic code generation in tests.
	randIntn func(n int) int
}

func NewService(store Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log, randIntn: rand.Intn}
}

// Create persists a new lobby with a unique join code and its initial LOBBY
// game state.
func (s *Service) Create(ctx context.Context, name, privacy string) (*models.Lobby, error) {
	if name == "" {
		name = "New Lobby"
	}
	if privacy != "private" {
		privacy = "public"
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	l := &models.Lobby{
		ID:        uuid.New(),
		Name:      name,
		Privacy:   privacy,
		ShortCode: code,
	}
	if err := s.store.SaveLobby(ctx, l); err != nil {
		return nil, fmt.Errorf("persist lobby: %w", err)
	}
	if err := s.store.SaveGameState(ctx, models.NewGameState(l.ID)); err != nil {
		return nil, fmt.Errorf("persist initial game state: %w", err)
	}

	s.log.Infof("created lobby %s (%s) with code %s", l.ID, l.Name, l.ShortCode)
	return l, nil
}

// ByCode resolves a join code, case-insensitively.
func (s *Service) ByCode(ctx context.Context, code string) (*models.Lobby, error) {
	return s.store.LobbyByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := s.randomCode()
		taken, err := s.store.ShortCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check join code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique join code after %d attempts", maxCodeAttempts)
}

func (s *Service) randomCode() string {
	var b strings.Builder
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeAlphabet[s.randIntn(len(codeAlphabet))])
	}
	return b.String()
}
