// internal/database/lobbies.go
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/guesshole/guesshole/internal/game"
	"github.com/guesshole/guesshole/internal/models"
)

// Lobby fetches a lobby by id, including its latest game configuration.
func (s *Store) Lobby(ctx context.Context, id uuid.UUID) (*models.Lobby, error) {
	q := `
	SELECT
		l.id, l.name, l.privacy, l.short_code,
		gc.id, gc.game_type, gc.num_rounds, gc.round_length_seconds, gc.geography_type
	FROM lobbies l
	LEFT JOIN game_configurations gc ON gc.id = l.game_configuration_id
	WHERE l.id = $1
	`
	return s.scanLobby(s.pool.QueryRow(ctx, q, id))
}

// LobbyByCode fetches a lobby by its short join code.
func (s *Store) LobbyByCode(ctx context.Context, code string) (*models.Lobby, error) {
	q := `
	SELECT
		l.id, l.name, l.privacy, l.short_code,
		gc.id, gc.game_type, gc.num_rounds, gc.round_length_seconds, gc.geography_type
	FROM lobbies l
	LEFT JOIN game_configurations gc ON gc.id = l.game_configuration_id
	WHERE l.short_code = $1
	`
	return s.scanLobby(s.pool.QueryRow(ctx, q, code))
}

func (s *Store) scanLobby(row pgx.Row) (*models.Lobby, error) {
	var l models.Lobby
	var cfgID *uuid.UUID
	var gameType, geoType *string
	var numRounds, roundLength *int

	err := row.Scan(
		&l.ID, &l.Name, &l.Privacy, &l.ShortCode,
		&cfgID, &gameType, &numRounds, &roundLength, &geoType,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if cfgID != nil {
		l.GameConfig = &models.GameConfiguration{
			ID:                 *cfgID,
			GameType:           *gameType,
			NumRounds:          *numRounds,
			RoundLengthSeconds: *roundLength,
			GeographyType:      *geoType,
		}
	}
	return &l, nil
}

// SaveLobby upserts the lobby row and, when present, its game configuration.
func (s *Store) SaveLobby(ctx context.Context, l *models.Lobby) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var cfgID *uuid.UUID
		if l.GameConfig != nil {
			q := `
			INSERT INTO game_configurations (id, game_type, num_rounds, round_length_seconds, geography_type)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				game_type = EXCLUDED.game_type,
				num_rounds = EXCLUDED.num_rounds,
				round_length_seconds = EXCLUDED.round_length_seconds,
				geography_type = EXCLUDED.geography_type
			`
			if _, err := tx.Exec(ctx, q,
				l.GameConfig.ID,
				l.GameConfig.GameType,
				l.GameConfig.NumRounds,
				l.GameConfig.RoundLengthSeconds,
				l.GameConfig.GeographyType,
			); err != nil {
				return err
			}
			cfgID = &l.GameConfig.ID
		}

		q := `
		INSERT INTO lobbies (id, name, privacy, short_code, game_configuration_id)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			privacy = EXCLUDED.privacy,
			short_code = EXCLUDED.short_code,
			game_configuration_id = EXCLUDED.game_configuration_id
		`
		_, err := tx.Exec(ctx, q, l.ID, l.Name, l.Privacy, l.ShortCode, cfgID)
		return err
	})
}

// ShortCodeExists reports whether a join code is already taken.
func (s *Store) ShortCodeExists(ctx context.Context, code string) (bool, error) {
	q := `SELECT 1 FROM lobbies WHERE short_code = $1 LIMIT 1`
	var tmp int
	err := s.pool.QueryRow(ctx, q, code).Scan(&tmp)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
