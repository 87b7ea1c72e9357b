// internal/database/games.go
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/guesshole/guesshole/internal/game"
	"github.com/guesshole/guesshole/internal/models"
)

// GameState fetches the single live state row for a lobby.
func (s *Store) GameState(ctx context.Context, lobbyID uuid.UUID) (*models.GameState, error) {
	q := `
	SELECT id, lobby_id, state, game_instance_id, round_id
	FROM game_states
	WHERE lobby_id = $1
	`
	var gs models.GameState
	var instanceID, roundID *uuid.UUID
	err := s.pool.QueryRow(ctx, q, lobbyID).Scan(
		&gs.ID, &gs.LobbyID, &gs.State, &instanceID, &roundID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if instanceID != nil {
		gs.GameInstanceID = *instanceID
	}
	if roundID != nil {
		gs.RoundID = *roundID
	}
	return &gs, nil
}

// SaveGameState overwrites the lobby's state row in place.
func (s *Store) SaveGameState(ctx context.Context, gs *models.GameState) error {
	q := `
	INSERT INTO game_states (id, lobby_id, state, game_instance_id, round_id)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (lobby_id) DO UPDATE SET
		state = EXCLUDED.state,
		game_instance_id = EXCLUDED.game_instance_id,
		round_id = EXCLUDED.round_id
	`
	_, err := s.pool.Exec(ctx, q,
		gs.ID, gs.LobbyID, gs.State, nilIfZero(gs.GameInstanceID), nilIfZero(gs.RoundID),
	)
	return err
}

func nilIfZero(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

// CreateGameInstance persists the instance and its rounds in one transaction.
func (s *Store) CreateGameInstance(ctx context.Context, gi *models.GameInstance, rounds []*models.Round) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO game_instances (id, game_type) VALUES ($1, $2)`,
			gi.ID, gi.GameType,
		); err != nil {
			return err
		}

		q := `
		INSERT INTO rounds (
			id, game_instance_id, round_order,
			youtube_video_id, start_time_seconds, duration_seconds,
			latitude, longitude, location_point_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`
		for _, r := range rounds {
			if _, err := tx.Exec(ctx, q,
				r.ID, r.GameInstanceID, r.Order,
				r.VideoID, r.StartSeconds, r.DurationSeconds,
				r.Latitude, r.Longitude, zeroToNil(r.LocationPointID),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveGameInstancePlayers inserts the join rows for a game instance's
// starting roster in one transaction.
func (s *Store) SaveGameInstancePlayers(ctx context.Context, gips []*models.GameInstancePlayer) error {
	if len(gips) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO game_instance_players (id, game_instance_id, player_id)
		VALUES ($1, $2, $3)
		`
		for _, gip := range gips {
			if _, err := tx.Exec(ctx, q, gip.ID, gip.GameInstanceID, gip.PlayerID); err != nil {
				return err
			}
		}
		return nil
	})
}

func zeroToNil(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

// Round fetches one round by id.
func (s *Store) Round(ctx context.Context, id uuid.UUID) (*models.Round, error) {
	q := roundSelect + ` WHERE id = $1`
	return scanRound(s.pool.QueryRow(ctx, q, id))
}

// InstanceRounds returns a game instance's rounds in play order.
func (s *Store) InstanceRounds(ctx context.Context, gameInstanceID uuid.UUID) ([]*models.Round, error) {
	q := roundSelect + ` WHERE game_instance_id = $1 ORDER BY round_order`
	rows, err := s.pool.Query(ctx, q, gameInstanceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rounds []*models.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, r)
	}
	return rounds, rows.Err()
}

const roundSelect = `
	SELECT id, game_instance_id, round_order,
	       youtube_video_id, start_time_seconds, duration_seconds,
	       latitude, longitude, location_point_id
	FROM rounds`

func scanRound(row pgx.Row) (*models.Round, error) {
	var r models.Round
	var locID *int64
	err := row.Scan(
		&r.ID, &r.GameInstanceID, &r.Order,
		&r.VideoID, &r.StartSeconds, &r.DurationSeconds,
		&r.Latitude, &r.Longitude, &locID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if locID != nil {
		r.LocationPointID = *locID
	}
	return &r, nil
}

// RandomRoundTemplates picks up to n templates at random. geographyType
// filters when non-empty.
func (s *Store) RandomRoundTemplates(ctx context.Context, n int, geographyType string) ([]*models.RoundTemplate, error) {
	q := `
	SELECT id, youtube_video_id, start_time, video_length, latitude, longitude, location_point_id
	FROM round_templates
	WHERE ($2 = '' OR geography_type = $2)
	ORDER BY random()
	LIMIT $1
	`
	rows, err := s.pool.Query(ctx, q, n, geographyType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []*models.RoundTemplate
	for rows.Next() {
		var t models.RoundTemplate
		var locID *int64
		if err := rows.Scan(&t.ID, &t.VideoID, &t.StartSeconds, &t.VideoLengthSeconds, &t.Latitude, &t.Longitude, &locID); err != nil {
			return nil, err
		}
		if locID != nil {
			t.LocationPointID = *locID
		}
		templates = append(templates, &t)
	}
	return templates, rows.Err()
}
