// internal/database/guesses.go
package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/guesshole/guesshole/internal/models"
)

// SaveGuess inserts the guess and its multiplier rows in one transaction.
func (s *Store) SaveGuess(ctx context.Context, g *models.Guess) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
		INSERT INTO guesses (
			id, player_id, round_id, game_instance_id,
			latitude, longitude, location_point_id,
			distance_km, base_score, score,
			round_duration, guess_time, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`
		if _, err := tx.Exec(ctx, q,
			g.ID, g.PlayerID, g.RoundID, g.GameInstanceID,
			g.Latitude, g.Longitude, zeroToNil(g.LocationPointID),
			g.DistanceKm, g.BaseScore, g.Score,
			g.RoundDuration, g.GuessTime, g.CreatedAt,
		); err != nil {
			return err
		}

		mq := `
		INSERT INTO score_multipliers (id, guess_id, multiplier_type, multiplier_value, display_name, tooltip)
		VALUES ($1, $2, $3, $4, $5, $6)
		`
		for _, m := range g.Multipliers {
			if _, err := tx.Exec(ctx, mq,
				m.ID, m.GuessID, string(m.Kind), m.Value, m.DisplayName, m.Tooltip,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// RoundGuesses returns a round's guesses with their multipliers, oldest first.
func (s *Store) RoundGuesses(ctx context.Context, roundID uuid.UUID) ([]*models.Guess, error) {
	return s.queryGuesses(ctx, guessSelect+` WHERE round_id = $1 ORDER BY created_at`, roundID)
}

// CountRoundGuesses counts the guesses already recorded for a round.
func (s *Store) CountRoundGuesses(ctx context.Context, roundID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM guesses WHERE round_id = $1`, roundID).Scan(&count)
	return count, err
}

// InstanceGuesses returns every guess of a game instance, for score totals.
func (s *Store) InstanceGuesses(ctx context.Context, gameInstanceID uuid.UUID) ([]*models.Guess, error) {
	return s.queryGuesses(ctx, guessSelect+` WHERE game_instance_id = $1 ORDER BY created_at`, gameInstanceID)
}

const guessSelect = `
	SELECT id, player_id, round_id, game_instance_id,
	       latitude, longitude, location_point_id,
	       distance_km, base_score, score,
	       round_duration, guess_time, created_at
	FROM guesses`

func (s *Store) queryGuesses(ctx context.Context, q string, arg interface{}) ([]*models.Guess, error) {
	rows, err := s.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var guesses []*models.Guess
	byID := make(map[uuid.UUID]*models.Guess)
	for rows.Next() {
		var g models.Guess
		var locID *int64
		if err := rows.Scan(
			&g.ID, &g.PlayerID, &g.RoundID, &g.GameInstanceID,
			&g.Latitude, &g.Longitude, &locID,
			&g.DistanceKm, &g.BaseScore, &g.Score,
			&g.RoundDuration, &g.GuessTime, &g.CreatedAt,
		); err != nil {
			return nil, err
		}
		if locID != nil {
			g.LocationPointID = *locID
		}
		guesses = append(guesses, &g)
		byID[g.ID] = &g
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(guesses) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(guesses))
	for _, g := range guesses {
		ids = append(ids, g.ID)
	}
	mq := `
	SELECT id, guess_id, multiplier_type, multiplier_value, display_name, tooltip
	FROM score_multipliers
	WHERE guess_id = ANY($1)
	`
	mrows, err := s.pool.Query(ctx, mq, ids)
	if err != nil {
		return nil, err
	}
	defer mrows.Close()

	for mrows.Next() {
		var m models.ScoreMultiplier
		var kind string
		if err := mrows.Scan(&m.ID, &m.GuessID, &kind, &m.Value, &m.DisplayName, &m.Tooltip); err != nil {
			return nil, err
		}
		m.Kind = models.MultiplierKind(kind)
		if g, ok := byID[m.GuessID]; ok {
			g.Multipliers = append(g.Multipliers, m)
		}
	}
	return guesses, mrows.Err()
}
