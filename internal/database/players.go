// internal/database/players.go
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/guesshole/guesshole/internal/game"
	"github.com/guesshole/guesshole/internal/models"
)

// Player fetches a player by id.
func (s *Store) Player(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	q := `
	SELECT id, name, lobby_id, is_host, avatar, active, kicked
	FROM players
	WHERE id = $1
	`
	var p models.Player
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&p.ID, &p.Name, &p.LobbyID, &p.Host, &p.Avatar, &p.Active, &p.Kicked,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// SavePlayer upserts the player row.
func (s *Store) SavePlayer(ctx context.Context, p *models.Player) error {
	q := `
	INSERT INTO players (id, name, lobby_id, is_host, avatar, active, kicked)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		lobby_id = EXCLUDED.lobby_id,
		is_host = EXCLUDED.is_host,
		avatar = EXCLUDED.avatar,
		active = EXCLUDED.active,
		kicked = EXCLUDED.kicked
	`
	_, err := s.pool.Exec(ctx, q,
		p.ID, p.Name, p.LobbyID, p.Host, p.Avatar, p.Active, p.Kicked,
	)
	return err
}

// LobbyPlayers returns the lobby's roster, excluding kicked players, oldest
// member first.
func (s *Store) LobbyPlayers(ctx context.Context, lobbyID uuid.UUID) ([]*models.Player, error) {
	q := `
	SELECT id, name, lobby_id, is_host, avatar, active, kicked
	FROM players
	WHERE lobby_id = $1 AND NOT kicked
	ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, q, lobbyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.LobbyID, &p.Host, &p.Avatar, &p.Active, &p.Kicked); err != nil {
			return nil, err
		}
		players = append(players, &p)
	}
	return players, rows.Err()
}
