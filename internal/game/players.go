// internal/game/players.go
package game

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/models"
	"github.com/guesshole/guesshole/internal/session"
)

// ConnectionRegistrar is the slice of the connection tracker the player
// lifecycle needs. *session.Tracker implements it.
type ConnectionRegistrar interface {
	RegisterConnection(playerID, lobbyID uuid.UUID, s session.Session)
	HandleDisconnection(playerID uuid.UUID)
}

// PlayerService owns the player lifecycle: creation on first contact,
// profile updates, reconnection (including rejoin after a kick) and kicks.
type PlayerService struct {
	store    Store
	notifier Notifier
	state    *StateMachine
	tracker  ConnectionRegistrar
	log      *logrus.Logger
}

func NewPlayerService(store Store, notifier Notifier, state *StateMachine, tracker ConnectionRegistrar, log *logrus.Logger) *PlayerService {
	return &PlayerService{
		store:    store,
		notifier: notifier,
		state:    state,
		tracker:  tracker,
		log:      log,
	}
}

// HandleUpdatePlayer creates the session's player on first receipt and
// updates the profile afterwards. Returns the player id the session should
// be bound to; uuid.Nil means the operation failed and no binding happened.
func (s *PlayerService) HandleUpdatePlayer(ctx context.Context, sess session.Session, lobbyID, playerID uuid.UUID, msg UpdatePlayerMessage) uuid.UUID {
	if playerID == uuid.Nil {
		return s.createPlayer(ctx, sess, lobbyID, msg)
	}
	s.updatePlayer(ctx, lobbyID, playerID, msg)
	return playerID
}

func (s *PlayerService) createPlayer(ctx context.Context, sess session.Session, lobbyID uuid.UUID, msg UpdatePlayerMessage) uuid.UUID {
	roster, err := s.store.LobbyPlayers(ctx, lobbyID)
	if err != nil {
		s.log.Errorf("create player in lobby %s: load roster: %v", lobbyID, err)
		return uuid.Nil
	}

	name := msg.Name
	if name == "" {
		name = "Player"
	}
	avatar := msg.Avatar
	if avatar == "" {
		avatar = models.DefaultAvatar
	}

	// The first player into a lobby is its host.
	p := &models.Player{
		ID:      uuid.New(),
		Name:    name,
		LobbyID: lobbyID,
		Host:    len(roster) == 0,
		Avatar:  avatar,
		Active:  true,
	}
	if err := s.store.SavePlayer(ctx, p); err != nil {
		s.log.Errorf("create player in lobby %s: persist: %v", lobbyID, err)
		return uuid.Nil
	}

	if err := sess.Send(ctx, NewPlayerIDAssigned(p.ID)); err != nil {
		s.log.Warnf("send player id to session %s: %v", sess.ID(), err)
	}

	s.tracker.RegisterConnection(p.ID, lobbyID, sess)

	s.log.Infof("player %s (%s) joined lobby %s (host=%v)", p.ID, p.Name, lobbyID, p.Host)
	s.notifier.Broadcast(ctx, lobbyID, NewPlayerJoined(p))
	s.broadcastRoster(ctx, lobbyID)

	s.state.SendStateToPlayer(ctx, lobbyID, p.ID)
	return p.ID
}

func (s *PlayerService) updatePlayer(ctx context.Context, lobbyID, playerID uuid.UUID, msg UpdatePlayerMessage) {
	p, err := s.store.Player(ctx, playerID)
	if err != nil {
		s.log.Warnf("update unknown player %s dropped: %v", playerID, err)
		return
	}

	var changed []string
	if msg.Name != "" && msg.Name != p.Name {
		p.Name = msg.Name
		changed = append(changed, "name")
	}
	if msg.Avatar != "" && msg.Avatar != p.Avatar {
		p.Avatar = msg.Avatar
		changed = append(changed, "avatar")
	}
	if len(changed) == 0 {
		return
	}

	if err := s.store.SavePlayer(ctx, p); err != nil {
		s.log.Errorf("update player %s: persist: %v", playerID, err)
		return
	}
	s.notifier.Broadcast(ctx, lobbyID, NewPlayerUpdated(p, changed))
}

// HandleReconnect binds a new session to an existing player. A kicked player
// reconnecting is treated as a fresh join: the flag clears and the lobby sees
// PLAYER_JOINED rather than a status change. Switching lobbies through
// reconnection is allowed. Returns uuid.Nil when the player id is unknown,
// in which case the client falls back to creating a new player.
func (s *PlayerService) HandleReconnect(ctx context.Context, sess session.Session, lobbyID uuid.UUID, msg PlayerReconnectMessage) uuid.UUID {
	p, err := s.store.Player(ctx, msg.PlayerID)
	if err != nil {
		s.log.Warnf("reconnect for unknown player %s dropped: %v", msg.PlayerID, err)
		return uuid.Nil
	}

	wasKicked := p.Kicked
	dirty := wasKicked
	p.Kicked = false

	if p.LobbyID != lobbyID {
		roster, err := s.store.LobbyPlayers(ctx, lobbyID)
		if err != nil {
			s.log.Errorf("reconnect player %s into lobby %s: load roster: %v", p.ID, lobbyID, err)
			return uuid.Nil
		}
		p.LobbyID = lobbyID
		p.Host = len(roster) == 0
		dirty = true
	}

	if dirty {
		if err := s.store.SavePlayer(ctx, p); err != nil {
			s.log.Errorf("reconnect player %s: persist: %v", p.ID, err)
			return uuid.Nil
		}
	}

	// Registration persists active=true; for a plain reconnect the tracker's
	// status-change callback covers the lobby notification.
	s.tracker.RegisterConnection(p.ID, lobbyID, sess)

	if wasKicked {
		s.log.Infof("kicked player %s rejoined lobby %s", p.ID, lobbyID)
		s.notifier.Broadcast(ctx, lobbyID, NewPlayerJoined(p))
	} else {
		s.log.Infof("player %s reconnected to lobby %s", p.ID, lobbyID)
	}
	s.broadcastRoster(ctx, lobbyID)

	if roster, err := s.store.LobbyPlayers(ctx, lobbyID); err == nil {
		if err := sess.Send(ctx, NewPlayersUpdate(roster)); err != nil {
			s.log.Warnf("send roster to session %s: %v", sess.ID(), err)
		}
	}
	s.state.SendStateToPlayer(ctx, lobbyID, p.ID)
	return p.ID
}

// HandleKick soft-removes a player: kicked=true persists, their session is
// force-closed and subsequent rosters exclude them. Host-only.
func (s *PlayerService) HandleKick(ctx context.Context, lobbyID, playerID uuid.UUID, msg KickPlayerMessage) {
	if !s.isHost(ctx, lobbyID, playerID) {
		s.log.Warnf("non-host player %s tried to kick in lobby %s", playerID, lobbyID)
		return
	}

	target, err := s.store.Player(ctx, msg.PlayerID)
	if err != nil {
		s.log.Warnf("kick of unknown player %s dropped: %v", msg.PlayerID, err)
		return
	}
	if target.LobbyID != lobbyID {
		s.log.Warnf("kick of player %s ignored: not in lobby %s", target.ID, lobbyID)
		return
	}

	target.Kicked = true
	target.Active = false
	if err := s.store.SavePlayer(ctx, target); err != nil {
		s.log.Errorf("kick player %s: persist: %v", target.ID, err)
		return
	}

	s.notifier.ClosePlayer(target.ID, "kicked from lobby")

	s.log.Infof("player %s kicked from lobby %s by %s", target.ID, lobbyID, playerID)
	s.broadcastRoster(ctx, lobbyID)
}

func (s *PlayerService) broadcastRoster(ctx context.Context, lobbyID uuid.UUID) {
	roster, err := s.store.LobbyPlayers(ctx, lobbyID)
	if err != nil {
		s.log.Warnf("broadcast roster for lobby %s: %v", lobbyID, err)
		return
	}
	s.notifier.Broadcast(ctx, lobbyID, NewPlayersUpdate(roster))
}

func (s *PlayerService) isHost(ctx context.Context, lobbyID, playerID uuid.UUID) bool {
	p, err := s.store.Player(ctx, playerID)
	if err != nil {
		s.log.Warnf("host check: load player %s: %v", playerID, err)
		return false
	}
	return p.Host && p.LobbyID == lobbyID && !p.Kicked
}
