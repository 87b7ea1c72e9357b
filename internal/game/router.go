// internal/game/router.go
package game

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/session"
)

// SessionBinder maps transport sessions to player identities.
// *session.Registry implements it.
type SessionBinder interface {
	BindPlayer(s session.Session, playerID uuid.UUID)
	PlayerID(s session.Session) (uuid.UUID, bool)
}

// Router dispatches inbound frames by their type tag. Malformed or unknown
// messages are logged and dropped; commands needing a bound player are
// dropped when the session never identified itself.
type Router struct {
	players *PlayerService
	state   *StateMachine
	guesses *GuessService
	binder  SessionBinder
	log     *logrus.Logger
}

func NewRouter(players *PlayerService, state *StateMachine, guesses *GuessService, binder SessionBinder, log *logrus.Logger) *Router {
	return &Router{
		players: players,
		state:   state,
		guesses: guesses,
		binder:  binder,
		log:     log,
	}
}

// Route handles one inbound frame from a session attached to a lobby.
func (r *Router) Route(ctx context.Context, sess session.Session, lobbyID uuid.UUID, data []byte) {
	kind, err := decodeKind(data)
	if err != nil {
		r.log.Warnf("session %s sent an undecodable message: %v", sess.ID(), err)
		return
	}

	switch kind {
	case KindUpdatePlayer:
		var msg UpdatePlayerMessage
		if !r.decode(sess, kind, data, &msg) {
			return
		}
		playerID, _ := r.binder.PlayerID(sess)
		bound := r.players.HandleUpdatePlayer(ctx, sess, lobbyID, playerID, msg)
		if playerID == uuid.Nil && bound != uuid.Nil {
			r.binder.BindPlayer(sess, bound)
		}

	case KindPlayerReconnect:
		var msg PlayerReconnectMessage
		if !r.decode(sess, kind, data, &msg) {
			return
		}
		if bound := r.players.HandleReconnect(ctx, sess, lobbyID, msg); bound != uuid.Nil {
			r.binder.BindPlayer(sess, bound)
		}

	case KindStartGame:
		var msg StartGameMessage
		if !r.decode(sess, kind, data, &msg) {
			return
		}
		playerID, ok := r.requirePlayer(sess, kind)
		if !ok {
			return
		}
		r.state.StartGame(ctx, lobbyID, playerID, msg)

	case KindGuessSubmitted:
		var msg GuessSubmittedMessage
		if !r.decode(sess, kind, data, &msg) {
			return
		}
		if msg.RoundID == uuid.Nil {
			r.log.Warnf("session %s sent a guess with no round id", sess.ID())
			return
		}
		playerID, ok := r.requirePlayer(sess, kind)
		if !ok {
			return
		}
		r.guesses.Submit(ctx, playerID, msg)

	case KindStartNextRound:
		var msg StartNextRoundMessage
		if !r.decode(sess, kind, data, &msg) {
			return
		}
		if msg.CurrentRoundID == uuid.Nil {
			r.log.Warnf("session %s sent next-round with no round id", sess.ID())
			return
		}
		playerID, ok := r.requirePlayer(sess, kind)
		if !ok {
			return
		}
		r.state.AdvanceToNextRound(ctx, lobbyID, playerID, msg.CurrentRoundID)

	case KindReturnToLobby:
		playerID, ok := r.requirePlayer(sess, kind)
		if !ok {
			return
		}
		r.state.ReturnToLobby(ctx, lobbyID, playerID)

	case KindKickPlayer:
		var msg KickPlayerMessage
		if !r.decode(sess, kind, data, &msg) {
			return
		}
		if msg.PlayerID == uuid.Nil {
			r.log.Warnf("session %s sent kick with no target", sess.ID())
			return
		}
		playerID, ok := r.requirePlayer(sess, kind)
		if !ok {
			return
		}
		r.players.HandleKick(ctx, lobbyID, playerID, msg)

	case KindHeartbeatAck:
		r.log.Debugf("heartbeat ack from session %s", sess.ID())

	default:
		r.log.Warnf("session %s sent unknown message type %q", sess.ID(), kind)
	}
}

func (r *Router) decode(sess session.Session, kind string, data []byte, v interface{}) bool {
	if err := json.Unmarshal(data, v); err != nil {
		r.log.Warnf("session %s sent malformed %s: %v", sess.ID(), kind, err)
		return false
	}
	return true
}

func (r *Router) requirePlayer(sess session.Session, kind string) (uuid.UUID, bool) {
	playerID, ok := r.binder.PlayerID(sess)
	if !ok {
		r.log.Warnf("session %s sent %s before identifying itself", sess.ID(), kind)
		return uuid.Nil, false
	}
	return playerID, true
}
