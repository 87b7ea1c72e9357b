// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/game"
	"github.com/guesshole/guesshole/internal/session"
)

// WSServer serves the per-lobby websocket endpoint and owns connection
// setup/teardown around the message router.
type WSServer struct {
	Store             game.Store
	Registry          *session.Registry
	Tracker           *session.Tracker
	Router            *game.Router
	HeartbeatInterval time.Duration
	Log               *logrus.Logger
}

// LobbyWSHandler upgrades GET /lobby/ws/{lobby_id} and runs the connection
// until the client goes away.
func (s *WSServer) LobbyWSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lobbyID, err := uuid.Parse(r.PathValue("lobby_id"))
		if err != nil {
			http.Error(w, "invalid lobby id", http.StatusBadRequest)
			return
		}
		if _, err := s.Store.Lobby(r.Context(), lobbyID); err != nil {
			if errors.Is(err, game.ErrNotFound) {
				http.Error(w, "lobby not found", http.StatusNotFound)
				return
			}
			s.Log.Errorf("lookup lobby %s: %v", lobbyID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Log.Warnf("websocket accept: %v", err)
			return
		}

		sess := newWSSession(uuid.NewString(), conn, s.Log)
		defer sess.Close("handler finished")

		if conn.Subprotocol() != "lobby" {
			conn.Close(websocket.StatusPolicyViolation, "client must speak the lobby subprotocol")
			return
		}

		s.Registry.Register(lobbyID, sess)
		s.Log.Infof("session %s (%s) connected to lobby %s", sess.ID(), r.RemoteAddr, lobbyID)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go sess.writePump(ctx, s.HeartbeatInterval)

		s.readLoop(ctx, conn, sess, lobbyID)

		// The tracker starts the reconnection window; the registry simply
		// forgets the dead session.
		if playerID, ok := s.Registry.PlayerID(sess); ok {
			s.Tracker.HandleDisconnection(playerID)
		}
		s.Registry.Unregister(lobbyID, sess)
		s.Log.Infof("session %s left lobby %s", sess.ID(), lobbyID)
	}
}

func (s *WSServer) readLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession, lobbyID uuid.UUID) {
	for {
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.Log.Infof("session %s closed normally", sess.ID())
			} else if ctx.Err() == nil {
				s.Log.Warnf("read from session %s: %v", sess.ID(), err)
			}
			return
		}
		if typ != websocket.MessageText {
			s.Log.Warnf("session %s sent non-text frame, ignoring", sess.ID())
			continue
		}
		s.Router.Route(ctx, sess, lobbyID, data)
	}
}
