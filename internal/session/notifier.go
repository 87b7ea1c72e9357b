// internal/session/notifier.go
package session

import (
	"context"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Notifier bridges the registry and tracker behind the outbound interface
// the game services use. Satisfies game.Notifier.
type Notifier struct {
	registry *Registry
	tracker  *Tracker
	log      *logrus.Logger
}

func NewNotifier(registry *Registry, tracker *Tracker, log *logrus.Logger) *Notifier {
	return &Notifier{registry: registry, tracker: tracker, log: log}
}

// Broadcast fans a message out to every open session in the lobby.
func (n *Notifier) Broadcast(ctx context.Context, lobbyID uuid.UUID, msg interface{}) {
	n.registry.Broadcast(ctx, lobbyID, msg)
}

// SendToPlayer delivers to the player's live session, if they have one.
func (n *Notifier) SendToPlayer(ctx context.Context, playerID uuid.UUID, msg interface{}) bool {
	sess := n.tracker.PlayerSession(playerID)
	if sess == nil {
		return false
	}
	if err := sess.Send(ctx, msg); err != nil {
		n.log.Warnf("send to player %s: %v", playerID, err)
		return false
	}
	return true
}

// ClosePlayer force-closes the player's live session.
func (n *Notifier) ClosePlayer(playerID uuid.UUID, reason string) {
	sess := n.tracker.PlayerSession(playerID)
	if sess == nil {
		return
	}
	if err := sess.Close(reason); err != nil {
		n.log.Warnf("close session for player %s: %v", playerID, err)
	}
}
