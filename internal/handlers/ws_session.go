// internal/handlers/ws_session.go
package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/game"
)

// outBufferSize bounds the per-connection outbound queue. A slow client
// drops frames rather than stalling lobby fan-out.
const outBufferSize = 32

// wsSession adapts one websocket connection to the session.Session
// interface the core speaks.
type wsSession struct {
	id   string
	conn *websocket.Conn
	out  chan interface{}
	log  *logrus.Logger

	closeOnce sync.Once
	done      chan struct{}
}

func newWSSession(id string, conn *websocket.Conn, log *logrus.Logger) *wsSession {
	return &wsSession{
		id:   id,
		conn: conn,
		out:  make(chan interface{}, outBufferSize),
		log:  log,
		done: make(chan struct{}),
	}
}

func (s *wsSession) ID() string { return s.id }

// Send enqueues a frame without blocking. Frames to a full or closed
// session are dropped with a warning; the periodic state broadcasts make
// the client whole again.
func (s *wsSession) Send(_ context.Context, msg interface{}) error {
	select {
	case <-s.done:
		return fmt.Errorf("session %s is closed", s.id)
	default:
	}

	select {
	case s.out <- msg:
		return nil
	default:
		s.log.Warnf("outbound buffer full for session %s, dropping frame", s.id)
		return fmt.Errorf("outbound buffer full for session %s", s.id)
	}
}

// Close tears the connection down with a reason the client can display.
func (s *wsSession) Close(reason string) error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		err = s.conn.Close(websocket.StatusNormalClosure, reason)
	})
	return err
}

func (s *wsSession) Open() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

// writePump drains the outbound queue onto the wire and emits the periodic
// application heartbeat. Runs until the session closes or ctx ends.
func (s *wsSession) writePump(ctx context.Context, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case msg := <-s.out:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, s.conn, msg)
			cancel()
			if err != nil {
				s.log.Debugf("write to session %s: %v", s.id, err)
				return
			}
		case <-ticker.C:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, s.conn, game.NewHeartbeat(time.Now()))
			cancel()
			if err != nil {
				s.log.Debugf("heartbeat to session %s: %v", s.id, err)
				return
			}
		}
	}
}
