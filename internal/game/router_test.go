// internal/game/router_test.go
package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guesshole/guesshole/internal/models"
	"github.com/guesshole/guesshole/internal/scoring"
	"github.com/guesshole/guesshole/internal/session"
)

func newTestRouter(t *testing.T) (*Router, *fakeStore, *fakeNotifier, *session.Registry) {
	t.Helper()
	store := newFakeStore()
	notifier := &fakeNotifier{}
	registrar := &fakeRegistrar{}
	clock := &fakeClock{}
	sched := NewTimerScheduler(store, testLogger())
	sched.afterFunc = clock.AfterFunc
	sm := NewStateMachine(store, notifier, sched, nil, testLogger())
	sm.randIntn = func(int) int { return 0 }
	players := NewPlayerService(store, notifier, sm, registrar, testLogger())
	guesses := NewGuessService(store, notifier, sm, nil, scoring.DefaultConfig(), testLogger())
	registry := session.NewRegistry()
	return NewRouter(players, sm, guesses, registry, testLogger()), store, notifier, registry
}

func TestRouteUpdatePlayerBindsSession(t *testing.T) {
	router, store, _, registry := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	sess := &fakeSession{id: "s1"}

	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"UPDATE_PLAYER","name":"alice"}`))

	playerID, ok := registry.PlayerID(sess)
	require.True(t, ok)
	p, err := store.Player(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Name)

	// A second UPDATE_PLAYER on the bound session edits, not creates.
	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"UPDATE_PLAYER","name":"alicia"}`))
	again, ok := registry.PlayerID(sess)
	require.True(t, ok)
	assert.Equal(t, playerID, again)
	p, err = store.Player(ctx, playerID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", p.Name)
}

func TestRouteUnknownTypeDropped(t *testing.T) {
	router, store, notifier, _ := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	router.Route(ctx, &fakeSession{id: "s1"}, lobby.ID, []byte(`{"type":"SELF_DESTRUCT"}`))
	router.Route(ctx, &fakeSession{id: "s1"}, lobby.ID, []byte(`{"no":"type"}`))
	router.Route(ctx, &fakeSession{id: "s1"}, lobby.ID, []byte(`not json at all`))

	assert.Empty(t, notifier.messages())
}

func TestRouteCommandsRequireIdentity(t *testing.T) {
	router, store, notifier, _ := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	store.addTemplate(1000, 48.85, 2.35)
	sess := &fakeSession{id: "anon"}

	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"START_GAME","numRounds":1,"roundLength":60}`))
	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"RETURN_TO_LOBBY"}`))

	gs, err := store.GameState(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateLobby, gs.State)
	assert.Empty(t, notifier.messages())
}

func TestRouteStartGameByHost(t *testing.T) {
	router, store, _, _ := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	store.addTemplate(1000, 48.85, 2.35)
	sess := &fakeSession{id: "s1"}

	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"UPDATE_PLAYER","name":"alice"}`))
	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"START_GAME","numRounds":1,"roundLength":60,"geoType":"WORLD"}`))

	gs, err := store.GameState(ctx, lobby.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StateGameInProgress, gs.State)
}

func TestRouteGuessFlow(t *testing.T) {
	router, store, _, _ := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	store.addTemplate(1000, 48.85, 2.35)
	sess := &fakeSession{id: "s1"}

	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"UPDATE_PLAYER","name":"alice"}`))
	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"START_GAME","numRounds":1,"roundLength":60}`))

	gs, err := store.GameState(ctx, lobby.ID)
	require.NoError(t, err)
	roundID := gs.RoundID

	frame := []byte(`{"type":"GUESS_SUBMITTED","roundId":"` + roundID.String() + `","latitude":48.85,"longitude":2.35,"roundDuration":60,"guessTime":3}`)
	router.Route(ctx, sess, lobby.ID, frame)

	guesses, err := store.RoundGuesses(ctx, roundID)
	require.NoError(t, err)
	require.Len(t, guesses, 1)
	assert.Positive(t, guesses[0].Score)

	// Missing round id is dropped before the service runs.
	router.Route(ctx, sess, lobby.ID, []byte(`{"type":"GUESS_SUBMITTED","latitude":1,"longitude":1}`))
	guesses, err = store.RoundGuesses(ctx, roundID)
	require.NoError(t, err)
	assert.Len(t, guesses, 1)
}

func TestRouteMalformedPayloadDropped(t *testing.T) {
	router, store, notifier, _ := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	router.Route(ctx, &fakeSession{id: "s1"}, lobby.ID, []byte(`{"type":"KICK_PLAYER","playerId":"not-a-uuid"}`))
	router.Route(ctx, &fakeSession{id: "s1"}, lobby.ID, []byte(`{"type":"GUESS_SUBMITTED","latitude":"east"}`))

	assert.Empty(t, notifier.messages())
}

func TestRouteHeartbeatAck(t *testing.T) {
	router, store, notifier, _ := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	router.Route(ctx, &fakeSession{id: "s1"}, lobby.ID, []byte(`{"type":"HEARTBEAT_ACK"}`))
	assert.Empty(t, notifier.messages())
}

func TestRouteReconnect(t *testing.T) {
	router, store, _, registry := newTestRouter(t)
	ctx := context.Background()

	lobby := store.addLobby()
	p := store.addPlayer(lobby.ID, "alice", true, true)
	sess := &fakeSession{id: "s2"}

	frame := []byte(`{"type":"PLAYER_RECONNECT","playerId":"` + p.ID.String() + `"}`)
	router.Route(ctx, sess, lobby.ID, frame)

	bound, ok := registry.PlayerID(sess)
	require.True(t, ok)
	assert.Equal(t, p.ID, bound)
}
