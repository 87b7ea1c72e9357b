// internal/game/players_test.go
package game

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guesshole/guesshole/internal/models"
)

func newTestPlayerService(t *testing.T) (*PlayerService, *fakeStore, *fakeNotifier, *fakeRegistrar) {
	t.Helper()
	store := newFakeStore()
	notifier := &fakeNotifier{}
	registrar := &fakeRegistrar{}
	clock := &fakeClock{}
	sched := NewTimerScheduler(store, testLogger())
	sched.afterFunc = clock.AfterFunc
	sm := NewStateMachine(store, notifier, sched, nil, testLogger())
	svc := NewPlayerService(store, notifier, sm, registrar, testLogger())
	return svc, store, notifier, registrar
}

func TestFirstJoinerBecomesHost(t *testing.T) {
	svc, store, notifier, registrar := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	sess := &fakeSession{id: "s1"}

	playerID := svc.HandleUpdatePlayer(ctx, sess, lobby.ID, uuid.Nil, UpdatePlayerMessage{Name: "alice"})
	require.NotEqual(t, uuid.Nil, playerID)

	p, err := store.Player(ctx, playerID)
	require.NoError(t, err)
	assert.True(t, p.Host)
	assert.Equal(t, "alice", p.Name)
	assert.Equal(t, models.DefaultAvatar, p.Avatar)
	assert.True(t, p.Active)

	// The session learns its identity before anything else.
	require.NotEmpty(t, sess.sent)
	assigned, ok := sess.sent[0].(PlayerIDAssigned)
	require.True(t, ok)
	assert.Equal(t, playerID, assigned.PlayerID)

	assert.Equal(t, []uuid.UUID{playerID}, registrar.registered)

	// Lobby hears the join and the fresh roster.
	msgs := notifier.broadcasts()
	require.Len(t, msgs, 2)
	joined, ok := msgs[0].(PlayerJoined)
	require.True(t, ok)
	assert.Equal(t, playerID, joined.Player.ID)
	roster, ok := msgs[1].(PlayersUpdate)
	require.True(t, ok)
	require.Len(t, roster.Players, 1)

	// Second joiner is not host.
	second := svc.HandleUpdatePlayer(ctx, &fakeSession{id: "s2"}, lobby.ID, uuid.Nil, UpdatePlayerMessage{Name: "bob"})
	p2, err := store.Player(ctx, second)
	require.NoError(t, err)
	assert.False(t, p2.Host)
}

func TestJoinPushesInitialState(t *testing.T) {
	svc, store, notifier, _ := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	playerID := svc.HandleUpdatePlayer(ctx, &fakeSession{id: "s1"}, lobby.ID, uuid.Nil, UpdatePlayerMessage{Name: "alice"})

	var gotState bool
	for _, m := range notifier.messages() {
		if m.broadcast || m.playerID != playerID {
			continue
		}
		if gs, ok := m.msg.(*GameStateMessage); ok {
			gotState = true
			assert.Equal(t, models.StateLobby, gs.State)
		}
	}
	assert.True(t, gotState, "new player should receive the current game state")
}

func TestUpdatePlayerChangedFields(t *testing.T) {
	svc, store, notifier, _ := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	p := store.addPlayer(lobby.ID, "alice", true, true)
	notifier.reset()

	svc.HandleUpdatePlayer(ctx, &fakeSession{id: "s1"}, lobby.ID, p.ID, UpdatePlayerMessage{Name: "alicia", Avatar: "avatar7"})

	msgs := notifier.broadcasts()
	require.Len(t, msgs, 1)
	updated, ok := msgs[0].(PlayerUpdated)
	require.True(t, ok)
	assert.Equal(t, "alicia", updated.Player.Name)
	assert.ElementsMatch(t, []string{"name", "avatar"}, updated.UpdatedFields)

	// No-op update broadcasts nothing.
	notifier.reset()
	svc.HandleUpdatePlayer(ctx, &fakeSession{id: "s1"}, lobby.ID, p.ID, UpdatePlayerMessage{Name: "alicia", Avatar: "avatar7"})
	assert.Empty(t, notifier.messages())
}

func TestKickScenario(t *testing.T) {
	svc, store, notifier, _ := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	host := store.addPlayer(lobby.ID, "alice", true, true)
	target := store.addPlayer(lobby.ID, "bob", false, true)
	notifier.reset()

	svc.HandleKick(ctx, lobby.ID, host.ID, KickPlayerMessage{PlayerID: target.ID})

	// kicked=true persists and the session is force-closed.
	p, err := store.Player(ctx, target.ID)
	require.NoError(t, err)
	assert.True(t, p.Kicked)
	assert.False(t, p.Active)
	assert.Equal(t, []uuid.UUID{target.ID}, notifier.closed)

	// The roster broadcast excludes the kicked player.
	msgs := notifier.broadcasts()
	require.Len(t, msgs, 1)
	roster, ok := msgs[0].(PlayersUpdate)
	require.True(t, ok)
	require.Len(t, roster.Players, 1)
	assert.Equal(t, host.ID, roster.Players[0].ID)
}

func TestKickNonHostIgnored(t *testing.T) {
	svc, store, notifier, _ := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	store.addPlayer(lobby.ID, "alice", true, true)
	guest := store.addPlayer(lobby.ID, "bob", false, true)
	victim := store.addPlayer(lobby.ID, "carol", false, true)
	notifier.reset()

	svc.HandleKick(ctx, lobby.ID, guest.ID, KickPlayerMessage{PlayerID: victim.ID})

	p, err := store.Player(ctx, victim.ID)
	require.NoError(t, err)
	assert.False(t, p.Kicked)
	assert.Empty(t, notifier.messages())
	assert.Empty(t, notifier.closed)
}

func TestKickedPlayerRejoins(t *testing.T) {
	svc, store, notifier, registrar := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	host := store.addPlayer(lobby.ID, "alice", true, true)
	target := store.addPlayer(lobby.ID, "bob", false, true)

	svc.HandleKick(ctx, lobby.ID, host.ID, KickPlayerMessage{PlayerID: target.ID})
	notifier.reset()

	// Reconnecting with the same id is a rejoin: kicked clears and the lobby
	// sees PLAYER_JOINED, not a status change.
	sess := &fakeSession{id: "s2"}
	bound := svc.HandleReconnect(ctx, sess, lobby.ID, PlayerReconnectMessage{PlayerID: target.ID})
	assert.Equal(t, target.ID, bound)

	p, err := store.Player(ctx, target.ID)
	require.NoError(t, err)
	assert.False(t, p.Kicked)

	msgs := notifier.broadcasts()
	require.NotEmpty(t, msgs)
	joined, ok := msgs[0].(PlayerJoined)
	require.True(t, ok)
	assert.Equal(t, target.ID, joined.Player.ID)

	assert.Contains(t, registrar.registered, target.ID)

	// The rejoined session gets the roster pushed.
	var gotRoster bool
	for _, m := range sess.sent {
		if _, ok := m.(PlayersUpdate); ok {
			gotRoster = true
		}
	}
	assert.True(t, gotRoster)
}

func TestReconnectPlainDoesNotAnnounceJoin(t *testing.T) {
	svc, store, notifier, registrar := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	store.addPlayer(lobby.ID, "alice", true, true)
	p := store.addPlayer(lobby.ID, "bob", false, true)
	notifier.reset()

	bound := svc.HandleReconnect(ctx, &fakeSession{id: "s2"}, lobby.ID, PlayerReconnectMessage{PlayerID: p.ID})
	assert.Equal(t, p.ID, bound)
	assert.Contains(t, registrar.registered, p.ID)

	for _, m := range notifier.broadcasts() {
		_, isJoin := m.(PlayerJoined)
		assert.False(t, isJoin, "plain reconnect must not broadcast PLAYER_JOINED")
	}
}

func TestReconnectUnknownPlayer(t *testing.T) {
	svc, store, notifier, _ := newTestPlayerService(t)
	ctx := context.Background()

	lobby := store.addLobby()
	bound := svc.HandleReconnect(ctx, &fakeSession{id: "s1"}, lobby.ID, PlayerReconnectMessage{PlayerID: uuid.New()})
	assert.Equal(t, uuid.Nil, bound)
	assert.Empty(t, notifier.messages())
}

func TestReconnectIntoAnotherLobby(t *testing.T) {
	svc, store, _, _ := newTestPlayerService(t)
	ctx := context.Background()

	origin := store.addLobby()
	dest := store.addLobby()
	p := store.addPlayer(origin.ID, "alice", false, true)

	bound := svc.HandleReconnect(ctx, &fakeSession{id: "s1"}, dest.ID, PlayerReconnectMessage{PlayerID: p.ID})
	require.Equal(t, p.ID, bound)

	moved, err := store.Player(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, dest.ID, moved.LobbyID)
	// First player in the destination lobby becomes its host.
	assert.True(t, moved.Host)
}
