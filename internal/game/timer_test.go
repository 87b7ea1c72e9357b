// internal/game/timer_test.go
package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guesshole/guesshole/internal/models"
)

type firedRound struct {
	lobbyID uuid.UUID
	roundID uuid.UUID
}

func newTestScheduler(t *testing.T, store *fakeStore) (*TimerScheduler, *fakeClock, *[]firedRound, *sync.Mutex) {
	t.Helper()
	clock := &fakeClock{}
	sched := NewTimerScheduler(store, testLogger())
	sched.afterFunc = clock.AfterFunc

	var mu sync.Mutex
	var fired []firedRound
	sched.OnRoundEnd = func(lobbyID, roundID uuid.UUID) {
		mu.Lock()
		fired = append(fired, firedRound{lobbyID, roundID})
		mu.Unlock()
	}
	return sched, clock, &fired, &mu
}

func addRound(store *fakeStore, durationSeconds int) *models.Round {
	r := &models.Round{ID: uuid.New(), GameInstanceID: uuid.New(), DurationSeconds: durationSeconds}
	store.rounds[r.ID] = r
	return r
}

func TestSchedulerUsesPersistedDuration(t *testing.T) {
	store := newFakeStore()
	sched, clock, _, _ := newTestScheduler(t, store)

	round := addRound(store, 45)
	require.NoError(t, sched.Schedule(context.Background(), uuid.New(), round.ID))

	timers := clock.timers()
	require.Len(t, timers, 1)
	assert.Equal(t, 45*time.Second, timers[0].d)
}

func TestSchedulerUnknownRound(t *testing.T) {
	store := newFakeStore()
	sched, _, _, _ := newTestScheduler(t, store)

	err := sched.Schedule(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSchedulerReplaceByKey(t *testing.T) {
	store := newFakeStore()
	sched, clock, fired, mu := newTestScheduler(t, store)

	lobbyID := uuid.New()
	first := addRound(store, 60)
	second := addRound(store, 60)

	require.NoError(t, sched.Schedule(context.Background(), lobbyID, first.ID))
	require.NoError(t, sched.Schedule(context.Background(), lobbyID, second.ID))
	assert.True(t, sched.Pending(lobbyID))

	// The replaced timer firing past its original deadline must be a no-op.
	clock.fire(0)
	mu.Lock()
	assert.Empty(t, *fired)
	mu.Unlock()
	assert.True(t, sched.Pending(lobbyID))

	clock.fire(1)
	mu.Lock()
	require.Len(t, *fired, 1)
	assert.Equal(t, firedRound{lobbyID, second.ID}, (*fired)[0])
	mu.Unlock()
	assert.False(t, sched.Pending(lobbyID))
}

func TestSchedulerCancelPreventsFiring(t *testing.T) {
	store := newFakeStore()
	sched, clock, fired, mu := newTestScheduler(t, store)

	lobbyID := uuid.New()
	round := addRound(store, 60)
	require.NoError(t, sched.Schedule(context.Background(), lobbyID, round.ID))

	sched.Cancel(lobbyID)
	assert.False(t, sched.Pending(lobbyID))

	clock.fire(0)
	mu.Lock()
	assert.Empty(t, *fired)
	mu.Unlock()

	// Cancelling again is harmless.
	sched.Cancel(lobbyID)
}

func TestSchedulerFiresExactlyOnce(t *testing.T) {
	store := newFakeStore()
	sched, clock, fired, mu := newTestScheduler(t, store)

	lobbyID := uuid.New()
	round := addRound(store, 60)
	require.NoError(t, sched.Schedule(context.Background(), lobbyID, round.ID))

	clock.fire(0)
	clock.fire(0)

	mu.Lock()
	assert.Len(t, *fired, 1)
	mu.Unlock()
}

func TestSchedulerIndependentLobbies(t *testing.T) {
	store := newFakeStore()
	sched, clock, fired, mu := newTestScheduler(t, store)

	lobbyA := uuid.New()
	lobbyB := uuid.New()
	roundA := addRound(store, 60)
	roundB := addRound(store, 60)

	require.NoError(t, sched.Schedule(context.Background(), lobbyA, roundA.ID))
	require.NoError(t, sched.Schedule(context.Background(), lobbyB, roundB.ID))

	clock.fire(0)
	mu.Lock()
	require.Len(t, *fired, 1)
	assert.Equal(t, firedRound{lobbyA, roundA.ID}, (*fired)[0])
	mu.Unlock()

	assert.False(t, sched.Pending(lobbyA))
	assert.True(t, sched.Pending(lobbyB))
}
