// internal/game/state.go
package game

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/models"
)

const (
	// minStartOffset is the earliest second of a source video a round may
	// start at, skipping intros.
	minStartOffset = 300

	defaultNumRounds   = 5
	defaultRoundLength = 60
)

// StateMachine drives each lobby through LOBBY, GAME_IN_PROGRESS and
// ROUND_SCOREBOARD. Transitions re-derive everything from persisted state, so
// a failed transition is simply abandoned and the next timer or client action
// re-converges. One instance serves all lobbies.
type StateMachine struct {
	store    Store
	notifier Notifier
	timers   *TimerScheduler
	events   EventSink
	log      *logrus.Logger

	// randIntn is swappable so round materialization is deterministic in tests.
	randIntn func(n int) int
}

// NewStateMachine wires the state machine and registers itself as the timer
// scheduler's round-end handler. events may be nil.
func NewStateMachine(store Store, notifier Notifier, timers *TimerScheduler, events EventSink, log *logrus.Logger) *StateMachine {
	sm := &StateMachine{
		store:    store,
		notifier: notifier,
		timers:   timers,
		events:   events,
		log:      log,
		randIntn: rand.Intn,
	}
	timers.OnRoundEnd = sm.HandleRoundEnd
	return sm
}

// StartGame moves a lobby from LOBBY to GAME_IN_PROGRESS: materializes the
// rounds, persists the instance and new state, arms the round-0 timer and
// broadcasts. Host-only; non-host requests are ignored.
func (sm *StateMachine) StartGame(ctx context.Context, lobbyID, playerID uuid.UUID, msg StartGameMessage) {
	if !sm.isHost(ctx, lobbyID, playerID) {
		sm.log.Warnf("non-host player %s tried to start a game in lobby %s", playerID, lobbyID)
		return
	}

	numRounds := msg.NumRounds
	if numRounds <= 0 {
		numRounds = defaultNumRounds
	}
	roundLength := msg.RoundLengthSeconds
	if roundLength <= 0 {
		roundLength = defaultRoundLength
	}

	templates, err := sm.store.RandomRoundTemplates(ctx, numRounds, msg.GeographyType)
	if err != nil || len(templates) == 0 {
		sm.log.Errorf("start game in lobby %s: no round templates available: %v", lobbyID, err)
		return
	}

	gi := &models.GameInstance{ID: uuid.New(), GameType: models.GameTypeCityGuesser}
	rounds := sm.materializeRounds(gi.ID, templates, roundLength)
	gi.Rounds = rounds

	if err := sm.store.CreateGameInstance(ctx, gi, rounds); err != nil {
		sm.log.Errorf("start game in lobby %s: persist game instance: %v", lobbyID, err)
		return
	}
	sm.associatePlayers(ctx, lobbyID, gi.ID)

	if lobby, err := sm.store.Lobby(ctx, lobbyID); err == nil {
		lobby.GameConfig = &models.GameConfiguration{
			ID:                 uuid.New(),
			GameType:           models.GameTypeCityGuesser,
			NumRounds:          len(rounds),
			RoundLengthSeconds: roundLength,
			GeographyType:      msg.GeographyType,
		}
		if err := sm.store.SaveLobby(ctx, lobby); err != nil {
			sm.log.Warnf("start game in lobby %s: persist game configuration: %v", lobbyID, err)
		}
	}

	gs, err := sm.store.GameState(ctx, lobbyID)
	if err != nil {
		sm.log.Errorf("start game in lobby %s: load game state: %v", lobbyID, err)
		return
	}
	gs.State = models.StateGameInProgress
	gs.GameInstanceID = gi.ID
	gs.RoundID = rounds[0].ID
	if err := sm.store.SaveGameState(ctx, gs); err != nil {
		sm.log.Errorf("start game in lobby %s: persist game state: %v", lobbyID, err)
		return
	}

	if err := sm.timers.Schedule(ctx, lobbyID, rounds[0].ID); err != nil {
		sm.log.Errorf("start game in lobby %s: %v", lobbyID, err)
	}

	sm.log.Infof("lobby %s started game %s with %d rounds of %ds", lobbyID, gi.ID, len(rounds), roundLength)
	sm.BroadcastState(ctx, lobbyID)
}

// associatePlayers records the lobby roster as this game instance's players,
// one join row each. Late joiners are not added retroactively.
func (sm *StateMachine) associatePlayers(ctx context.Context, lobbyID, gameInstanceID uuid.UUID) {
	players, err := sm.store.LobbyPlayers(ctx, lobbyID)
	if err != nil {
		sm.log.Warnf("associate players with game %s: load players: %v", gameInstanceID, err)
		return
	}
	gips := make([]*models.GameInstancePlayer, 0, len(players))
	for _, p := range players {
		gips = append(gips, &models.GameInstancePlayer{
			ID:             uuid.New(),
			GameInstanceID: gameInstanceID,
			PlayerID:       p.ID,
		})
	}
	if err := sm.store.SaveGameInstancePlayers(ctx, gips); err != nil {
		sm.log.Warnf("associate %d players with game %s: %v", len(gips), gameInstanceID, err)
	}
}

// materializeRounds mints rounds from templates, assigning each a random
// start offset within [minStartOffset, videoLength-roundLength]. Videos too
// short for that window keep the template's curated default offset.
func (sm *StateMachine) materializeRounds(gameInstanceID uuid.UUID, templates []*models.RoundTemplate, roundLength int) []*models.Round {
	rounds := make([]*models.Round, 0, len(templates))
	for i, tpl := range templates {
		start := tpl.StartSeconds
		maxStart := tpl.VideoLengthSeconds - roundLength
		if tpl.VideoLengthSeconds > 0 && maxStart > minStartOffset {
			start = minStartOffset + sm.randIntn(maxStart-minStartOffset)
		}
		rounds = append(rounds, &models.Round{
			ID:              uuid.New(),
			GameInstanceID:  gameInstanceID,
			Order:           i,
			VideoID:         tpl.VideoID,
			StartSeconds:    start,
			DurationSeconds: roundLength,
			Latitude:        tpl.Latitude,
			Longitude:       tpl.Longitude,
			LocationPointID: tpl.LocationPointID,
		})
	}
	return rounds
}

// HandleRoundEnd moves GAME_IN_PROGRESS to ROUND_SCOREBOARD for the given
// round. Reached from timer expiry and from the all-players-guessed check;
// whichever path loses the race finds the state already advanced and no-ops.
func (sm *StateMachine) HandleRoundEnd(lobbyID, roundID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sm.timers.Cancel(lobbyID)

	gs, err := sm.store.GameState(ctx, lobbyID)
	if err != nil {
		sm.log.Errorf("end round %s in lobby %s: load game state: %v", roundID, lobbyID, err)
		return
	}
	if gs.State != models.StateGameInProgress || gs.RoundID != roundID {
		sm.log.Debugf("stale round end for lobby %s round %s ignored (state %s, current round %s)",
			lobbyID, roundID, gs.State, gs.RoundID)
		return
	}

	gs.State = models.StateRoundScoreboard
	if err := sm.store.SaveGameState(ctx, gs); err != nil {
		sm.log.Errorf("end round %s in lobby %s: persist game state: %v", roundID, lobbyID, err)
		return
	}

	if sm.events != nil {
		sm.events.PublishRoundEnd(ctx, lobbyID, gs.GameInstanceID, roundID)
	}

	sm.log.Infof("round %s ended in lobby %s", roundID, lobbyID)
	sm.BroadcastState(ctx, lobbyID)
}

// CheckAllPlayersGuessed ends the round early once every active player has a
// guess in. Called after each submission. Membership is by distinct guesser,
// so guesses from players who have since gone inactive never tip the check.
func (sm *StateMachine) CheckAllPlayersGuessed(ctx context.Context, lobbyID, roundID uuid.UUID) {
	players, err := sm.store.LobbyPlayers(ctx, lobbyID)
	if err != nil {
		sm.log.Warnf("all-guessed check for lobby %s: load players: %v", lobbyID, err)
		return
	}
	guesses, err := sm.store.RoundGuesses(ctx, roundID)
	if err != nil {
		sm.log.Warnf("all-guessed check for round %s: load guesses: %v", roundID, err)
		return
	}
	guessed := make(map[uuid.UUID]struct{}, len(guesses))
	for _, g := range guesses {
		guessed[g.PlayerID] = struct{}{}
	}

	active := 0
	for _, p := range players {
		if !p.Active {
			continue
		}
		active++
		if _, ok := guessed[p.ID]; !ok {
			return
		}
	}
	if active == 0 {
		return
	}

	sm.log.Infof("all %d active players guessed round %s in lobby %s, ending early", active, roundID, lobbyID)
	sm.HandleRoundEnd(lobbyID, roundID)
}

// AdvanceToNextRound moves ROUND_SCOREBOARD back to GAME_IN_PROGRESS on the
// next round. The client echoes the id of the round it just finished; the
// successor is order+1. Host-only.
func (sm *StateMachine) AdvanceToNextRound(ctx context.Context, lobbyID, playerID, currentRoundID uuid.UUID) {
	if !sm.isHost(ctx, lobbyID, playerID) {
		sm.log.Warnf("non-host player %s tried to advance the round in lobby %s", playerID, lobbyID)
		return
	}

	gs, err := sm.store.GameState(ctx, lobbyID)
	if err != nil {
		sm.log.Errorf("advance round in lobby %s: load game state: %v", lobbyID, err)
		return
	}
	if gs.State != models.StateRoundScoreboard {
		sm.log.Warnf("advance round in lobby %s ignored: state is %s", lobbyID, gs.State)
		return
	}

	current, err := sm.store.Round(ctx, currentRoundID)
	if err != nil {
		sm.log.Errorf("advance round in lobby %s: load round %s: %v", lobbyID, currentRoundID, err)
		return
	}
	rounds, err := sm.store.InstanceRounds(ctx, current.GameInstanceID)
	if err != nil {
		sm.log.Errorf("advance round in lobby %s: load rounds: %v", lobbyID, err)
		return
	}
	nextOrder := current.Order + 1
	var next *models.Round
	for _, r := range rounds {
		if r.Order == nextOrder {
			next = r
			break
		}
	}
	if next == nil {
		sm.log.Warnf("advance round in lobby %s ignored: round %d was the last", lobbyID, current.Order)
		return
	}

	gs.State = models.StateGameInProgress
	gs.RoundID = next.ID
	if err := sm.store.SaveGameState(ctx, gs); err != nil {
		sm.log.Errorf("advance round in lobby %s: persist game state: %v", lobbyID, err)
		return
	}

	if err := sm.timers.Schedule(ctx, lobbyID, next.ID); err != nil {
		sm.log.Errorf("advance round in lobby %s: %v", lobbyID, err)
	}

	sm.log.Infof("lobby %s advanced to round %d", lobbyID, nextOrder)
	sm.BroadcastState(ctx, lobbyID)
}

// ReturnToLobby abandons the game and resets the lobby to LOBBY. Valid from
// both in-game states. Host-only.
func (sm *StateMachine) ReturnToLobby(ctx context.Context, lobbyID, playerID uuid.UUID) {
	if !sm.isHost(ctx, lobbyID, playerID) {
		sm.log.Warnf("non-host player %s tried to return lobby %s to the waiting room", playerID, lobbyID)
		return
	}

	sm.timers.Cancel(lobbyID)

	gs, err := sm.store.GameState(ctx, lobbyID)
	if err != nil {
		sm.log.Errorf("return to lobby %s: load game state: %v", lobbyID, err)
		return
	}
	gs.State = models.StateLobby
	gs.GameInstanceID = uuid.Nil
	gs.RoundID = uuid.Nil
	if err := sm.store.SaveGameState(ctx, gs); err != nil {
		sm.log.Errorf("return to lobby %s: persist game state: %v", lobbyID, err)
		return
	}

	sm.log.Infof("lobby %s returned to the waiting room", lobbyID)
	sm.BroadcastState(ctx, lobbyID)
}

// BroadcastState sends the canonical snapshot to every session in the lobby.
func (sm *StateMachine) BroadcastState(ctx context.Context, lobbyID uuid.UUID) {
	msg, err := sm.StateMessage(ctx, lobbyID)
	if err != nil {
		sm.log.Errorf("broadcast state for lobby %s: %v", lobbyID, err)
		return
	}
	sm.notifier.Broadcast(ctx, lobbyID, msg)
}

// SendStateToPlayer pushes the current snapshot to one player, used for the
// initial push on connect.
func (sm *StateMachine) SendStateToPlayer(ctx context.Context, lobbyID, playerID uuid.UUID) {
	msg, err := sm.StateMessage(ctx, lobbyID)
	if err != nil {
		sm.log.Errorf("send state for lobby %s: %v", lobbyID, err)
		return
	}
	sm.notifier.SendToPlayer(ctx, playerID, msg)
}

// StateMessage composes the canonical snapshot from the freshest persisted
// state. During GAME_IN_PROGRESS the round is client-safe and score totals
// cover only finished rounds; on the scoreboard the round carries its
// resolved location and totals include the round just played.
func (sm *StateMachine) StateMessage(ctx context.Context, lobbyID uuid.UUID) (*GameStateMessage, error) {
	gs, err := sm.store.GameState(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}

	msg := &GameStateMessage{Type: KindGameState, State: gs.State}

	if lobby, err := sm.store.Lobby(ctx, lobbyID); err == nil {
		msg.GameConfig = lobby.GameConfig
	}

	if gs.GameInstanceID == uuid.Nil || gs.RoundID == uuid.Nil {
		return msg, nil
	}

	round, err := sm.store.Round(ctx, gs.RoundID)
	if err != nil {
		return nil, fmt.Errorf("load round %s: %w", gs.RoundID, err)
	}
	rounds, err := sm.store.InstanceRounds(ctx, gs.GameInstanceID)
	if err != nil {
		return nil, fmt.Errorf("load rounds: %w", err)
	}

	msg.GameInstanceID = gs.GameInstanceID
	msg.TotalRounds = len(rounds)
	msg.RoundOrder = round.Order
	msg.LastRound = round.Order == len(rounds)-1

	includeCurrent := gs.State == models.StateRoundScoreboard
	if includeCurrent {
		if round.Location == nil && round.LocationPointID != 0 {
			if lp, err := sm.store.LocationPoint(ctx, round.LocationPointID); err == nil {
				round.Location = lp
			}
		}
		msg.CurrentRound = round
	} else {
		msg.CurrentRound = round.ClientSafe()
	}

	scores, err := sm.playerScores(ctx, lobbyID, gs.GameInstanceID, round.ID, includeCurrent)
	if err != nil {
		return nil, err
	}
	msg.PlayerScores = scores

	return msg, nil
}

// playerScores builds the scoreboard rows, descending by running total.
// Current-round guesses are excluded from the totals while the round is
// still being played, so no one learns results before guessing.
func (sm *StateMachine) playerScores(ctx context.Context, lobbyID, gameInstanceID, currentRoundID uuid.UUID, includeCurrent bool) ([]PlayerScore, error) {
	players, err := sm.store.LobbyPlayers(ctx, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("load players: %w", err)
	}
	guesses, err := sm.store.InstanceGuesses(ctx, gameInstanceID)
	if err != nil {
		return nil, fmt.Errorf("load guesses: %w", err)
	}

	scores := make([]PlayerScore, 0, len(players))
	for _, p := range players {
		row := PlayerScore{Player: p}
		for _, g := range guesses {
			if g.PlayerID != p.ID {
				continue
			}
			if g.RoundID == currentRoundID {
				if !includeCurrent {
					continue
				}
				row.RoundScore = g.Score
				row.Guess = g
			}
			row.TotalScore += g.Score
		}
		scores = append(scores, row)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})
	return scores, nil
}

func (sm *StateMachine) isHost(ctx context.Context, lobbyID, playerID uuid.UUID) bool {
	p, err := sm.store.Player(ctx, playerID)
	if err != nil {
		sm.log.Warnf("host check: load player %s: %v", playerID, err)
		return false
	}
	return p.Host && p.LobbyID == lobbyID && !p.Kicked
}
