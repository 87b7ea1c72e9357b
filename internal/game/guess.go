// internal/game/guess.go
package game

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/models"
	"github.com/guesshole/guesshole/internal/scoring"
)

// GuessService scores and records submissions and fans out the results in a
// fixed order: the submitter first, then co-players who already guessed, then
// the round's earlier results back to the submitter.
type GuessService struct {
	store    Store
	notifier Notifier
	state    *StateMachine
	events   EventSink
	scoring  scoring.Config
	log      *logrus.Logger
}

// NewGuessService wires the orchestrator. events may be nil.
func NewGuessService(store Store, notifier Notifier, state *StateMachine, events EventSink, cfg scoring.Config, log *logrus.Logger) *GuessService {
	return &GuessService{
		store:    store,
		notifier: notifier,
		state:    state,
		events:   events,
		scoring:  cfg,
		log:      log,
	}
}

// Submit processes one guess end to end. Any failure before persistence
// abandons the submission; the client may simply guess again.
//
// The first-guess check counts existing guesses before this one is written,
// so two simultaneous submissions can both earn the bonus. Accepted: the
// bonus is approximate rather than submission being serialized.
func (s *GuessService) Submit(ctx context.Context, playerID uuid.UUID, msg GuessSubmittedMessage) {
	player, err := s.store.Player(ctx, playerID)
	if err != nil {
		s.log.Warnf("guess from unknown player %s dropped: %v", playerID, err)
		return
	}
	round, err := s.store.Round(ctx, msg.RoundID)
	if err != nil {
		s.log.Warnf("guess for unknown round %s dropped: %v", msg.RoundID, err)
		return
	}

	// Earlier results are snapshotted before this guess is written, so the
	// submitter's catch-up batch cannot contain their own guess. The same
	// snapshot enforces one guess per player per round.
	previous, err := s.store.RoundGuesses(ctx, round.ID)
	if err != nil {
		s.log.Warnf("load previous guesses for round %s, submission dropped: %v", round.ID, err)
		return
	}
	for _, prev := range previous {
		if prev.PlayerID == player.ID {
			s.log.Warnf("player %s already guessed round %s, duplicate dropped", player.ID, round.ID)
			return
		}
	}

	guessLocation, err := s.store.ResolveLocation(ctx, msg.Latitude, msg.Longitude)
	if err != nil {
		s.log.Warnf("resolve guess location (%f, %f): %v", msg.Latitude, msg.Longitude, err)
		guessLocation = nil
	}

	targetLocation := round.Location
	if targetLocation == nil && round.LocationPointID != 0 {
		if lp, err := s.store.LocationPoint(ctx, round.LocationPointID); err == nil {
			targetLocation = lp
		} else {
			s.log.Warnf("load target location %d for round %s: %v", round.LocationPointID, round.ID, err)
		}
	}

	solo := s.isSoloGame(ctx, player.LobbyID)

	distance := scoring.DistanceKm(msg.Latitude, msg.Longitude, round.Latitude, round.Longitude)

	count, err := s.store.CountRoundGuesses(ctx, round.ID)
	if err != nil {
		s.log.Warnf("count guesses for round %s: %v", round.ID, err)
		count = 1 // deny the bonus rather than misaward it
	}
	isFirstGuess := count == 0

	baseScore := s.scoring.BaseScore(distance, msg.RoundDuration, msg.GuessTime)
	multipliers := scoring.Multipliers(msg.GuessTime, isFirstGuess, guessLocation, targetLocation, solo)
	finalScore := scoring.FinalScore(baseScore, multipliers)

	guess := &models.Guess{
		ID:             uuid.New(),
		PlayerID:       player.ID,
		RoundID:        round.ID,
		GameInstanceID: round.GameInstanceID,
		Latitude:       msg.Latitude,
		Longitude:      msg.Longitude,
		Location:       guessLocation,
		DistanceKm:     distance,
		BaseScore:      baseScore,
		Score:          finalScore,
		RoundDuration:  msg.RoundDuration,
		GuessTime:      msg.GuessTime,
		CreatedAt:      time.Now(),
	}
	if guessLocation != nil {
		guess.LocationPointID = guessLocation.ID
	}
	for i := range multipliers {
		multipliers[i].ID = uuid.New()
		multipliers[i].GuessID = guess.ID
	}
	guess.Multipliers = multipliers

	if err := s.store.SaveGuess(ctx, guess); err != nil {
		s.log.Errorf("persist guess for player %s round %s: %v", player.ID, round.ID, err)
		return
	}

	s.log.Infof("player %s guessed round %s: %.1f km, %d points", player.ID, round.ID, distance, finalScore)

	result := s.buildResult(guess, player, targetLocation)

	// Submitter gets their own result first.
	s.notifier.SendToPlayer(ctx, player.ID, result)

	// Players who have already guessed may see it too; the rest learn
	// nothing that could bias their own guess.
	for _, prev := range previous {
		if prev.PlayerID == player.ID {
			continue
		}
		s.notifier.SendToPlayer(ctx, prev.PlayerID, result)
	}

	// Catch the submitter up on everyone who guessed before them.
	for _, prev := range previous {
		if prev.PlayerID == player.ID {
			continue
		}
		prevPlayer, err := s.store.Player(ctx, prev.PlayerID)
		if err != nil {
			s.log.Warnf("load player %s for previous guess result: %v", prev.PlayerID, err)
			continue
		}
		s.notifier.SendToPlayer(ctx, player.ID, s.buildResult(prev, prevPlayer, targetLocation))
	}

	if s.events != nil {
		s.events.PublishGuess(ctx, guess)
	}

	s.state.CheckAllPlayersGuessed(ctx, player.LobbyID, round.ID)
}

// isSoloGame reports whether at most one active player is in the lobby, in
// which case the first-guess bonus means nothing.
func (s *GuessService) isSoloGame(ctx context.Context, lobbyID uuid.UUID) bool {
	players, err := s.store.LobbyPlayers(ctx, lobbyID)
	if err != nil {
		s.log.Warnf("solo check for lobby %s: %v", lobbyID, err)
		return true
	}
	active := 0
	for _, p := range players {
		if p.Active {
			active++
		}
	}
	return active <= 1
}

func (s *GuessService) buildResult(g *models.Guess, p *models.Player, target *models.LocationPoint) GuessResult {
	return GuessResult{
		Type:           KindGuessResult,
		GuessID:        g.ID,
		RoundID:        g.RoundID,
		Player:         p,
		GuessLocation:  g.Location,
		ActualLocation: target,
		Latitude:       g.Latitude,
		Longitude:      g.Longitude,
		DistanceKm:     g.DistanceKm,
		BaseScore:      g.BaseScore,
		Score:          g.Score,
		Multipliers:    g.Multipliers,
		GuessTime:      g.GuessTime,
	}
}
