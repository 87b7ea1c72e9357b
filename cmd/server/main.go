// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/guesshole/guesshole/internal/cache"
	"github.com/guesshole/guesshole/internal/config"
	"github.com/guesshole/guesshole/internal/database"
	"github.com/guesshole/guesshole/internal/game"
	"github.com/guesshole/guesshole/internal/handlers"
	"github.com/guesshole/guesshole/internal/lobby"
	"github.com/guesshole/guesshole/internal/middleware"
	"github.com/guesshole/guesshole/internal/scoring"
	"github.com/guesshole/guesshole/internal/session"
)

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using info", cfg.LogLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("connect database: %v", err)
	}
	defer store.Close()

	// The event queue is optional; the game runs fine without it.
	var events game.EventSink
	if cfg.RedisEnabled {
		queue, err := cache.Connect(cfg.RedisAddr, cfg.RedisDB, cfg.EventQueue, logger)
		if err != nil {
			logger.Warnf("redis unavailable, game events will not be queued: %v", err)
		} else {
			defer queue.Close()
			events = queue
		}
	}

	registry := session.NewRegistry()
	tracker := session.NewTracker(store, session.TrackerConfig{
		DisconnectTimeout:     cfg.DisconnectTimeout,
		InactiveTimeout:       cfg.InactiveTimeout,
		SweepInterval:         cfg.SweepInterval,
		InactiveSweepInterval: cfg.InactiveSweepInterval,
		StatsInterval:         cfg.StatsInterval,
	}, logger)
	notifier := session.NewNotifier(registry, tracker, logger)

	timers := game.NewTimerScheduler(store, logger)
	state := game.NewStateMachine(store, notifier, timers, events, logger)

	tracker.OnStatusChange = func(playerID, lobbyID uuid.UUID, active bool) {
		notifier.Broadcast(context.Background(), lobbyID, game.NewPlayerStatusChange(playerID, active))
	}

	guesses := game.NewGuessService(store, notifier, state, events, scoring.Config{
		MaxDistanceKm:      cfg.MaxDistanceKm,
		MinDistanceKm:      cfg.MinDistanceKm,
		DistanceMultiplier: cfg.DistanceMultiplier,
		TimeMultiplier:     cfg.TimeMultiplier,
		GraceTimeSeconds:   cfg.GraceTimeSeconds,
	}, logger)
	players := game.NewPlayerService(store, notifier, state, tracker, logger)
	router := game.NewRouter(players, state, guesses, registry, logger)

	go tracker.Run(ctx)

	lobbies := lobby.NewService(store, logger)
	lobbyHandlers := &handlers.LobbyHandlers{Service: lobbies, Log: logger}
	ws := &handlers.WSServer{
		Store:             store,
		Registry:          registry,
		Tracker:           tracker,
		Router:            router,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Log:               logger,
	}

	logRequests := middleware.LogMiddleware(logger)

	mux := http.NewServeMux()
	mux.Handle("POST /lobby/create", logRequests(http.HandlerFunc(lobbyHandlers.CreateLobbyHandler)))
	mux.Handle("GET /lobby/by-code/{code}", logRequests(http.HandlerFunc(lobbyHandlers.LobbyByCodeHandler)))
	mux.Handle("GET /lobby/ws/{lobby_id}", logRequests(ws.LobbyWSHandler()))

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		_ = server.Shutdown(context.Background())
	}()

	logger.Infof("listening on %s", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server exited: %v", err)
	}
}
