package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/KirkDiggler/rpg-toolkit/dice"
	"github.com/KirkDiggler/rpg-toolkit/events"

	"github.com/KirkDiggler/tactics-api/internal/cues"
	"github.com/KirkDiggler/tactics-api/internal/handlers/ws"
	"github.com/KirkDiggler/tactics-api/internal/orchestrators/encounter"
	"github.com/KirkDiggler/tactics-api/internal/pkg/clock"
	"github.com/KirkDiggler/tactics-api/internal/pkg/idgen"
	redisclient "github.com/KirkDiggler/tactics-api/internal/redis"
	"github.com/KirkDiggler/tactics-api/internal/repositories/encounters"
)

var (
	httpPort     int
	redisAddress string
	encounterTTL time.Duration
	debug        bool
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the WebSocket server",
	Long:  `Start the tactics API server: encounters over WebSocket, snapshots in Redis or in memory.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().IntVar(&httpPort, "port", 8080, "HTTP listen port")
	serverCmd.Flags().StringVar(&redisAddress, "redis-address", "", "Redis address for encounter snapshots (empty runs in memory)")
	serverCmd.Flags().DurationVar(&encounterTTL, "encounter-ttl", 0, "snapshot TTL in Redis (0 uses the default)")
	serverCmd.Flags().BoolVar(&debug, "debug", false, "log at debug level")
}

func runServer(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("received shutdown signal, stopping")
		cancel()
	}()

	repo, err := buildRepository()
	if err != nil {
		return fmt.Errorf("failed to build repository: %w", err)
	}

	bus := events.NewBus()
	timeline, err := cues.NewBusTimeline(&cues.BusTimelineConfig{
		EventBus:    bus,
		IDGenerator: idgen.NewPrefixed("cue"),
	})
	if err != nil {
		return fmt.Errorf("failed to build cue timeline: %w", err)
	}

	service, err := encounter.NewOrchestrator(&encounter.Config{
		Repository:           repo,
		EventBus:             bus,
		Timeline:             timeline,
		Roller:               dice.DefaultRoller,
		IDGenerator:          idgen.NewPrefixed("enc"),
		CombatantIDGenerator: idgen.NewPrefixed("cmb"),
	})
	if err != nil {
		return fmt.Errorf("failed to build encounter service: %w", err)
	}

	wsHandler, err := ws.NewHandler(&ws.HandlerConfig{
		Service:     service,
		EventBus:    bus,
		Completer:   timeline,
		IDGenerator: idgen.NewPrefixed("ses"),
	})
	if err != nil {
		return fmt.Errorf("failed to build websocket handler: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", wsHandler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server listening", "port", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("failed to serve: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		// Shutdown does not wait for hijacked WebSocket connections, so a
		// stuck shutdown means something else is wedged. Force it closed.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed, forcing close", "error", err)
			_ = srv.Close()
		}

		slog.Info("server stopped")
		return nil
	case err := <-errChan:
		return err
	}
}

func buildRepository() (encounters.Repository, error) {
	if redisAddress == "" {
		slog.Info("using in-memory encounter repository")
		return encounters.NewInMemory(), nil
	}

	client, err := redisclient.NewClient(redisAddress, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build redis client: %w", err)
	}

	slog.Info("using redis encounter repository", "address", redisAddress, "ttl", encounterTTL)
	return encounters.NewRedisRepository(&encounters.Config{
		Client: client,
		Clock:  clock.New(),
		TTL:    encounterTTL,
	})
}
