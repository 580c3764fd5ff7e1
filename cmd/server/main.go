package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/askroom/internal/adapters/http"
	"github.com/dkeye/askroom/internal/adapters/store"
	"github.com/dkeye/askroom/internal/app"
	"github.com/dkeye/askroom/internal/app/orch"
	"github.com/dkeye/askroom/internal/config"
	"github.com/dkeye/askroom/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Logger first so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Mode == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	roomStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("failed to open store")
	}

	policy, err := app.PolicyByName(cfg.View.Ordering)
	if err != nil {
		log.Fatal().Err(err).Msg("bad ordering")
	}

	views := app.NewViewManager(ctx, roomStore, policy)
	o := &orch.Orchestrator{
		Registry: app.NewRegistry(),
		Views:    views,
		Store:    roomStore,
	}

	r := router.SetupRouter(ctx, cfg, o)
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Str("store", cfg.Store.Driver).Str("ordering", policy.Name()).Msg("askroom server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	views.StopAll()
	if err := roomStore.Close(); err != nil {
		log.Error().Err(err).Msg("store close")
	}
	log.Info().Msg("Server exited gracefully")
}

func openStore(ctx context.Context, cfg config.StoreConfig) (core.RoomStore, error) {
	switch cfg.Driver {
	case "redis":
		return store.NewRedis(ctx, cfg.RedisURL)
	default:
		return store.NewMemory(), nil
	}
}
