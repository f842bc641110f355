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

	"lupaus-server/internal/config"
	"lupaus-server/internal/server"
)

func gracefulShutdown(gameServer *server.Server, httpServer *http.Server, timeout time.Duration, logger zerolog.Logger, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info().Msg("Shutdown signal received, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := gameServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Error during game server shutdown")
	}

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	done <- true
}

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	gameServer, httpServer := server.NewServer(cfg, logger)

	done := make(chan bool, 1)
	go gracefulShutdown(gameServer, httpServer, cfg.Server.ShutdownTimeout, logger, done)

	logger.Info().Int("port", cfg.Server.Port).Msg("Server listening")

	err = httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	<-done
	logger.Info().Msg("Graceful shutdown complete")
}
