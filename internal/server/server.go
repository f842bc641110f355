package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"lupaus-server/internal/config"
)

type Server struct {
	cfg         *config.Config
	log         zerolog.Logger
	registry    *RoomRegistry
	sessions    *SessionManager
	connections *ConnectionManager
	limiter     *RateLimiter
	startedAt   time.Time
}

// NewServer wires the room registry, session and connection tracking, and
// the rate limiter into an http.Server ready to listen.
func NewServer(cfg *config.Config, logger zerolog.Logger) (*Server, *http.Server) {
	srv := &Server{
		cfg:         cfg,
		log:         logger,
		registry:    NewRoomRegistry(logger),
		sessions:    NewSessionManager(),
		connections: NewConnectionManager(),
		limiter:     NewRateLimiter(cfg.Limits.MessagesPerSecond, cfg.Limits.Burst),
		startedAt:   time.Now(),
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return srv, httpServer
}

// Shutdown retires every live room so no grace or settlement timer can
// fire against a server that is going away.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, summary := range s.registry.List() {
		if entry, ok := s.registry.Get(summary.RoomKey); ok {
			entry.Lock()
			s.broadcastToRoom(ctx, entry, EventGameAborted, GameAbortedNotification{
				Reason: "Server is shutting down",
			})
			entry.Unlock()
		}
		s.destroyRoom(summary.RoomKey)
	}

	s.log.Info().Msg("All rooms retired")
	return nil
}
