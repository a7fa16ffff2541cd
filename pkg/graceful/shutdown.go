package graceful

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nimrid/Corre/pkg/logger"
)

// Shutdowner is implemented by components that need an orderly stop.
type Shutdowner interface {
	Shutdown(timeout time.Duration) error
}

// ShutdownManager coordinates orderly shutdown of the HTTP server and
// registered background components.
type ShutdownManager struct {
	server      *http.Server
	shutdowners []Shutdowner
	logger      *logger.Logger
}

func NewShutdownManager(server *http.Server, logger *logger.Logger) *ShutdownManager {
	return &ShutdownManager{
		server:      server,
		shutdowners: make([]Shutdowner, 0),
		logger:      logger,
	}
}

func (sm *ShutdownManager) Register(s Shutdowner) {
	sm.shutdowners = append(sm.shutdowners, s)
}

// WaitForShutdown blocks until SIGINT/SIGTERM, then stops components in
// registration order followed by the HTTP server.
func (sm *ShutdownManager) WaitForShutdown() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sm.logger.Info("Shutting down gracefully...")

	timeout := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, s := range sm.shutdowners {
		if err := s.Shutdown(timeout); err != nil {
			sm.logger.Warn("Component shutdown error", "error", err)
		}
	}

	if err := sm.server.Shutdown(ctx); err != nil {
		sm.logger.Error("Server forced shutdown", "error", err)
	}

	sm.logger.Info("Shutdown complete")
}
