package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"forumdb/pkg/logger"
)

// Wait blocks until SIGINT or SIGTERM is received, then shuts the HTTP
// server down gracefully within timeout and runs the cleanup functions
// in order. Cleanup errors are logged, not fatal.
func Wait(srv *http.Server, timeout time.Duration, cleanup ...func() error) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutdown_signal", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("http_shutdown_failed", "error", err)
	}
	for _, fn := range cleanup {
		if err := fn(); err != nil {
			logger.Error("cleanup_failed", "error", err)
		}
	}
	logger.Info("shutdown_complete")
	logger.Sync()
}
