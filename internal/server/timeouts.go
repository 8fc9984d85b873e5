// internal/server/timeouts.go
//
// HTTP server helper with robust timeouts and graceful shutdown.
//
// Production hardening recommends:
//
//   • ReadTimeout   – abort slow-loris headers (10 s)
//   • WriteTimeout  – cap total response time
//   • IdleTimeout   – close keep-alives on idle clients (60 s)
//
// A publish makes up to six sequential backend calls, so WriteTimeout is
// derived from the backend timeout instead of a fixed 15 s.  This helper
// centralises those defaults so cmd/web doesn't repeat boilerplate.
//

package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	readTimeout     = 10 * time.Second
	idleTimeout     = 60 * time.Second
	minWriteTimeout = 15 * time.Second
	shutdownGrace   = 20 * time.Second
)

// New constructs an *http.Server.  backendTimeout is the per-call timeout
// of the gateway; zero means the 15 s default.
func New(addr string, handler http.Handler, backendTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      WriteTimeout(backendTimeout),
		IdleTimeout:       idleTimeout,
	}
}

// WriteTimeout allows six backend round trips plus slack.
func WriteTimeout(backendTimeout time.Duration) time.Duration {
	return max(minWriteTimeout, 6*backendTimeout+5*time.Second)
}

// Run serves srv until ctx is cancelled, then drains in-flight requests
// for up to 20 s.  A listener failure is returned immediately.
func Run(ctx context.Context, srv *http.Server, log *zap.SugaredLogger) error {
	errc := make(chan error, 1)
	go func() {
		log.Infow("http listening", "addr", srv.Addr, "write_timeout", srv.WriteTimeout)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Infow("http shutting down", "grace", shutdownGrace)
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	<-errc
	return nil
}
