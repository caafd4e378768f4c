package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BioHazard786/peerlink/internal/relay"
)

const shutdownTimeout = 5 * time.Second

// Run serves the relay on addr until ctx is cancelled, then shuts the HTTP
// server and the hub down. ready, if non-nil, receives the bound address.
func Run(ctx context.Context, addr string, logger *slog.Logger, ready chan<- net.Addr) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()

	// 1. Create the Hub and run its event loop
	hub := relay.NewHub(logger)
	go hub.Run(hubCtx)

	// 2. Register our handlers
	srv := &http.Server{
		Handler:           NewMux(hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	logger.Info("relay listening", "addr", ln.Addr().String())
	if ready != nil {
		ready <- ln.Addr()
	}

	select {
	case err := <-errCh:
		stopHub()
		<-hub.Done()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down relay")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	// Hijacked websocket connections are not tracked by Shutdown; stopping
	// the hub closes every outbox, which ends each write pump.
	stopHub()
	<-hub.Done()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
