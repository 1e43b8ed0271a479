package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/commvault-exporter/commvault-exporter/internal/commvault"
	"github.com/commvault-exporter/commvault-exporter/internal/store/config"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
	"github.com/commvault-exporter/commvault-exporter/internal/web/controllers/metrics"
	"github.com/commvault-exporter/commvault-exporter/internal/web/controllers/probe"
	"github.com/commvault-exporter/commvault-exporter/internal/web/controllers/targets"
	mw "github.com/commvault-exporter/commvault-exporter/internal/web/middlewares"
)

// NewServer wires the exporter's HTTP surface: /probe, /targets,
// /metrics, and a plain-text 404 for everything else.
func NewServer(store *config.Store, tokens *commvault.TokenCache) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/probe", probe.Handler(store, tokens))
	mux.HandleFunc("/targets", targets.Handler(store))
	mux.HandleFunc("/metrics", metrics.Handler())
	mux.HandleFunc("/", notFound)

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", store.ExporterPort()),
		Handler:           mw.Log(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func notFound(w http.ResponseWriter, _ *http.Request) {
	http.Error(w, "Not Found: Use the /probe?target=... endpoint", http.StatusNotFound)
}

// Serve runs the server until ctx is cancelled, then shuts it down
// gracefully with a short drain window.
func Serve(ctx context.Context, apiServer *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- apiServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("Serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	syslog.L.Info().WithMessage("shutting down exporter server").Write()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("Serve: shutdown -> %w", err)
	}
	return nil
}
