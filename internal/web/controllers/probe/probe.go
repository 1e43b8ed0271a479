package probe

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commvault-exporter/commvault-exporter/internal/collector"
	"github.com/commvault-exporter/commvault-exporter/internal/commvault"
	"github.com/commvault-exporter/commvault-exporter/internal/store/config"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
	"github.com/commvault-exporter/commvault-exporter/internal/web/controllers/metrics"
)

// Handler serves GET /probe?target=<name>. Each request gets its own
// collector and registry so concurrent probes of different targets never
// share metric-family state; only the token cache is shared.
func Handler(store *config.Store, tokens *commvault.TokenCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Invalid HTTP method", http.StatusMethodNotAllowed)
			return
		}

		targetName := r.URL.Query().Get("target")
		if targetName == "" {
			syslog.L.Warn().WithMessage("probe request missing 'target' parameter").Write()
			http.Error(w, "Bad Request: 'target' parameter is required", http.StatusBadRequest)
			return
		}

		targetCfg, err := store.Target(targetName)
		if err != nil {
			if errors.Is(err, config.ErrTargetNotFound) {
				syslog.L.Warn().WithTarget(targetName).
					WithMessage("probe for unknown target").Write()
				http.Error(w, fmt.Sprintf("Target %q not found in configuration", targetName), http.StatusNotFound)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		syslog.L.Debug().WithTarget(targetName).WithMessage("probe started").Write()

		registry := prometheus.NewRegistry()
		coll, err := collector.New(targetName, targetCfg, tokens, registry)
		if err != nil {
			syslog.L.Error(err).WithTarget(targetName).
				WithMessage("failed to build collector").Write()
			http.Error(w, fmt.Sprintf("Failed to probe target %q: %v", targetName, err), http.StatusInternalServerError)
			return
		}

		metrics.ProbeStarted()
		start := time.Now()
		success := coll.Collect(r.Context())
		metrics.ProbeFinished(targetName, success, time.Since(start).Seconds())

		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	}
}
