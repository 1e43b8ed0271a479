package middlewares

import (
	"net/http"
	"time"

	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Log writes one access log entry per request.
func Log(next http.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		syslog.L.Debug().WithFields(map[string]interface{}{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   recorder.status,
			"duration": time.Since(start).Seconds(),
			"remote":   r.RemoteAddr,
		}).WithMessage("request handled").Write()
	}
}
