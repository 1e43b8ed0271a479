package targets

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/commvault-exporter/commvault-exporter/internal/store/config"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
)

// TargetSummary is the credential-free view of one configured target.
type TargetSummary struct {
	Name          string `json:"name"`
	APIURL        string `json:"api_url"`
	Timeout       int    `json:"timeout"`
	SkipTLSVerify bool   `json:"skip_tls_verify"`
}

// Handler serves GET /targets: the configured targets with secrets
// stripped, sorted by name.
func Handler(store *config.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Invalid HTTP method", http.StatusMethodNotAllowed)
			return
		}

		all := store.AllTargets()
		summaries := make([]TargetSummary, 0, len(all))
		for name, target := range all {
			summaries = append(summaries, TargetSummary{
				Name:          name,
				APIURL:        target.APIURL,
				Timeout:       target.TimeoutSeconds,
				SkipTLSVerify: target.SkipTLSVerify,
			})
		}
		sort.Slice(summaries, func(i, j int) bool {
			return summaries[i].Name < summaries[j].Name
		})

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(summaries); err != nil {
			syslog.L.Error(err).WithMessage("failed to encode targets response").Write()
		}
	}
}
