package targets

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commvault-exporter/commvault-exporter/internal/store/config"
)

func TestTargetsHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[exporter]
port = 9657

[targets.prod]
api_url = "https://cv-prod.example.com"
username = "monitor"
password = "hunter2"
timeout = 20

[targets.dr]
api_url = "https://cv-dr.example.com"
username = "monitor"
password = "hunter2"
`), 0644))

	store, err := config.NewStore(path)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	Handler(store)(recorder, httptest.NewRequest(http.MethodGet, "/targets", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "application/json", recorder.Header().Get("Content-Type"))

	body := recorder.Body.String()
	var summaries []TargetSummary
	require.NoError(t, json.Unmarshal([]byte(body), &summaries))
	require.Len(t, summaries, 2)

	// Sorted by name, secrets never serialized.
	assert.Equal(t, "dr", summaries[0].Name)
	assert.Equal(t, "prod", summaries[1].Name)
	assert.Equal(t, 20, summaries[1].Timeout)
	assert.NotContains(t, body, "hunter2")
	assert.NotContains(t, body, "monitor")
}

func TestTargetsHandlerMethod(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[exporter]\nport = 9657\n"), 0644))
	store, err := config.NewStore(path)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	Handler(store)(recorder, httptest.NewRequest(http.MethodDelete, "/targets", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, recorder.Code)
}
