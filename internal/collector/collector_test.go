package collector

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commvault-exporter/commvault-exporter/internal/commvault"
	"github.com/commvault-exporter/commvault-exporter/internal/store/types"
)

// fakeBackend serves the three endpoints a probe touches.
func fakeBackend(jobsJSON, clientsJSON string) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/Login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	})
	mux.HandleFunc("/Job", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(jobsJSON))
	})
	mux.HandleFunc("/Client/VMPseudoClient", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(clientsJSON))
	})
	return httptest.NewServer(mux)
}

func probeTarget(url string) types.Target {
	return types.Target{
		APIURL:         url,
		Username:       "admin",
		Password:       "secret",
		TimeoutSeconds: 5,
		Version:        "11.32",
		CommserveName:  "cs01",
	}
}

func runProbe(t *testing.T, cfg types.Target) (bool, []*dto.MetricFamily) {
	t.Helper()
	registry := prometheus.NewRegistry()
	coll, err := New("prod", cfg, commvault.NewTokenCache(), registry)
	require.NoError(t, err)

	success := coll.Collect(t.Context())

	families, err := registry.Gather()
	require.NoError(t, err)
	return success, families
}

func findFamily(families []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func gaugeValue(t *testing.T, families []*dto.MetricFamily, name string) float64 {
	t.Helper()
	family := findFamily(families, name)
	require.NotNil(t, family, "metric family %s not found", name)
	require.Len(t, family.GetMetric(), 1)
	return family.GetMetric()[0].GetGauge().GetValue()
}

func labelValue(metric *dto.Metric, name string) string {
	for _, label := range metric.GetLabel() {
		if label.GetName() == name {
			return label.GetValue()
		}
	}
	return ""
}

func TestProbeEmptyBackend(t *testing.T) {
	ts := fakeBackend(`{"jobs":[]}`, `{}`)
	defer ts.Close()

	success, families := runProbe(t, probeTarget(ts.URL))
	assert.True(t, success)

	assert.Equal(t, 1.0, gaugeValue(t, families, "commvault_scrape_success"))
	assert.Equal(t, 1.0, gaugeValue(t, families, "commvault_info"))
	assert.GreaterOrEqual(t, gaugeValue(t, families, "commvault_scrape_duration_seconds"), 0.0)

	assert.Nil(t, findFamily(families, "commvault_job_status"))
	assert.Nil(t, findFamily(families, "commvault_vm_client_status"))
}

func TestProbeCollectsJobsAndClients(t *testing.T) {
	jobs := `{"jobs":[
		{"jobSummary":{"jobId":101,"jobType":"Snap Backup","clientEntity":{"clientName":"vm-01"},"subclient":{"subclientName":"default"},"status":"Completed","jobElapsedTime":120,"jobStartTime":1700000000,"jobEndTime":1700000120,"percentComplete":100,"sizeOfApplication":2048,"sizeOfMediaOnDisk":1024}}
	]}`
	clients := `{"VSPseudoClientsList":[
		{"client":{"clientEntity":{"clientId":12,"clientName":"vsa-01","hostName":"esx"}},"instance":{"instanceName":"VMware"},"statusInfo":{"status":0,"statusString":"Configured"},"clientActivityControl":{"activityControlOptions":[{"activityType":1,"enableActivityType":true}]}}
	]}`

	ts := fakeBackend(jobs, clients)
	defer ts.Close()

	success, families := runProbe(t, probeTarget(ts.URL))
	assert.True(t, success)

	jobStatus := findFamily(families, "commvault_job_status")
	require.NotNil(t, jobStatus)
	require.Len(t, jobStatus.GetMetric(), 1)
	metric := jobStatus.GetMetric()[0]
	assert.Equal(t, 1.0, metric.GetGauge().GetValue())
	assert.Equal(t, "101", labelValue(metric, "jobId"))
	assert.Equal(t, "snap_backup", labelValue(metric, "jobType"))
	assert.Equal(t, "vm-01", labelValue(metric, "clientName"))

	assert.Equal(t, 120.0, gaugeValue(t, families, "commvault_job_duration_seconds"))
	assert.Equal(t, 2048.0, gaugeValue(t, families, "commvault_job_size_application_bytes"))

	vmStatus := findFamily(families, "commvault_vm_client_status")
	require.NotNil(t, vmStatus)
	require.Len(t, vmStatus.GetMetric(), 1)
	assert.Equal(t, 1.0, vmStatus.GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, "vsa-01", labelValue(vmStatus.GetMetric()[0], "client_name"))

	activity := findFamily(families, "commvault_vm_client_activity_control")
	require.NotNil(t, activity)
	require.Len(t, activity.GetMetric(), 1)
	assert.Equal(t, 1.0, activity.GetMetric()[0].GetGauge().GetValue())
}

func TestProbeSkipsMalformedJob(t *testing.T) {
	jobs := `{"jobs":[
		{"jobSummary":{"jobId":101,"jobType":"Backup","status":"Completed"}},
		{"jobSummary":{"jobType":"Backup","status":"Completed"}}
	]}`

	ts := fakeBackend(jobs, `{}`)
	defer ts.Close()

	success, families := runProbe(t, probeTarget(ts.URL))
	assert.True(t, success, "malformed entry must not fail the probe")

	jobStatus := findFamily(families, "commvault_job_status")
	require.NotNil(t, jobStatus)
	require.Len(t, jobStatus.GetMetric(), 1)
	assert.Equal(t, "101", labelValue(jobStatus.GetMetric()[0], "jobId"))
}

func TestProbeTargetLabelEverywhere(t *testing.T) {
	jobs := `{"jobs":[{"jobSummary":{"jobId":1,"status":"running"}}]}`
	clients := `{"VSPseudoClientsList":[{"client":{"clientId":2}}]}`

	ts := fakeBackend(jobs, clients)
	defer ts.Close()

	_, families := runProbe(t, probeTarget(ts.URL))

	for _, family := range families {
		for _, metric := range family.GetMetric() {
			assert.Equal(t, "prod", labelValue(metric, "commvault_target"),
				"metric %s is missing the target label", family.GetName())
		}
	}
}

func TestProbeLoginFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	success, families := runProbe(t, probeTarget(ts.URL))
	assert.False(t, success)

	assert.Equal(t, 0.0, gaugeValue(t, families, "commvault_scrape_success"))
	// System info needs no network call, so its sample survives.
	assert.Equal(t, 1.0, gaugeValue(t, families, "commvault_info"))
}

func TestProbeBackendErrorsAreSoft(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/Login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"tok"}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	success, families := runProbe(t, probeTarget(ts.URL))
	assert.True(t, success, "post-auth fetch failures degrade to no data, not probe failure")
	assert.Equal(t, 1.0, gaugeValue(t, families, "commvault_scrape_success"))
}

func TestNewRejectsInvalidTarget(t *testing.T) {
	registry := prometheus.NewRegistry()
	_, err := New("bad", types.Target{}, commvault.NewTokenCache(), registry)
	require.ErrorIs(t, err, types.ErrInvalidTarget)
}
