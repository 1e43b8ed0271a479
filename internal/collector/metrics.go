package collector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// targetLabel is carried by every sample of a probe so outputs from
// concurrent probes stay distinguishable on a shared scrape surface.
const targetLabel = "commvault_target"

// probeMetrics is the full sample set of one probe, registered on the
// probe's own throwaway registry.
type probeMetrics struct {
	scrapeDuration prometheus.Gauge
	scrapeSuccess  prometheus.Gauge

	systemInfo *prometheus.GaugeVec

	vmClientStatus   *prometheus.GaugeVec
	vmClientActivity *prometheus.GaugeVec

	jobStatus          *prometheus.GaugeVec
	jobDuration        *prometheus.GaugeVec
	jobStartTime       *prometheus.GaugeVec
	jobEndTime         *prometheus.GaugeVec
	jobFailedFiles     *prometheus.GaugeVec
	jobFailedFolders   *prometheus.GaugeVec
	jobPercentComplete *prometheus.GaugeVec
	jobSizeApplication *prometheus.GaugeVec
	jobSizeMedia       *prometheus.GaugeVec
	jobAlertLevel      *prometheus.GaugeVec
}

func newProbeMetrics(reg prometheus.Registerer, targetName string) *probeMetrics {
	constLabels := prometheus.Labels{targetLabel: targetName}

	m := &probeMetrics{
		scrapeDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "commvault_scrape_duration_seconds",
			Help:        "Time the Commvault scrape took for this target",
			ConstLabels: constLabels,
		}),
		scrapeSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "commvault_scrape_success",
			Help:        "Whether the Commvault scrape succeeded for this target (1 for success, 0 for failure)",
			ConstLabels: constLabels,
		}),
		systemInfo: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_info",
				Help:        "Commvault system information for this target",
				ConstLabels: constLabels,
			},
			[]string{"version", "commserve_name"},
		),
		vmClientStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_vm_client_status",
				Help:        "Status of VM Pseudo Clients (1=active, 0=inactive)",
				ConstLabels: constLabels,
			},
			[]string{"client_id", "client_name", "host_name", "instance_name", "status"},
		),
		vmClientActivity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_vm_client_activity_control",
				Help:        "Activity control status for VM Pseudo Clients",
				ConstLabels: constLabels,
			},
			[]string{"client_id", "client_name", "activity_type", "enabled"},
		),
		jobStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_status",
				Help:        "Job status (Completed=1, Failed=0, Running=2, Other=3)",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType", "clientName", "subclientName"},
		),
		jobDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_duration_seconds",
				Help:        "Job duration in seconds",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType", "clientName"},
		),
		jobStartTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_start_time_seconds",
				Help:        "Job start time (Unix timestamp)",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
		jobEndTime: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_end_time_seconds",
				Help:        "Job end time (Unix timestamp)",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
		jobFailedFiles: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_failed_files_total",
				Help:        "Number of failed files in the last job run",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
		jobFailedFolders: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_failed_folders_total",
				Help:        "Number of failed folders in the last job run",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
		jobPercentComplete: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_percent_complete",
				Help:        "Job completion percentage (0-100)",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
		jobSizeApplication: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_size_application_bytes",
				Help:        "Size of the application data processed (bytes)",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
		jobSizeMedia: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_size_media_bytes",
				Help:        "Size of media on disk (bytes)",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
		jobAlertLevel: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name:        "commvault_job_alert_level",
				Help:        "Alert severity (0=normal, higher=issues)",
				ConstLabels: constLabels,
			},
			[]string{"jobId", "jobType"},
		),
	}

	reg.MustRegister(
		m.scrapeDuration,
		m.scrapeSuccess,
		m.systemInfo,
		m.vmClientStatus,
		m.vmClientActivity,
		m.jobStatus,
		m.jobDuration,
		m.jobStartTime,
		m.jobEndTime,
		m.jobFailedFiles,
		m.jobFailedFolders,
		m.jobPercentComplete,
		m.jobSizeApplication,
		m.jobSizeMedia,
		m.jobAlertLevel,
	)

	return m
}
