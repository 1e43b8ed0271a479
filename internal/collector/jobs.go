package collector

import (
	"context"
	"net/url"
	"strconv"

	"github.com/commvault-exporter/commvault-exporter/internal/commvault"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
)

const (
	jobEndpoint  = "/Job"
	jobPageLimit = 1000
)

// collectJobs fetches recent job history and emits one sample per
// numeric job attribute. Malformed entries are skipped without affecting
// their siblings.
func (c *Collector) collectJobs(ctx context.Context) error {
	params := url.Values{}
	params.Set("completed", "true")
	params.Set("lookupFinishedJobs", "true")
	params.Set("allProps", "true")
	params.Set("limit", strconv.Itoa(jobPageLimit))

	var list commvault.JobList
	found, err := c.client.Get(ctx, jobEndpoint, params, &list)
	if err != nil {
		return err
	}
	if !found || len(list.Jobs) == 0 {
		syslog.L.Debug().WithTarget(c.target).
			WithMessage("no jobs in response").Write()
		return nil
	}

	processed := 0
	for _, raw := range list.Jobs {
		job, err := commvault.ParseJob(raw)
		if err != nil {
			syslog.L.Warn().WithTarget(c.target).
				WithField("error", err.Error()).
				WithMessage("skipping malformed job entry").Write()
			continue
		}

		c.metrics.jobStatus.WithLabelValues(job.ID, job.Type, job.ClientName, job.SubclientName).
			Set(float64(commvault.ClassifyJobStatus(job.Status)))
		c.metrics.jobDuration.WithLabelValues(job.ID, job.Type, job.ClientName).Set(job.Duration)
		c.metrics.jobStartTime.WithLabelValues(job.ID, job.Type).Set(job.StartTime)
		c.metrics.jobEndTime.WithLabelValues(job.ID, job.Type).Set(job.EndTime)
		c.metrics.jobFailedFiles.WithLabelValues(job.ID, job.Type).Set(job.FailedFiles)
		c.metrics.jobFailedFolders.WithLabelValues(job.ID, job.Type).Set(job.FailedFolders)
		c.metrics.jobPercentComplete.WithLabelValues(job.ID, job.Type).Set(job.PercentComplete)
		c.metrics.jobSizeApplication.WithLabelValues(job.ID, job.Type).Set(job.ApplicationSize)
		c.metrics.jobSizeMedia.WithLabelValues(job.ID, job.Type).Set(job.MediaSize)
		c.metrics.jobAlertLevel.WithLabelValues(job.ID, job.Type).Set(job.AlertLevel)

		processed++
	}

	syslog.L.Info().WithTarget(c.target).
		WithField("count", processed).
		WithMessage("processed jobs").Write()
	return nil
}
