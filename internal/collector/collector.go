package collector

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/commvault-exporter/commvault-exporter/internal/commvault"
	"github.com/commvault-exporter/commvault-exporter/internal/store/types"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
)

// Sub-collectors are backend-bound, not CPU-bound, so the worker budget
// stays small.
const maxCollectWorkers = 5

// Collector gathers all metrics for one target. One instance is built
// per probe request and discarded afterwards; the only state shared with
// other probes is the token cache inside the API client.
type Collector struct {
	target  string
	cfg     types.Target
	client  *commvault.Client
	metrics *probeMetrics
}

// New builds the ephemeral collector for one probe and registers its
// sample set on reg. Fails when the target configuration cannot produce
// a usable API client.
func New(targetName string, cfg types.Target, tokens *commvault.TokenCache, reg prometheus.Registerer) (*Collector, error) {
	client, err := commvault.NewClient(targetName, cfg, tokens)
	if err != nil {
		return nil, err
	}

	return &Collector{
		target:  targetName,
		cfg:     cfg,
		client:  client,
		metrics: newProbeMetrics(reg, targetName),
	}, nil
}

// Collect runs all sub-collectors concurrently, waits for the slowest,
// and records scrape_success and scrape_duration_seconds. A sub-collector
// reporting no data keeps the probe successful; only a sub-collector
// returning an error flips success to 0. Reports whether the probe
// succeeded overall.
func (c *Collector) Collect(ctx context.Context) bool {
	start := time.Now()

	tasks := []struct {
		name string
		run  func(context.Context) error
	}{
		{"system info", c.collectSystemInfo},
		{"vm pseudo clients", c.collectVMClients},
		{"job metrics", c.collectJobs},
	}

	var g errgroup.Group
	g.SetLimit(maxCollectWorkers)

	for _, task := range tasks {
		g.Go(func() error {
			if err := task.run(ctx); err != nil {
				syslog.L.Error(err).WithTarget(c.target).
					WithField("task", task.name).
					WithMessage("collection task failed").Write()
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	duration := time.Since(start)

	success := 1.0
	if err != nil {
		success = 0
	}
	c.metrics.scrapeDuration.Set(duration.Seconds())
	c.metrics.scrapeSuccess.Set(success)

	syslog.L.Info().WithTarget(c.target).WithFields(map[string]interface{}{
		"duration": duration.Seconds(),
		"success":  err == nil,
	}).WithMessage("scrape completed").Write()

	return err == nil
}
