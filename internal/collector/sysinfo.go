package collector

import "context"

// collectSystemInfo emits the static identity sample for the target.
// It reads only configuration and never touches the network.
func (c *Collector) collectSystemInfo(_ context.Context) error {
	version := c.cfg.Version
	if version == "" {
		version = "unknown"
	}

	commserve := c.cfg.CommserveName
	if commserve == "" {
		commserve = c.target
	}

	c.metrics.systemInfo.WithLabelValues(version, commserve).Set(1)
	return nil
}
