package collector

import (
	"context"

	"github.com/commvault-exporter/commvault-exporter/internal/commvault"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
)

const vmPseudoClientEndpoint = "/Client/VMPseudoClient"

// collectVMClients fetches the VM pseudo client inventory and emits one
// status sample per client plus its activity-control samples. Malformed
// entries are skipped without affecting their siblings.
func (c *Collector) collectVMClients(ctx context.Context) error {
	var list commvault.VMPseudoClientList
	found, err := c.client.Get(ctx, vmPseudoClientEndpoint, nil, &list)
	if err != nil {
		return err
	}
	if !found || len(list.Clients) == 0 {
		syslog.L.Debug().WithTarget(c.target).
			WithMessage("no VM pseudo clients in response").Write()
		return nil
	}

	processed := 0
	for _, raw := range list.Clients {
		client, err := commvault.ParseVMClient(raw)
		if err != nil {
			syslog.L.Warn().WithTarget(c.target).
				WithField("error", err.Error()).
				WithMessage("skipping malformed VM pseudo client entry").Write()
			continue
		}

		statusValue := 0.0
		if client.Active() {
			statusValue = 1
		}
		c.metrics.vmClientStatus.WithLabelValues(
			client.ClientID, client.ClientName, client.HostName,
			client.InstanceName, client.StatusString,
		).Set(statusValue)

		for _, activity := range client.Activities {
			enabled := "0"
			enabledValue := 0.0
			if activity.Enabled {
				enabled = "1"
				enabledValue = 1
			}
			c.metrics.vmClientActivity.WithLabelValues(
				client.ClientID, client.ClientName, activity.Type, enabled,
			).Set(enabledValue)
		}

		processed++
	}

	syslog.L.Info().WithTarget(c.target).
		WithField("count", processed).
		WithMessage("processed VM pseudo clients").Write()
	return nil
}
