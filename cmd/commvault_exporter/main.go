package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/commvault-exporter/commvault-exporter/internal/commvault"
	"github.com/commvault-exporter/commvault-exporter/internal/store/config"
	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
	"github.com/commvault-exporter/commvault-exporter/internal/web"

	// Sets GOMEMLIMIT from the cgroup memory limit.
	_ "github.com/KimMachineGun/automemlimit"
)

var Version = "v0.0.0"

func main() {
	configPath := flag.String("config", "/etc/commvault-exporter/config.toml", "Path to the TOML configuration file")
	portOverride := flag.Int("port", 0, "Override the configured listen port")
	flag.Parse()

	store, err := config.NewStore(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}

	cfg := store.Config()
	if cfg.Exporter.LogFile != "" {
		syslog.L.SetLogFile(cfg.Exporter.LogFile)
	}
	if err := syslog.L.SetLevel(cfg.Exporter.LogLevel); err != nil {
		fmt.Fprintf(os.Stderr, "configuration validation failed: %v\n", err)
		os.Exit(1)
	}

	if len(cfg.Targets) == 0 {
		syslog.L.Warn().WithMessage("no targets defined in configuration, /probe requests will fail to find targets").Write()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := store.Watch(ctx); err != nil {
			syslog.L.Error(err).WithMessage("config watcher stopped").Write()
		}
	}()

	tokens := commvault.NewTokenCache()
	apiServer := web.NewServer(store, tokens)
	if *portOverride > 0 {
		apiServer.Addr = fmt.Sprintf(":%d", *portOverride)
	}

	syslog.L.Info().WithFields(map[string]interface{}{
		"version": Version,
		"addr":    apiServer.Addr,
		"targets": len(cfg.Targets),
	}).WithMessage("starting commvault exporter").Write()

	if err := web.Serve(ctx, apiServer); err != nil {
		syslog.L.Error(err).WithMessage("exporter server failed").Write()
		os.Exit(1)
	}

	syslog.L.Info().WithMessage("exporter stopped").Write()
}
