package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/BurntSushi/toml"

	"github.com/commvault-exporter/commvault-exporter/internal/store/types"
)

var ErrTargetNotFound = errors.New("target not found in configuration")

const DefaultPort = 9657

type ExporterConfig struct {
	Port           int    `toml:"port"`
	LogLevel       string `toml:"log_level"`
	LogFile        string `toml:"log_file"`
	TimeoutSeconds int    `toml:"timeout"`
}

type AppConfig struct {
	Exporter ExporterConfig          `toml:"exporter"`
	Targets  map[string]types.Target `toml:"targets"`
}

// Load reads the TOML config at path. A missing file is not an error:
// defaults are written to disk so the operator has a template to fill in.
// Environment overrides (EXPORTER_PORT, EXPORTER_LOG_LEVEL,
// EXPORTER_TIMEOUT) are applied last.
func Load(path string) (*AppConfig, error) {
	cfg := createDefaults()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := saveToDisk(path, cfg); err != nil {
			return nil, err
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("Load: failed to decode config -> %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.Exporter.Port <= 0 || cfg.Exporter.Port > 65535 {
		return nil, fmt.Errorf("Load: invalid exporter port %d", cfg.Exporter.Port)
	}

	// Targets without their own timeout inherit the exporter-wide one.
	for name, target := range cfg.Targets {
		if target.TimeoutSeconds <= 0 {
			target.TimeoutSeconds = cfg.Exporter.TimeoutSeconds
			cfg.Targets[name] = target
		}
	}

	return cfg, nil
}

func createDefaults() *AppConfig {
	return &AppConfig{
		Exporter: ExporterConfig{
			Port:           DefaultPort,
			LogLevel:       "info",
			TimeoutSeconds: 30,
		},
		Targets: make(map[string]types.Target),
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("EXPORTER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Exporter.Port = port
		}
	}
	if v := os.Getenv("EXPORTER_LOG_LEVEL"); v != "" {
		cfg.Exporter.LogLevel = v
	}
	if v := os.Getenv("EXPORTER_TIMEOUT"); v != "" {
		if timeout, err := strconv.Atoi(v); err == nil {
			cfg.Exporter.TimeoutSeconds = timeout
		}
	}
}

func saveToDisk(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}

// Store holds the active configuration behind an atomic pointer so that
// concurrent probes always read a consistent snapshot while the watcher
// swaps in reloaded configs.
type Store struct {
	path    string
	current atomic.Pointer[AppConfig]
}

func NewStore(path string) (*Store, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	s := &Store{path: path}
	s.current.Store(cfg)
	return s, nil
}

func (s *Store) Config() *AppConfig {
	return s.current.Load()
}

func (s *Store) ExporterPort() int {
	return s.current.Load().Exporter.Port
}

// Target resolves the configuration of one named target.
func (s *Store) Target(name string) (types.Target, error) {
	target, ok := s.current.Load().Targets[name]
	if !ok {
		return types.Target{}, fmt.Errorf("Target: %q -> %w", name, ErrTargetNotFound)
	}
	return target, nil
}

// AllTargets returns a copy of the configured target map.
func (s *Store) AllTargets() map[string]types.Target {
	targets := s.current.Load().Targets
	out := make(map[string]types.Target, len(targets))
	for name, target := range targets {
		out[name] = target
	}
	return out
}

// Reload re-reads the config file and swaps it in. On failure the
// previous config remains active.
func (s *Store) Reload() error {
	cfg, err := Load(s.path)
	if err != nil {
		return err
	}
	s.current.Store(cfg)
	return nil
}
