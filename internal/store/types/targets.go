package types

import (
	"errors"
	"time"
)

var ErrInvalidTarget = errors.New("target is missing required fields")

// Target holds the connection settings for one Commvault instance.
// Immutable for the lifetime of a probe once resolved from the store.
type Target struct {
	APIURL         string `toml:"api_url" json:"api_url"`
	Username       string `toml:"username" json:"-"`
	Password       string `toml:"password" json:"-"`
	TimeoutSeconds int    `toml:"timeout" json:"timeout"`
	SkipTLSVerify  bool   `toml:"skip_tls_verify" json:"skip_tls_verify"`
	Version        string `toml:"version" json:"version,omitempty"`
	CommserveName  string `toml:"commserve_name" json:"commserve_name,omitempty"`
}

func (t Target) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

// Validate reports whether the target carries everything a client needs
// to authenticate. Probes against an invalid target fail before any
// network call is made.
func (t Target) Validate() error {
	if t.APIURL == "" || t.Username == "" || t.Password == "" {
		return ErrInvalidTarget
	}
	return nil
}
