package syslog

import (
	"sync"

	"github.com/rs/zerolog"
)

type Logger struct {
	mu       sync.RWMutex
	zlog     *zerolog.Logger
	disabled bool
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Target  string         `json:"target,omitempty"`
	Err     error          `json:"-"`
	Fields  map[string]any `json:"fields,omitempty"`
	logger  *Logger        `json:"-"`
}
