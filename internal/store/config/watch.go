package config

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/commvault-exporter/commvault-exporter/internal/syslog"
)

// Watch reloads the store whenever the config file changes on disk.
// It runs until ctx is cancelled. A failed reload keeps the previous
// config active so a half-written file never takes down probing.
func (s *Store) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.path); err != nil {
		return err
	}

	syslog.L.Info().WithField("path", s.path).WithMessage("watching config for changes").Write()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			// Editors often save via rename, so catch Create as well.
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if err := s.Reload(); err != nil {
				syslog.L.Error(err).WithMessage("config reload failed, keeping previous config").Write()
				continue
			}

			syslog.L.Info().WithFields(map[string]interface{}{
				"path":    s.path,
				"targets": len(s.Config().Targets),
			}).WithMessage("config reloaded").Write()

			// Re-add in case an atomic save replaced the inode.
			_ = watcher.Add(s.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			syslog.L.Error(err).WithMessage("config watcher error").Write()
		}
	}
}
