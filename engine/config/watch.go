package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Carmen-Shannon/oxy-graph/common"
	"github.com/fsnotify/fsnotify"
)

// Update is one reload of a watched config file.
type Update struct {
	// Config is the reloaded configuration. It is the zero value when Err is set.
	Config Config

	// Changed lists the sections that differ from the previous configuration.
	Changed []Section

	// Err reports a reload that failed to read, decode or validate. The previous
	// configuration stays in effect.
	Err error
}

// Watch reloads a config file whenever it is written or created, and
// reports reloads that changed at least one section. The parent directory is watched so
// editors that replace the file are followed.
//
// Parameters:
//   - ctx: stops the watcher and closes the channel when done
//   - path: the config file
//   - current: the configuration currently in effect
//
// Returns:
//   - <-chan Update: the reloads
//   - error: error if the watcher cannot be created
func Watch(ctx context.Context, path string, current Config) (<-chan Update, error) {
	path = filepath.Clean(path)
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}

	updates := make(chan Update, 1)
	go func() {
		defer close(updates)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				next, err := Load(path)
				var u Update
				if err != nil {
					common.Logger().Warn("config reload failed", "path", path, "error", err)
					u.Err = err
				} else {
					u.Changed = Diff(current, next)
					if len(u.Changed) == 0 {
						continue
					}
					u.Config = next
					current = next
				}
				select {
				case updates <- u:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				common.Logger().Warn("config watcher error", "path", path, "error", err)
			}
		}
	}()
	return updates, nil
}
