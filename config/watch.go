package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"go.viam.com/crowdsim/logging"
)

// DefaultWatchDebounce is how long Watch waits for writes to a config file to settle.
const DefaultWatchDebounce = 200 * time.Millisecond

// Watch re-reads the config at path whenever it changes and passes each valid result to
// onChange. Configs that fail to read or validate are logged and skipped. Watch blocks until ctx
// is done and then returns nil.
//
// The directory holding path is watched rather than the file itself so editors that replace the
// file on save are followed.
func Watch(ctx context.Context, path string, logger logging.Logger, onChange func(*Config)) error {
	return watch(ctx, path, DefaultWatchDebounce, logger, onChange)
}

func watch(
	ctx context.Context,
	path string,
	settle time.Duration,
	logger logging.Logger,
	onChange func(*Config),
) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "cannot create config watcher")
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			logger.Warnw("error closing config watcher", "error", err)
		}
	}()
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		return errors.Wrapf(err, "cannot watch %q", path)
	}

	reload := func() {
		if ctx.Err() != nil {
			return
		}
		cfg, err := Read(ctx, absPath, logger)
		if err != nil {
			logger.Warnw("ignoring invalid config change", "path", absPath, "error", err)
			return
		}
		logger.Infow("config changed", "path", absPath)
		onChange(cfg)
	}
	debounced := debounce.New(settle)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != absPath {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				debounced(reload)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("config watcher error", "error", err)
		}
	}
}
