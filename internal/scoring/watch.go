package scoring

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/ajharbinger/lead-funnel/internal/logger"
)

// WatchCalibrationFile reloads the calibration at path into registry every
// time the file is written or replaced. It runs until ctx is cancelled.
//
// The parent directory is watched rather than the file, so saves that
// rename a temporary file over path keep being picked up.
//
// A reload that fails to parse or validate is logged and the previously
// registered calibration stays active.
func WatchCalibrationFile(ctx context.Context, path string, registry *Registry, log logger.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	log.Info("Watching calibration file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			cal, err := LoadCalibrationFile(path)
			if err != nil {
				registry.Reloads().RecordFailure(path, err)
				log.Error("Calibration reload failed, keeping previous", err, "path", path)
				continue
			}
			if err := registry.Put(cal); err != nil {
				registry.Reloads().RecordFailure(path, err)
				log.Error("Calibration reload rejected, keeping previous", err, "path", path)
				continue
			}
			registry.Reloads().RecordSuccess(cal.ID)

			log.Info("Calibration reloaded", "path", path, "calibration_id", cal.ID)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("Calibration watcher error", err, "path", path)
		}
	}
}
