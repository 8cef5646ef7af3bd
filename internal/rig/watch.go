package rig

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-rig/internal/config"
)

const (
	// reloadDelay coalesces the burst of events an editor or exporter
	// produces when it rewrites a file.
	reloadDelay = 150 * time.Millisecond
	// maxReloadWait bounds how long a steady stream of changes can postpone
	// a reload.
	maxReloadWait = time.Second
)

// Watch reloads the rig whenever one of its data files changes and hands
// every successfully loaded rig to onReload. A reload runs reloadDelay after
// the last change, or maxReloadWait after the first unhandled change when
// files keep changing. A failed reload is logged and the previous rig stays
// current. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, cfg *config.Config, onReload func(*Rig)) error {
	log := newLogger()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "creating file watcher")
	}
	defer w.Close()

	// Watch directories, not files: exporters often replace a file instead
	// of writing it in place.
	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, f := range cfg.Data.Files() {
		abs, err := filepath.Abs(f)
		if err != nil {
			return errors.Wrapf(err, "resolving %s", f)
		}
		files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return errors.Wrapf(err, "watching %s", dir)
		}
	}
	log.Info("watching rig files", zap.Int("files", len(files)), zap.Int("dirs", len(dirs)))

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	// firstChange is the time of the oldest change not yet reloaded.
	var firstChange time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(e.Name)
			if err != nil || !files[abs] {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			log.Debug("rig file changed", zap.String("file", abs), zap.Stringer("op", e.Op))
			if firstChange.IsZero() {
				firstChange = time.Now()
			}
			timer.Reset(nextReload(firstChange, time.Now()))

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("file watcher error", zap.Error(err))

		case <-timer.C:
			firstChange = time.Time{}
			r, err := Load(cfg.Data, cfg.Animation)
			if err != nil {
				log.Error("reload failed", zap.Error(err))
				continue
			}
			log.Info("rig reloaded", zap.Int("bones", r.Armature().NumBones()))
			onReload(r)
		}
	}
}

// nextReload returns the debounce delay for a change seen at now when the
// oldest pending change was seen at first.
func nextReload(first, now time.Time) time.Duration {
	delay := reloadDelay
	if left := maxReloadWait - now.Sub(first); left < delay {
		delay = left
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}
