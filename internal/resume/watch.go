package resume

import (
	"context"

	"github.com/fsnotify/fsnotify"

	"github.com/reconctl/reconctl/internal/ports"
)

// DirWatcher watches a checkpoint storage directory for externally
// created or removed checkpoint files (an operator copying a checkpoint
// in from another host, a backup job pruning old ones) and logs each
// change. It is an optional companion to Manager, not required for
// checkpoint creation/resume, which always go through a
// ports.CheckpointBackend instead of the filesystem directly.
type DirWatcher struct {
	watcher *fsnotify.Watcher
	logger  ports.Logger
	done    chan struct{}
}

// WatchDir starts watching dir. Callers must call Close when done.
func WatchDir(dir string, logger ports.Logger) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}

	dw := &DirWatcher{watcher: w, logger: logger, done: make(chan struct{})}
	go dw.loop()
	return dw, nil
}

func (dw *DirWatcher) loop() {
	ctx := context.Background()
	for {
		select {
		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			if dw.logger == nil {
				continue
			}
			switch {
			case event.Op&fsnotify.Create != 0:
				dw.logger.Debug(ctx, "checkpoint file appeared externally", "path", event.Name)
			case event.Op&fsnotify.Remove != 0:
				dw.logger.Debug(ctx, "checkpoint file removed externally", "path", event.Name)
			}
		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			if dw.logger != nil {
				dw.logger.Warn(ctx, "checkpoint directory watch error", "error", err)
			}
		case <-dw.done:
			return
		}
	}
}

// Close stops watching and releases the underlying fsnotify watcher.
func (dw *DirWatcher) Close() error {
	close(dw.done)
	return dw.watcher.Close()
}
