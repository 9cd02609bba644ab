package transmitter

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"mcast/internal/util/logger/sl"
)

const DefaultDebounce = 100 * time.Millisecond

// WatchFile transmits the content of path every time the file is written,
// until ctx is cancelled. Bursts of events closer than debounce apart result
// in a single datagram.
func (t *Transmitter) WatchFile(ctx context.Context, path string, debounce time.Duration) error {
	const op = "transmitter.WatchFile"
	log := t.log.With(slog.String("op", op), slog.String("path", path))

	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	target := filepath.Clean(path)
	// editors often replace files instead of writing them in place, so the
	// directory is watched and events are filtered by name
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	log.Info("watching file")

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
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			data, err := os.ReadFile(target)
			if err != nil {
				log.Warn("read watched file", sl.Err(err))
				continue
			}
			if err := t.Transmit(data); err != nil {
				continue
			}
			log.Debug("file transmitted", slog.Int("bytes", len(data)))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", sl.Err(err))
		}
	}
}
