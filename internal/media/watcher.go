package media

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports when the files of a layout change so the working set can
// be rebuilt. Bursts of events are coalesced into one notification once the
// directory has been quiet for the debounce interval.
type Watcher struct {
	watcher  *fsnotify.Watcher
	root     string
	debounce time.Duration
	changes  chan struct{}
	errors   chan error

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Watch starts watching the root and every season directory of layout.
func Watch(ctx context.Context, layout Layout, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	paths := []string{layout.Root}
	for _, sd := range layout.Seasons {
		paths = append(paths, sd.Path)
	}
	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			fw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		watcher:  fw,
		root:     layout.Root,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		errors:   make(chan error, 1),
		cancel:   cancel,
	}
	w.wg.Add(1)
	go w.loop(ctx)
	return w, nil
}

// Changes delivers one value per quiet period after relevant changes.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Errors delivers watcher errors. Errors arriving while one is unread are
// dropped.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Close stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create && filepath.Dir(event.Name) == w.root && IsSeasonDir(filepath.Base(event.Name)) {
				_ = w.watcher.Add(event.Name)
			}
			timer.Reset(w.debounce)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// relevant filters events down to season directories and video files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	name := filepath.Base(event.Name)
	if filepath.Dir(event.Name) == w.root {
		return IsSeasonDir(name)
	}
	return IsVideo(name)
}
