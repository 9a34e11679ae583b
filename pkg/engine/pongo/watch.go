package pongo

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-viewresolver/pkg/resolve"
)

// Flusher is anything holding compiled templates that must be dropped when
// sources change.
type Flusher interface {
	Flush()
}

// WatchConfig holds watcher configuration options.
type WatchConfig struct {
	// Roots are host directories watched recursively.
	Roots       []string
	DebounceDur time.Duration
	Logger      zerolog.Logger
}

// Watcher flushes a Flusher when template files under its roots change.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	target    Flusher
	roots     []string
	debounce  time.Duration
	logger    zerolog.Logger

	flushed  chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for target. Call Start to begin watching.
func NewWatcher(target Flusher, cfg WatchConfig) (*Watcher, error) {
	if target == nil {
		return nil, errors.New("pongo: watcher target is required")
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("pongo: creating fsnotify watcher: %w", err)
	}

	debounce := cfg.DebounceDur
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}

	return &Watcher{
		fsWatcher: fsw,
		target:    target,
		roots:     cfg.Roots,
		debounce:  debounce,
		logger:    cfg.Logger,
		flushed:   make(chan struct{}, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start registers every directory under the roots and begins the event loop.
// The returned channel receives a signal after each flush.
func (w *Watcher) Start() (<-chan struct{}, error) {
	for _, root := range w.roots {
		if err := w.addTree(root); err != nil {
			return nil, err
		}
	}

	go w.loop()

	return w.flushed, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsWatcher.Close()
	})
	return err
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("pongo: watching %s: %w", path, err)
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.fsWatcher.Add(path); err != nil {
			return fmt.Errorf("pongo: watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending <-chan time.Time
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// new theme or namespace directories need their own watch
				if err := w.addTree(event.Name); err != nil {
					w.logger.Warn().Err(err).Str("path", event.Name).Msg("template watcher add failed")
				}
			}
			if !w.isRelevantEvent(event) {
				continue
			}

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			w.target.Flush()
			w.logger.Debug().Msg("templates changed")
			select {
			case w.flushed <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn().Err(err).Msg("template watcher error")

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// isRelevantEvent reports template writes, creations, renames and removals.
// Directory removals are included since they can hide whole themes.
func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(event.Name), ".")
	return ext == resolve.Extension || ext == ""
}
