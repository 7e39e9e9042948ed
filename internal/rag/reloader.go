package rag

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 250 * time.Millisecond

// Reloader keeps an Index in sync with a knowledge base file.
type Reloader struct {
	path     string
	index    *Index
	logger   *zap.Logger
	debounce time.Duration

	// OnReload, when set, is called after every reload attempt.
	OnReload func(stats IndexStats, err error)

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewReloader creates a Reloader for the file at path.
func NewReloader(path string, index *Index, logger *zap.Logger) *Reloader {
	return &Reloader{
		path:     path,
		index:    index,
		logger:   logger,
		debounce: defaultReloadDebounce,
	}
}

// Reload reads the file and rebuilds the index. On failure the previously
// published snapshot stays active.
func (r *Reloader) Reload(ctx context.Context) error {
	err := r.reload(ctx)
	if r.OnReload != nil {
		r.OnReload(r.index.Stats(), err)
	}
	return err
}

func (r *Reloader) reload(ctx context.Context) error {
	store, err := LoadDocumentsFile(r.path)
	if err != nil {
		return err
	}
	if err := r.index.Rebuild(ctx, store); err != nil {
		return fmt.Errorf("rebuild index from %s: %w", r.path, err)
	}
	return nil
}

// Watch starts watching the file's directory and reloads after changes to
// the file settle. It returns once the watcher is registered; watching stops
// when ctx is done or Close is called.
func (r *Reloader) Watch(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.watcher != nil {
		return fmt.Errorf("already watching %s", r.path)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(r.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(r.path), err)
	}

	r.watcher = watcher
	r.done = make(chan struct{})
	go r.loop(ctx, watcher, r.done)

	r.logger.Info("watching knowledge base", zap.String("path", r.path))
	return nil
}

// Close stops watching. It is safe to call when not watching.
func (r *Reloader) Close() error {
	r.mu.Lock()
	watcher, done := r.watcher, r.done
	r.watcher, r.done = nil, nil
	r.mu.Unlock()

	if watcher == nil {
		return nil
	}
	err := watcher.Close()
	<-done
	return err
}

func (r *Reloader) loop(ctx context.Context, watcher *fsnotify.Watcher, done chan struct{}) {
	defer close(done)

	target := filepath.Clean(r.path)
	var timer *time.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			watcher.Close()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(r.debounce)
			} else {
				timer.Reset(r.debounce)
			}
			fire = timer.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("knowledge base watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			if err := r.Reload(ctx); err != nil {
				r.logger.Error("knowledge base reload failed, keeping previous index",
					zap.String("path", r.path),
					zap.Error(err))
				continue
			}
			r.logger.Info("knowledge base reloaded", zap.String("path", r.path))
		}
	}
}
