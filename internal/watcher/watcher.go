// Package watcher monitors the input directory for newly added meeting
// folders and feeds them to a handler as soon as their transcript appears.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mwhitby/summit/internal/meeting"
	"github.com/mwhitby/summit/pkg/logger"
)

// settleDelay gives the writer time to finish the transcript file before we
// scan the folder
const settleDelay = 2 * time.Second

// Handler processes one discovered meeting
type Handler func(ctx context.Context, m meeting.Meeting) error

// Watcher monitors the input directory. fsnotify is not recursive, so new
// meeting subdirectories are added to the watch set as they appear.
type Watcher struct {
	inputDir string
	scanner  *meeting.Scanner
	handler  Handler
	logger   *logger.Logger
	watcher  *fsnotify.Watcher

	mu        sync.Mutex
	processed map[string]bool // meeting dirs already handed off
	wg        sync.WaitGroup
}

// New creates a Watcher over inputDir
func New(inputDir string, scanner *meeting.Scanner, handler Handler, log *logger.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(inputDir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	w := &Watcher{
		inputDir:  inputDir,
		scanner:   scanner,
		handler:   handler,
		logger:    log.Named("watcher"),
		watcher:   fsw,
		processed: make(map[string]bool),
	}

	// Watch pre-existing meeting folders so a transcript dropped into one
	// later is still picked up.
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			if err := fsw.Add(filepath.Join(inputDir, e.Name())); err != nil {
				w.logger.Warn("Failed to watch existing folder",
					logger.String("dir", e.Name()),
					logger.Error(err))
			}
		}
	}

	return w, nil
}

// MarkProcessed excludes meeting dirs that were already handled, typically
// by the initial batch run.
func (w *Watcher) MarkProcessed(dirs ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, d := range dirs {
		w.processed[filepath.Clean(d)] = true
	}
}

// Start blocks, dispatching discovered meetings to the handler until the
// context is cancelled
func (w *Watcher) Start(ctx context.Context) error {
	w.logger.Info("Watch mode started", logger.String("dir", w.inputDir))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Waiting for in-flight meetings to finish")
			w.wg.Wait()
			w.logger.Info("Watch mode stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("Watcher error", logger.Error(err))
		}
	}
}

// Stop closes the underlying fsnotify watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&fsnotify.Create == 0 {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		// New meeting folder at the top level: watch it for its transcript
		if filepath.Dir(event.Name) == filepath.Clean(w.inputDir) {
			if err := w.watcher.Add(event.Name); err != nil {
				w.logger.Warn("Failed to watch new folder",
					logger.String("dir", event.Name),
					logger.Error(err))
				return
			}
			w.logger.Info("Watching new meeting folder", logger.String("dir", event.Name))
			// The transcript may have been moved in together with the folder
			w.maybeDispatch(ctx, event.Name)
		}
		return
	}

	if strings.EqualFold(filepath.Ext(event.Name), ".vtt") {
		w.maybeDispatch(ctx, filepath.Dir(event.Name))
	}
}

// maybeDispatch hands the meeting folder to the handler once, if it holds a
// transcript
func (w *Watcher) maybeDispatch(ctx context.Context, dir string) {
	dir = filepath.Clean(dir)
	if dir == filepath.Clean(w.inputDir) {
		// Bare transcripts at the top level are not meetings
		return
	}

	w.mu.Lock()
	if w.processed[dir] {
		w.mu.Unlock()
		return
	}
	w.processed[dir] = true
	w.mu.Unlock()

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		// Give the writer time to finish the file
		select {
		case <-time.After(settleDelay):
		case <-ctx.Done():
			return
		}

		m, ok, err := w.scanner.ScanFolder(dir)
		if err != nil || !ok {
			if err != nil {
				w.logger.Warn("Failed to scan folder",
					logger.String("dir", dir),
					logger.Error(err))
			}
			// Allow a retry when the transcript shows up later
			w.mu.Lock()
			delete(w.processed, dir)
			w.mu.Unlock()
			return
		}

		w.logger.Info("New meeting detected", logger.String("meeting", m.Name))
		if err := w.handler(ctx, m); err != nil {
			w.logger.Error("Failed to process meeting",
				logger.String("meeting", m.Name),
				logger.Error(err))
		}
	}()
}
