package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cvcoach/internal/errors"

	"github.com/fsnotify/fsnotify"
)

// PromptWatcher reloads a PromptStore whenever a file in its directory changes
type PromptWatcher struct {
	mu sync.Mutex

	store         *PromptStore
	fsWatcher     *fsnotify.Watcher
	debounceDelay time.Duration
	debounceTimer *time.Timer

	stopChan   chan struct{}
	reloadChan chan struct{}

	logger  *errors.Logger
	running bool
	reloads int
}

// NewPromptWatcher creates a watcher for the store's directory
func NewPromptWatcher(store *PromptStore, debounceDelay time.Duration, logger *errors.Logger) (*PromptWatcher, error) {
	if store == nil || store.Dir() == "" {
		return nil, fmt.Errorf("prompt watcher requires a store with a directory")
	}
	if debounceDelay <= 0 {
		debounceDelay = 500 * time.Millisecond
	}
	return &PromptWatcher{
		store:         store,
		debounceDelay: debounceDelay,
		stopChan:      make(chan struct{}),
		reloadChan:    make(chan struct{}, 1),
		logger:        logger,
	}, nil
}

// Start begins watching the prompt directory
func (pw *PromptWatcher) Start() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.running {
		return fmt.Errorf("prompt watcher is already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(pw.store.Dir()); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", pw.store.Dir(), err)
	}
	pw.fsWatcher = watcher
	pw.running = true
	go pw.watchLoop()

	if pw.logger != nil {
		pw.logger.Info("Prompt watcher started", "directory", pw.store.Dir(), "debounce_delay", pw.debounceDelay)
	}
	return nil
}

// Stop stops the watcher
func (pw *PromptWatcher) Stop() error {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if !pw.running {
		return nil
	}
	close(pw.stopChan)
	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.running = false
	if err := pw.fsWatcher.Close(); err != nil {
		if pw.logger != nil {
			pw.logger.LogError(err, "Failed to close file system watcher")
		}
		return err
	}
	return nil
}

// Reloads returns how many reloads have been applied
func (pw *PromptWatcher) Reloads() int {
	pw.mu.Lock()
	defer pw.mu.Unlock()
	return pw.reloads
}

func (pw *PromptWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-pw.fsWatcher.Events:
			if !ok {
				return
			}
			if shouldReloadPrompt(event) {
				pw.scheduleReload()
			}

		case err, ok := <-pw.fsWatcher.Errors:
			if !ok {
				return
			}
			if pw.logger != nil {
				pw.logger.LogError(err, "Prompt watcher error")
			}

		case <-pw.reloadChan:
			if err := pw.store.Reload(); err != nil {
				if pw.logger != nil {
					pw.logger.LogError(err, "Failed to reload prompt overrides")
				}
				continue
			}
			pw.mu.Lock()
			pw.reloads++
			pw.mu.Unlock()

		case <-pw.stopChan:
			return
		}
	}
}

func shouldReloadPrompt(event fsnotify.Event) bool {
	if !strings.HasSuffix(filepath.Base(event.Name), promptFileExtension) {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) != 0
}

// scheduleReload debounces bursts of editor writes into one reload
func (pw *PromptWatcher) scheduleReload() {
	pw.mu.Lock()
	defer pw.mu.Unlock()

	if pw.debounceTimer != nil {
		pw.debounceTimer.Stop()
	}
	pw.debounceTimer = time.AfterFunc(pw.debounceDelay, func() {
		select {
		case pw.reloadChan <- struct{}{}:
		default:
		}
	})
}
