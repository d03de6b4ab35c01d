package config

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"presswork/pkg/logging"
)

// WatcherConfig holds configuration for the bundle watcher.
type WatcherConfig struct {
	// ConfigDir is the directory containing the configuration files.
	ConfigDir string

	// WatchInterval is the fallback polling interval when fsnotify is not
	// available.
	WatchInterval time.Duration

	// OnChange receives the freshly loaded configuration after an edit
	// passes validation. It is never called with an invalid configuration:
	// a bad edit is logged and the previous configuration stays active.
	OnChange func(*Config)
}

// DefaultWatchInterval is the polling fallback interval.
const DefaultWatchInterval = 10 * time.Second

// DefaultDebounceInterval is the time to wait before reloading after the
// last file change, so an editor writing several files triggers one reload.
const DefaultDebounceInterval = 500 * time.Millisecond

// Watcher monitors the config directory in daemon mode and hot-reloads the
// settings and bundles. It uses fsnotify for efficient file system
// monitoring with a fallback to polling for environments where fsnotify is
// not available or reliable.
type Watcher struct {
	mu sync.Mutex

	config WatcherConfig

	// fsWatcher is the fsnotify watcher (may be nil if fsnotify is unavailable)
	fsWatcher *fsnotify.Watcher

	// stopCh signals the watcher to stop
	stopCh chan struct{}

	// running indicates if the watcher is active
	running bool

	// lastModTimes tracks the last modification times for fallback polling
	lastModTimes map[string]time.Time

	// debounceTimer helps prevent rapid successive reloads
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
}

// NewWatcher creates a new config watcher.
func NewWatcher(config WatcherConfig) *Watcher {
	if config.WatchInterval == 0 {
		config.WatchInterval = DefaultWatchInterval
	}

	return &Watcher{
		config:       config,
		lastModTimes: make(map[string]time.Time),
	}
}

// Start begins watching for configuration changes.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	w.stopCh = make(chan struct{})
	w.running = true

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logging.Warn("ConfigWatcher", "fsnotify not available, falling back to polling: %v", err)
		go w.pollForChanges()
		return nil
	}

	w.fsWatcher = watcher

	if err := w.fsWatcher.Add(w.config.ConfigDir); err != nil {
		logging.Warn("ConfigWatcher", "Failed to watch directory %s, falling back to polling: %v",
			w.config.ConfigDir, err)
		w.fsWatcher.Close()
		w.fsWatcher = nil
		go w.pollForChanges()
		return nil
	}

	// Capture channels before releasing lock to avoid race conditions
	eventsCh := w.fsWatcher.Events
	errorsCh := w.fsWatcher.Errors

	go w.processEvents(eventsCh, errorsCh)

	logging.Info("ConfigWatcher", "Started watching %s for configuration changes", w.config.ConfigDir)
	return nil
}

// processEvents handles fsnotify events.
// The channels are passed as parameters to avoid race conditions with Stop().
func (w *Watcher) processEvents(eventsCh <-chan fsnotify.Event, errorsCh <-chan error) {
	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-eventsCh:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-errorsCh:
			if !ok {
				return
			}
			logging.Error("ConfigWatcher", err, "fsnotify error")
		}
	}
}

// handleEvent processes a single fsnotify event.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	fileName := filepath.Base(event.Name)
	if !w.isRelevantFile(fileName) {
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	logging.Debug("ConfigWatcher", "Configuration file changed: %s", event.Name)

	w.triggerReloadDebounced()
}

// isRelevantFile checks if a filename is one of the configuration files we
// care about.
func (w *Watcher) isRelevantFile(fileName string) bool {
	return fileName == settingsFileName ||
		fileName == selectorsFileName ||
		fileName == instructionsFileName
}

// triggerReloadDebounced reloads after a debounce period. This prevents
// multiple rapid reloads when several files change at once.
func (w *Watcher) triggerReloadDebounced() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}

	w.debounceTimer = time.AfterFunc(DefaultDebounceInterval, func() {
		w.mu.Lock()
		running := w.running
		callback := w.config.OnChange
		dir := w.config.ConfigDir
		w.mu.Unlock()

		if !running || callback == nil {
			return
		}

		cfg, err := Load(dir)
		if err != nil {
			logging.Error("ConfigWatcher", err, "Rejected configuration reload from %s, keeping previous configuration", dir)
			return
		}

		logging.Info("ConfigWatcher", "Configuration reloaded from %s", dir)
		callback(cfg)
	})
}

// pollForChanges implements fallback polling when fsnotify is not available.
func (w *Watcher) pollForChanges() {
	ticker := time.NewTicker(w.config.WatchInterval)
	defer ticker.Stop()

	// Initialize last modification times
	w.updateModTimes()

	for {
		select {
		case <-w.stopCh:
			return

		case <-ticker.C:
			if w.checkForChanges() {
				logging.Debug("ConfigWatcher", "Configuration changes detected via polling")
				w.triggerReloadDebounced()
			}
		}
	}
}

func (w *Watcher) watchedFiles() []string {
	return []string{
		filepath.Join(w.config.ConfigDir, settingsFileName),
		filepath.Join(w.config.ConfigDir, selectorsFileName),
		filepath.Join(w.config.ConfigDir, instructionsFileName),
	}
}

// updateModTimes updates the stored modification times for all watched files.
func (w *Watcher) updateModTimes() {
	for _, file := range w.watchedFiles() {
		if info, err := os.Stat(file); err == nil {
			w.lastModTimes[file] = info.ModTime()
		}
	}
}

// checkForChanges checks if any watched files have been modified.
func (w *Watcher) checkForChanges() bool {
	changed := false

	for _, file := range w.watchedFiles() {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}

		currentModTime := info.ModTime()
		if lastModTime, exists := w.lastModTimes[file]; exists {
			if currentModTime.After(lastModTime) {
				changed = true
			}
		}
		w.lastModTimes[file] = currentModTime
	}

	return changed
}

// Stop gracefully stops the watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}

	w.running = false
	close(w.stopCh)

	// Cancel any pending debounce timer
	w.debounceMu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
		w.debounceTimer = nil
	}
	w.debounceMu.Unlock()

	if w.fsWatcher != nil {
		if err := w.fsWatcher.Close(); err != nil {
			logging.Warn("ConfigWatcher", "Error closing fsnotify watcher: %v", err)
		}
		w.fsWatcher = nil
	}

	logging.Info("ConfigWatcher", "Stopped configuration watcher")
	return nil
}

// IsRunning returns whether the watcher is currently active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
