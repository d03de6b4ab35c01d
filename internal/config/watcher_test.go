package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewWatcherDefaults(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{ConfigDir: "/tmp/test"})

	if watcher == nil {
		t.Fatal("Expected non-nil watcher")
	}
	if watcher.config.WatchInterval != DefaultWatchInterval {
		t.Errorf("Expected WatchInterval to be %v, got %v", DefaultWatchInterval, watcher.config.WatchInterval)
	}
}

func TestWatcher_StartStop(t *testing.T) {
	dir := t.TempDir()

	watcher := NewWatcher(WatcherConfig{ConfigDir: dir})

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !watcher.IsRunning() {
		t.Error("Expected watcher to be running")
	}

	// Starting again should be a no-op
	if err := watcher.Start(); err != nil {
		t.Fatalf("Second Start failed: %v", err)
	}

	if err := watcher.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if watcher.IsRunning() {
		t.Error("Expected watcher to be stopped")
	}

	// Stopping again should be a no-op
	if err := watcher.Stop(); err != nil {
		t.Fatalf("Second Stop failed: %v", err)
	}
}

func TestWatcher_IsRelevantFile(t *testing.T) {
	watcher := NewWatcher(WatcherConfig{ConfigDir: "/tmp/test"})

	tests := []struct {
		fileName string
		relevant bool
	}{
		{"settings.yaml", true},
		{"selectors.yaml", true},
		{"instructions.yaml", true},
		{"settings.yaml.swp", false},
		{"notes.txt", false},
		{"request.yaml", false},
	}

	for _, test := range tests {
		if got := watcher.isRelevantFile(test.fileName); got != test.relevant {
			t.Errorf("isRelevantFile(%q) = %v, expected %v", test.fileName, got, test.relevant)
		}
	}
}

func TestWatcher_ReloadsOnValidChange(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	var lastProvider atomic.Value

	watcher := NewWatcher(WatcherConfig{
		ConfigDir: dir,
		OnChange: func(cfg *Config) {
			reloads.Add(1)
			lastProvider.Store(cfg.Settings.Provider)
		},
	})

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	settings := "provider: llm\nfallback:\n  enabled: true\n  provider: dom\n"
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte(settings), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	// Debounce is 500ms; allow generous slack for slow CI filesystems.
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if reloads.Load() > 0 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if reloads.Load() == 0 {
		t.Fatal("Expected a reload after settings.yaml change")
	}
	if got := lastProvider.Load(); got != "llm" {
		t.Errorf("Expected reloaded provider to be llm, got %v", got)
	}
}

func TestWatcher_KeepsPreviousConfigOnInvalidChange(t *testing.T) {
	dir := t.TempDir()

	var reloads atomic.Int32
	watcher := NewWatcher(WatcherConfig{
		ConfigDir: dir,
		OnChange: func(cfg *Config) {
			reloads.Add(1)
		},
	})

	if err := watcher.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer watcher.Stop()

	// An invalid provider fails validation; the callback must not fire.
	if err := os.WriteFile(filepath.Join(dir, "settings.yaml"), []byte("provider: webhook\n"), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	time.Sleep(1500 * time.Millisecond)

	if reloads.Load() != 0 {
		t.Errorf("Expected no reload for invalid configuration, got %d", reloads.Load())
	}
}

func TestWatcher_PollingDetectsChanges(t *testing.T) {
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, "settings.yaml")
	if err := os.WriteFile(settingsPath, []byte("provider: dom\n"), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}

	watcher := NewWatcher(WatcherConfig{ConfigDir: dir, WatchInterval: 50 * time.Millisecond})
	watcher.updateModTimes()

	if watcher.checkForChanges() {
		t.Error("Expected no changes right after updateModTimes")
	}

	// Backdate then rewrite so ModTime moves forward even on coarse clocks.
	past := time.Now().Add(-time.Minute)
	if err := os.Chtimes(settingsPath, past, past); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	watcher.updateModTimes()

	if err := os.WriteFile(settingsPath, []byte("provider: llm\n"), 0644); err != nil {
		t.Fatalf("Failed to rewrite settings: %v", err)
	}

	if !watcher.checkForChanges() {
		t.Error("Expected checkForChanges to detect the rewrite")
	}
}
