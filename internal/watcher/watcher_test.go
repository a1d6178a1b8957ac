package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/steamlink/steamlink/internal/config"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "callback-port: 4000\n")

	reloaded := make(chan *config.Config, 4)
	w, err := NewWatcher(configPath, func(cfg *config.Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })

	initial, err := config.LoadConfig(configPath)
	if err != nil {
		t.Fatal(err)
	}
	w.SetConfig(initial)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err = w.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	writeFile(t, configPath, "callback-port: 4001\n")

	select {
	case cfg := <-reloaded:
		if cfg.CallbackPort != 4001 {
			t.Fatalf("reloaded port = %d, want 4001", cfg.CallbackPort)
		}
		if w.Config().CallbackPort != 4001 {
			t.Fatalf("Config() port = %d, want 4001", w.Config().CallbackPort)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after config write")
	}
}

func TestReloadSkipsUnchangedContent(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "debug: true\n")

	calls := 0
	w := &Watcher{configPath: configPath, reloadCallback: func(*config.Config) { calls++ }}

	w.reloadConfigIfChanged()
	w.reloadConfigIfChanged()
	if calls != 1 {
		t.Fatalf("reload callback calls = %d, want 1", calls)
	}

	writeFile(t, configPath, "debug: false\n")
	w.reloadConfigIfChanged()
	if calls != 2 {
		t.Fatalf("reload callback calls = %d, want 2", calls)
	}
}

func TestReloadKeepsPreviousConfigOnInvalidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, configPath, "callback-host: 0.0.0.0\n")

	previous := config.Default()
	called := false
	w := &Watcher{configPath: configPath, reloadCallback: func(*config.Config) { called = true }}
	w.SetConfig(previous)

	w.reloadConfigIfChanged()
	if called {
		t.Fatal("callback ran for a rejected config")
	}
	if w.Config() != previous {
		t.Fatal("config replaced by a rejected file")
	}
}

func TestHandleEventIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{configPath: filepath.Join(dir, "config.yaml")}

	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "app.db"), Op: fsnotify.Write})
	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "config.yaml"), Op: fsnotify.Chmod})
	if w.configReloadTimer != nil {
		t.Fatal("reload scheduled for an unrelated event")
	}

	w.handleEvent(fsnotify.Event{Name: filepath.Join(dir, "config.yaml"), Op: fsnotify.Write})
	if w.configReloadTimer == nil {
		t.Fatal("reload not scheduled for a config write")
	}
	w.stopConfigReloadTimer()
}

func TestBuildConfigChangeDetails(t *testing.T) {
	oldCfg := config.Default()
	newCfg := config.Default()
	if details := BuildConfigChangeDetails(oldCfg, newCfg); len(details) != 0 {
		t.Fatalf("details = %v, want none", details)
	}

	newCfg.CallbackPort = 4000
	newCfg.LoginWindowCommand = []string{"chromium", "--app={url}"}
	details := BuildConfigChangeDetails(oldCfg, newCfg)
	if len(details) != 2 {
		t.Fatalf("details = %v, want 2 entries", details)
	}
	if !strings.Contains(details[0], "callback-port: 3456 -> 4000") {
		t.Fatalf("details[0] = %q", details[0])
	}
	if !strings.HasPrefix(details[1], "login-window-command:") {
		t.Fatalf("details[1] = %q", details[1])
	}
	if BuildConfigChangeDetails(nil, newCfg) != nil {
		t.Fatal("nil config should yield no details")
	}
}

func TestNormalizePath(t *testing.T) {
	if got := normalizePath("  "); got != "" {
		t.Fatalf("normalizePath(blank) = %q", got)
	}
	if got := normalizePath("/tmp/a/../config.yaml"); got != filepath.Clean("/tmp/config.yaml") {
		t.Fatalf("normalizePath() = %q", got)
	}
}
