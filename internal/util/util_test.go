package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/steamlink/steamlink/internal/config"
	log "github.com/sirupsen/logrus"
)

func TestResolveDataDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	writable := t.TempDir()

	tests := []struct {
		name     string
		input    string
		writable string
		expected string
	}{
		{"Explicit", "/var/lib/steamlink/", "", filepath.Clean("/var/lib/steamlink")},
		{"Tilde", "~/steam", "", filepath.Join(home, "steam")},
		{"Bare tilde", "~", "", filepath.Clean(home)},
		{"Writable path", "", writable, writable},
		{"Explicit wins over writable path", "/srv/steamlink", writable, filepath.Clean("/srv/steamlink")},
		{"Default", "", "", filepath.Join(home, DefaultDataDirName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WRITABLE_PATH", tt.writable)
			t.Setenv("writable_path", "")
			got, err := ResolveDataDir(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("ResolveDataDir(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetLogLevel(t *testing.T) {
	previous := log.GetLevel()
	t.Cleanup(func() { log.SetLevel(previous) })

	SetLogLevel(&config.Config{Debug: true})
	if log.GetLevel() != log.DebugLevel {
		t.Fatalf("level = %s, want debug", log.GetLevel())
	}
	SetLogLevel(&config.Config{})
	if log.GetLevel() != log.InfoLevel {
		t.Fatalf("level = %s, want info", log.GetLevel())
	}
}
