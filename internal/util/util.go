// Package util provides utility functions for steamlink.
// It includes helper functions for logging configuration, file system paths,
// and masking secrets before they reach the logs.
package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/steamlink/steamlink/internal/config"
	log "github.com/sirupsen/logrus"
)

// DefaultDataDirName is the directory under the user's home used when neither
// data-dir nor WRITABLE_PATH is set.
const DefaultDataDirName = ".steamlink"

// SetLogLevel configures the logrus log level based on the configuration.
// It sets the log level to DebugLevel if debug mode is enabled, otherwise to InfoLevel.
func SetLogLevel(cfg *config.Config) {
	currentLevel := log.GetLevel()
	var newLevel log.Level
	if cfg.Debug {
		newLevel = log.DebugLevel
	} else {
		newLevel = log.InfoLevel
	}

	if currentLevel != newLevel {
		log.SetLevel(newLevel)
		log.Infof("log level changed from %s to %s (debug=%t)", currentLevel, newLevel, cfg.Debug)
	}
}

// ResolveDataDir picks the directory holding the database, lock file and logs.
// Precedence: the configured data-dir, then WRITABLE_PATH, then ~/.steamlink.
// A leading tilde is expanded to the user's home directory.
func ResolveDataDir(dataDir string) (string, error) {
	dataDir = strings.TrimSpace(dataDir)
	if dataDir == "" {
		if writable := WritablePath(); writable != "" {
			return writable, nil
		}
		dataDir = "~/" + DefaultDataDirName
	}
	if strings.HasPrefix(dataDir, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve data dir: %w", err)
		}
		remainder := strings.TrimPrefix(dataDir, "~")
		remainder = strings.TrimLeft(remainder, "/\\")
		if remainder == "" {
			return filepath.Clean(home), nil
		}
		normalized := strings.ReplaceAll(remainder, "\\", "/")
		return filepath.Clean(filepath.Join(home, filepath.FromSlash(normalized))), nil
	}
	return filepath.Clean(dataDir), nil
}

// WritablePath returns the cleaned WRITABLE_PATH environment variable when it is set.
// It accepts both uppercase and lowercase variants for compatibility with existing conventions.
func WritablePath() string {
	for _, key := range []string{"WRITABLE_PATH", "writable_path"} {
		if value, ok := os.LookupEnv(key); ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return filepath.Clean(trimmed)
			}
		}
	}
	return ""
}
