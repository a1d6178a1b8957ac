package logging

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const logDirCleanerInterval = time.Minute

// logDirCleaner periodically trims the logs directory to a byte budget, oldest
// files first. The active log file is never removed.
type logDirCleaner struct {
	dir       string
	maxBytes  int64
	protected string
	cancel    context.CancelFunc
	done      chan struct{}
}

// startLogDirCleaner launches a cleaner, or returns nil when maxTotalSizeMB disables it.
func startLogDirCleaner(logDir string, maxTotalSizeMB int, protectedPath string) *logDirCleaner {
	if maxTotalSizeMB <= 0 {
		return nil
	}
	dir := strings.TrimSpace(logDir)
	if dir == "" {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &logDirCleaner{
		dir:       filepath.Clean(dir),
		maxBytes:  int64(maxTotalSizeMB) * 1024 * 1024,
		protected: strings.TrimSpace(protectedPath),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go c.run(ctx)
	return c
}

func (c *logDirCleaner) stop() {
	if c == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *logDirCleaner) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(logDirCleanerInterval)
	defer ticker.Stop()

	for {
		deleted, err := enforceLogDirSizeLimit(c.dir, c.maxBytes, c.protected)
		if err != nil {
			log.WithError(err).Warn("logging: failed to enforce log directory size limit")
		} else if deleted > 0 {
			log.Debugf("logging: removed %d old log file(s) to enforce log directory size limit", deleted)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type logFile struct {
	path    string
	size    int64
	modTime time.Time
}

func enforceLogDirSizeLimit(logDir string, maxBytes int64, protectedPath string) (int, error) {
	if maxBytes <= 0 || strings.TrimSpace(logDir) == "" {
		return 0, nil
	}
	dir := filepath.Clean(strings.TrimSpace(logDir))

	files, total, err := listLogFiles(dir)
	if err != nil {
		return 0, err
	}
	if total <= maxBytes {
		return 0, nil
	}

	protected := strings.TrimSpace(protectedPath)
	if protected != "" {
		protected = filepath.Clean(protected)
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	deleted := 0
	for _, file := range files {
		if total <= maxBytes {
			break
		}
		if protected != "" && file.path == protected {
			continue
		}
		if errRemove := os.Remove(file.path); errRemove != nil {
			log.WithError(errRemove).Warnf("logging: failed to remove old log file: %s", filepath.Base(file.path))
			continue
		}
		total -= file.size
		deleted++
	}
	return deleted, nil
}

func listLogFiles(dir string) ([]logFile, int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}

	var (
		files []logFile
		total int64
	)
	for _, entry := range entries {
		if entry.IsDir() || !isLogFileName(entry.Name()) {
			continue
		}
		info, errInfo := entry.Info()
		if errInfo != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, logFile{
			path:    filepath.Join(dir, entry.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	return files, total, nil
}

// isLogFileName matches active and rotated lumberjack files (main.log, main-2026-10-15T20-14-04.000.log).
func isLogFileName(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	if lower == "" {
		return false
	}
	return strings.HasSuffix(lower, ".log") || strings.HasSuffix(lower, ".log.gz")
}
