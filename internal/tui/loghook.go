package tui

import (
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/steamlink/steamlink/internal/logging"
)

// LogLine is one log entry captured for the logs tab.
type LogLine struct {
	Level log.Level
	// AttemptID is the login attempt the entry belongs to, empty outside a login.
	AttemptID string
	Text      string
}

// LogHook copies log entries into a bounded queue read by the logs tab.
// When the reader falls behind the oldest queued line gives way to the newest.
type LogHook struct {
	mu        sync.Mutex
	formatter log.Formatter
	queue     chan LogLine
}

// NewLogHook returns a hook queueing at most size lines.
func NewLogHook(size int) *LogHook {
	if size < 1 {
		size = 1
	}
	return &LogHook{
		formatter: &logging.LogFormatter{},
		queue:     make(chan LogLine, size),
	}
}

// SetFormatter replaces the formatter used to render Text. nil keeps the bare message.
func (h *LogHook) SetFormatter(f log.Formatter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.formatter = f
}

// Levels implements log.Hook.
func (h *LogHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire implements log.Hook.
func (h *LogHook) Fire(entry *log.Entry) error {
	line := LogLine{
		Level:     entry.Level,
		AttemptID: entryAttemptID(entry),
		Text:      h.render(entry),
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for {
		select {
		case h.queue <- line:
			return nil
		default:
		}
		select {
		case <-h.queue:
		default:
		}
	}
}

// Chan returns the receive side of the queue.
func (h *LogHook) Chan() <-chan LogLine {
	return h.queue
}

func (h *LogHook) render(entry *log.Entry) string {
	h.mu.Lock()
	f := h.formatter
	h.mu.Unlock()

	if f != nil {
		if b, err := f.Format(entry); err == nil {
			return strings.TrimRight(string(b), "\r\n")
		}
	}
	return "[" + entry.Level.String() + "] " + entry.Message
}

func entryAttemptID(entry *log.Entry) string {
	if id, ok := entry.Data[logging.AttemptIDField].(string); ok && id != "" {
		return id
	}
	if entry.Context != nil {
		return logging.GetAttemptID(entry.Context)
	}
	return ""
}
