package surface

import (
	"fmt"
	"io"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/steamlink/steamlink/sdk/auth"
	"github.com/tidwall/sjson"
)

// ConsolePrimary writes each login event as one JSON line.
type ConsolePrimary struct {
	mu   sync.Mutex
	out  io.Writer
	last *auth.LoginEvent
}

// NewConsolePrimary returns a primary surface writing to out (stdout when nil).
func NewConsolePrimary(out io.Writer) *ConsolePrimary {
	if out == nil {
		out = os.Stdout
	}
	return &ConsolePrimary{out: out}
}

// Notify implements auth.PrimarySurface.
func (p *ConsolePrimary) Notify(event auth.LoginEvent) {
	line := EncodeEvent(event)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &event
	if _, err := fmt.Fprintln(p.out, line); err != nil {
		log.Warnf("console: write login event: %v", err)
	}
}

// Last returns the most recent event, if any.
func (p *ConsolePrimary) Last() (auth.LoginEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return auth.LoginEvent{}, false
	}
	return *p.last, true
}

// EncodeEvent renders event as the notification payload
// {"success":bool,"subjectId"?:string,"error"?:string}.
func EncodeEvent(event auth.LoginEvent) string {
	out, _ := sjson.Set("", "success", event.Success)
	if event.SubjectID != "" {
		out, _ = sjson.Set(out, "subjectId", event.SubjectID)
	}
	if event.Error != "" {
		out, _ = sjson.Set(out, "error", event.Error)
	}
	return out
}
