package surface

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/steamlink/steamlink/internal/logging"
	"github.com/steamlink/steamlink/sdk/auth"
)

// URLPlaceholder is replaced with the login URL in a login window command.
const URLPlaceholder = "{url}"

const commandKillGrace = 2 * time.Second

// CommandOpener hosts the provider page in an external program such as a
// kiosk-mode browser or a webview helper. The program exiting means the user
// closed the window.
type CommandOpener struct {
	Argv []string
	// Env is appended to the current environment of the child.
	Env []string
}

// NewCommandOpener returns an opener running argv.
func NewCommandOpener(argv []string) *CommandOpener {
	return &CommandOpener{Argv: argv}
}

// Open implements auth.SurfaceOpener.
func (o *CommandOpener) Open(ctx context.Context, loginURL string) (auth.SecondarySurface, error) {
	argv := expandArgv(o.Argv, loginURL)
	if len(argv) == 0 || strings.TrimSpace(argv[0]) == "" {
		return nil, errors.New("login window command is empty")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = append(os.Environ(), o.Env...)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start login window: %w", err)
	}
	logging.FromContext(ctx).Debugf("login window started: %s (pid %d)", argv[0], cmd.Process.Pid)

	s := &CommandSurface{cmd: cmd, closed: make(chan struct{})}
	go s.wait(ctx)
	return s, nil
}

// expandArgv replaces every URLPlaceholder in argv. Without a placeholder the
// URL is appended as the last argument.
func expandArgv(argv []string, loginURL string) []string {
	out := make([]string, 0, len(argv)+1)
	replaced := false
	for _, arg := range argv {
		if strings.Contains(arg, URLPlaceholder) {
			arg = strings.ReplaceAll(arg, URLPlaceholder, loginURL)
			replaced = true
		}
		out = append(out, arg)
	}
	if !replaced && len(out) > 0 {
		out = append(out, loginURL)
	}
	return out
}

// CommandSurface is a running login window process.
type CommandSurface struct {
	cmd     *exec.Cmd
	closed  chan struct{}
	mu      sync.Mutex
	waitErr error
}

func (s *CommandSurface) wait(ctx context.Context) {
	err := s.cmd.Wait()
	s.mu.Lock()
	s.waitErr = err
	s.mu.Unlock()
	logging.FromContext(ctx).Debugf("login window exited: %v", err)
	close(s.closed)
}

// Closed implements auth.SecondarySurface.
func (s *CommandSurface) Closed() <-chan struct{} {
	return s.closed
}

// Close terminates the window process and waits for it to exit.
func (s *CommandSurface) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("stop login window: %w", err)
	}
	select {
	case <-s.closed:
		return nil
	case <-time.After(commandKillGrace):
		return fmt.Errorf("login window pid %d did not exit", s.cmd.Process.Pid)
	}
}
