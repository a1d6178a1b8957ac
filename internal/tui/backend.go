package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/steamlink/steamlink/internal/auth/steam"
	"github.com/steamlink/steamlink/sdk/auth"
)

// Backend is what the TUI needs from the application.
type Backend interface {
	// Login runs one sign-in attempt. Its result also arrives as a LoginEvent
	// through the ProgramPrimary registered for this program.
	Login(ctx context.Context) (bool, error)
	APIKey(ctx context.Context) (string, bool, error)
	SaveAPIKey(ctx context.Context, key string) error
	// Profile returns the stored profile for steamID, or the first one when steamID is empty.
	Profile(ctx context.Context, steamID string) (*steam.Profile, error)
	DeleteProfile(ctx context.Context, userID int64) (bool, error)
}

// loginEventMsg carries a login result into the bubbletea loop.
type loginEventMsg auth.LoginEvent

// ProgramPrimary delivers login events to a running bubbletea program.
type ProgramPrimary struct {
	program *tea.Program
}

// NewProgramPrimary returns a primary surface for p.
func NewProgramPrimary(p *tea.Program) *ProgramPrimary {
	return &ProgramPrimary{program: p}
}

// Notify implements auth.PrimarySurface.
func (p *ProgramPrimary) Notify(event auth.LoginEvent) {
	if p == nil || p.program == nil {
		return
	}
	p.program.Send(loginEventMsg(event))
}
