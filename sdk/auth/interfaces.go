package auth

import (
	"context"

	"github.com/steamlink/steamlink/internal/auth/steam"
)

// CredentialSteamAPIKey is the settings key the Steam Web API key is stored under.
const CredentialSteamAPIKey = "steam_api_key"

// CredentialStore reads and writes named secrets.
// ok is false when nothing has been stored under name.
type CredentialStore interface {
	GetCredential(ctx context.Context, name string) (value string, ok bool, err error)
	SetCredential(ctx context.Context, name, value string) error
}

// ProfileStore persists player profiles keyed by SteamID64.
// Lookups return nil, nil when no row matches.
type ProfileStore interface {
	UpsertProfile(ctx context.Context, profile *steam.Profile) error
	GetProfile(ctx context.Context, steamID string) (*steam.Profile, error)
	FirstProfile(ctx context.Context) (*steam.Profile, error)
	DeleteProfile(ctx context.Context, userID int64) (bool, error)
}

// ProfileFetcher loads a player summary from the Steam Web API.
// A nil profile with a nil error means the player was not found.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, apiKey, steamID string) (*steam.Profile, error)
}

// LoginEvent is the terminal notification of one login attempt.
type LoginEvent struct {
	Success   bool   `json:"success"`
	SubjectID string `json:"subjectId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PrimarySurface is the long-lived application view that receives login results.
type PrimarySurface interface {
	Notify(event LoginEvent)
}

// PrimarySurfaceFunc adapts a function to PrimarySurface.
type PrimarySurfaceFunc func(event LoginEvent)

// Notify calls f(event).
func (f PrimarySurfaceFunc) Notify(event LoginEvent) { f(event) }

// SecondarySurface hosts the provider's sign-in page for one attempt.
type SecondarySurface interface {
	// Closed is closed when the user dismisses the surface.
	Closed() <-chan struct{}
	// Close dismisses the surface. It is idempotent.
	Close() error
}

// SurfaceOpener shows url in a new secondary surface.
type SurfaceOpener interface {
	Open(ctx context.Context, url string) (SecondarySurface, error)
}
