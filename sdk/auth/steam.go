// Package auth drives the Steam sign-in flow: it opens the provider page,
// waits for the loopback redirect, stores the player's profile and tells the
// primary surface how the attempt ended.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/steamlink/steamlink/internal/auth/steam"
	"github.com/steamlink/steamlink/internal/logging"
	"github.com/steamlink/steamlink/sdk/config"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// LoginState is the orchestrator's position within one attempt.
type LoginState int32

const (
	StateIdle LoginState = iota
	StateAwaitingCallback
	StateReconciling
	StateDone
)

func (s LoginState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingCallback:
		return "awaiting_callback"
	case StateReconciling:
		return "reconciling"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// LoginOptions captures the knobs of one login attempt.
type LoginOptions struct {
	CallbackHost   string
	CallbackPort   int
	CallbackPath   string
	Timeout        time.Duration
	OpenIDEndpoint string
	// APIKeyOverride is used instead of the stored key when set.
	APIKeyOverride string
}

// OptionsFromConfig maps the configuration file onto LoginOptions.
func OptionsFromConfig(cfg *config.Config) LoginOptions {
	if cfg == nil {
		cfg = config.Default()
	}
	return LoginOptions{
		CallbackHost:   cfg.CallbackHost,
		CallbackPort:   cfg.CallbackPort,
		CallbackPath:   cfg.CallbackPath,
		Timeout:        cfg.CallbackTimeout(),
		OpenIDEndpoint: cfg.OpenIDEndpoint,
		APIKeyOverride: cfg.APIKeyOverride,
	}
}

// SteamAuthenticator implements the Steam OpenID login flow.
// Only one attempt runs at a time; a second Login while one is pending fails
// with ErrLoginInProgress.
type SteamAuthenticator struct {
	credentials CredentialStore
	profiles    ProfileStore
	fetcher     ProfileFetcher
	opener      SurfaceOpener
	verifier    steam.AssertionVerifier

	inflight *semaphore.Weighted
	state    atomic.Int32

	mu      sync.RWMutex
	primary PrimarySurface
	opts    LoginOptions
}

// SteamOption customizes a SteamAuthenticator.
type SteamOption func(*SteamAuthenticator)

// WithVerifier confirms each redirect with v before it is trusted.
func WithVerifier(v steam.AssertionVerifier) SteamOption {
	return func(a *SteamAuthenticator) { a.verifier = v }
}

// WithPrimary registers the surface that receives login results.
func WithPrimary(p PrimarySurface) SteamOption {
	return func(a *SteamAuthenticator) { a.primary = p }
}

// WithLoginOptions replaces the default login options.
func WithLoginOptions(opts LoginOptions) SteamOption {
	return func(a *SteamAuthenticator) { a.opts = opts }
}

// NewSteamAuthenticator wires the flow to its stores, profile source and secondary surface.
func NewSteamAuthenticator(credentials CredentialStore, profiles ProfileStore, fetcher ProfileFetcher, opener SurfaceOpener, opts ...SteamOption) *SteamAuthenticator {
	a := &SteamAuthenticator{
		credentials: credentials,
		profiles:    profiles,
		fetcher:     fetcher,
		opener:      opener,
		inflight:    semaphore.NewWeighted(1),
		opts:        OptionsFromConfig(nil),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *SteamAuthenticator) Provider() string {
	return "steam"
}

// SetPrimary registers or, with nil, removes the primary surface.
func (a *SteamAuthenticator) SetPrimary(p PrimarySurface) {
	a.mu.Lock()
	a.primary = p
	a.mu.Unlock()
}

// SetOptions replaces the options used by the next attempt.
func (a *SteamAuthenticator) SetOptions(opts LoginOptions) {
	a.mu.Lock()
	a.opts = opts
	a.mu.Unlock()
}

// Options returns the options the next attempt will use.
func (a *SteamAuthenticator) Options() LoginOptions {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.opts
}

// State returns where the current or last attempt is.
func (a *SteamAuthenticator) State() LoginState {
	return LoginState(a.state.Load())
}

func (a *SteamAuthenticator) primarySurface() PrimarySurface {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.primary
}

// Login runs one sign-in attempt and reports whether it stored a profile.
// Every attempt that gets past the re-entrancy check sends exactly one
// LoginEvent to the primary surface, and the callback listener and secondary
// surface are closed before Login returns.
func (a *SteamAuthenticator) Login(ctx context.Context) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	primary := a.primarySurface()
	if primary == nil {
		err := steam.NewAuthenticationError(steam.ErrNoPrimarySurface, errors.New("no primary surface registered"))
		log.Error("steam login: no main window to report to; not starting")
		return false, err
	}
	if !a.inflight.TryAcquire(1) {
		log.Warn("steam login: an attempt is already in progress")
		return false, steam.NewAuthenticationError(steam.ErrLoginInProgress, nil)
	}
	defer a.inflight.Release(1)

	ctx = logging.WithAttemptID(ctx, logging.NewAttemptID())
	entry := logging.FromContext(ctx)
	opts := a.Options()

	a.state.Store(int32(StateAwaitingCallback))
	defer a.state.Store(int32(StateDone))

	server := steam.NewCallbackServer(opts.CallbackHost, opts.CallbackPort, opts.CallbackPath, a.reconciler(opts.APIKeyOverride), a.verifier)
	var surface SecondarySurface
	defer func() {
		if surface != nil {
			if errClose := surface.Close(); errClose != nil {
				entry.Warnf("steam login: close login window: %v", errClose)
			}
		}
		stopCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if errStop := server.Stop(stopCtx); errStop != nil {
			entry.Warnf("steam login: callback server stop error: %v", errStop)
		}
	}()

	if err := server.Start(ctx, opts.Timeout); err != nil {
		return a.finish(ctx, primary, steam.CallbackOutcome{State: steam.OutcomeFailed, Err: err})
	}

	authURL, err := steam.BuildAuthURL(opts.OpenIDEndpoint, server.ReturnURL(), server.Realm())
	if err != nil {
		return a.finish(ctx, primary, steam.CallbackOutcome{State: steam.OutcomeFailed, Err: err})
	}
	entry.WithField("port", server.Port()).Info("steam login: waiting for the provider redirect")

	surface, err = a.opener.Open(ctx, authURL)
	if err != nil {
		server.Cancel(err)
		return a.finish(ctx, primary, steam.CallbackOutcome{State: steam.OutcomeFailed, Err: fmt.Errorf("open login window: %w", err)})
	}

	var closed <-chan struct{}
	if surface != nil {
		closed = surface.Closed()
	}
	select {
	case <-server.Done():
	case <-closed:
		if server.Cancel(errors.New("login window closed")) {
			entry.Info("steam login: login window closed before sign-in completed")
		}
	case <-ctx.Done():
		server.Cancel(ctx.Err())
	}
	<-server.Done()
	return a.finish(ctx, primary, server.Outcome())
}

// finish sends the single terminal event for the attempt.
func (a *SteamAuthenticator) finish(ctx context.Context, primary PrimarySurface, outcome steam.CallbackOutcome) (bool, error) {
	entry := logging.FromContext(ctx).WithField("state", outcome.State.String())
	if outcome.State == steam.OutcomeSucceeded {
		entry.WithField("steamid", outcome.SubjectID).Info("steam login: profile stored")
		primary.Notify(LoginEvent{Success: true, SubjectID: outcome.SubjectID})
		return true, nil
	}
	err := outcome.Err
	if err == nil {
		err = steam.NewAuthenticationError(steam.ErrCallbackException, errors.New("attempt ended without a result"))
	}
	entry.WithError(err).Warn("steam login: attempt failed")
	primary.Notify(LoginEvent{Success: false, Error: steam.Reason(err)})
	return false, err
}

// reconciler looks up the API key, fetches the asserted player's profile and
// stores it. It runs inside the callback request.
func (a *SteamAuthenticator) reconciler(apiKeyOverride string) steam.Reconciler {
	return steam.ReconcilerFunc(func(ctx context.Context, subjectID string) error {
		a.state.Store(int32(StateReconciling))
		entry := logging.FromContext(ctx).WithField("steamid", subjectID)

		apiKey := strings.TrimSpace(apiKeyOverride)
		if apiKey == "" {
			stored, ok, err := a.credentials.GetCredential(ctx, CredentialSteamAPIKey)
			if err != nil {
				entry.WithError(err).Error("steam login: could not read API key")
			}
			if !ok || err != nil {
				return steam.NewAuthenticationError(steam.ErrNoAPIKey, err)
			}
			apiKey = stored
		}

		profile, err := a.fetcher.FetchProfile(ctx, apiKey, subjectID)
		if err != nil {
			return steam.NewAuthenticationError(steam.ErrProfileFetchFailed, err)
		}
		if profile == nil {
			entry.Warn("steam login: player not found")
			return steam.NewAuthenticationError(steam.ErrProfileFetchFailed, fmt.Errorf("no player summary for %s", subjectID))
		}
		if profile.SteamID64 == "" {
			profile.SteamID64 = subjectID
		}

		if err = a.profiles.UpsertProfile(ctx, profile); err != nil {
			entry.WithError(err).Error("steam login: could not store profile")
			return steam.NewAuthenticationError(steam.ErrProfileStoreFailed, err)
		}
		return nil
	})
}
