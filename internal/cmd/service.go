package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/gofrs/flock"
	"github.com/steamlink/steamlink/internal/auth/steam"
	"github.com/steamlink/steamlink/internal/config"
	"github.com/steamlink/steamlink/internal/store"
	"github.com/steamlink/steamlink/internal/surface"
	"github.com/steamlink/steamlink/internal/util"
	sdkAuth "github.com/steamlink/steamlink/sdk/auth"
	log "github.com/sirupsen/logrus"
)

const (
	lockFileName = "steamlink.lock"
	lockTimeout  = 3 * time.Second
	storeTimeout = 30 * time.Second
)

// LoginOptions contains command-line overrides for the login flow.
type LoginOptions struct {
	// NoBrowser prints the login URL instead of opening it.
	NoBrowser bool

	// CallbackPort overrides the configured callback port when set (>0).
	CallbackPort int

	// Out receives user-facing output. Defaults to os.Stdout.
	Out io.Writer
}

func (o *LoginOptions) out() io.Writer {
	if o == nil || o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// credentialStore is a credential backend that can also forget a credential.
type credentialStore interface {
	sdkAuth.CredentialStore
	DeleteCredential(ctx context.Context, name string) error
}

// dataStore is the persistence backend selected by the configuration.
type dataStore interface {
	credentialStore
	sdkAuth.ProfileStore
	io.Closer
}

// Service bundles the stores, clients and authenticator built from one configuration.
type Service struct {
	cfg         *config.Config
	dataDir     string
	store       dataStore
	credentials credentialStore
	auth        *sdkAuth.SteamAuthenticator
	lock        *flock.Flock
}

// NewService resolves the data directory, opens the configured store and wires
// the Steam authenticator. The caller must Close the service.
func NewService(ctx context.Context, cfg *config.Config, options *LoginOptions) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if options != nil && options.CallbackPort > 0 {
		cfg.CallbackPort = options.CallbackPort
	}
	dataDir, err := util.ResolveDataDir(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	db, err := openDataStore(ctx, cfg, dataDir)
	if err != nil {
		return nil, err
	}

	var credentials credentialStore = db
	if cfg.CredentialBackend == config.CredentialBackendKeyring {
		credentials = store.NewKeyringCredentialStore(store.DefaultKeyringService)
	}

	noBrowser := cfg.NoBrowser || (options != nil && options.NoBrowser)
	authOpts := []sdkAuth.SteamOption{sdkAuth.WithLoginOptions(sdkAuth.OptionsFromConfig(cfg))}
	if cfg.VerifyAssertion {
		client := resty.New().SetTimeout(cfg.RequestTimeout())
		authOpts = append(authOpts, sdkAuth.WithVerifier(steam.NewVerifier(cfg.OpenIDEndpoint, client)))
	} else {
		log.Warn("verify-assertion is disabled; provider redirects are trusted without confirmation")
	}

	authenticator := sdkAuth.NewSteamAuthenticator(
		credentials,
		db,
		steam.NewProfileClient(cfg.SteamAPIBase, cfg.RequestTimeout()),
		newOpener(cfg, noBrowser, options.out()),
		authOpts...,
	)

	return &Service{
		cfg:         cfg,
		dataDir:     dataDir,
		store:       db,
		credentials: credentials,
		auth:        authenticator,
	}, nil
}

func openDataStore(ctx context.Context, cfg *config.Config, dataDir string) (dataStore, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()

	if cfg.PostgresDSN != "" {
		pg, err := store.NewPostgresStore(ctx, store.PostgresStoreConfig{
			DSN:    cfg.PostgresDSN,
			Schema: cfg.PostgresSchema,
		})
		if err != nil {
			return nil, err
		}
		if err = pg.EnsureSchema(ctx); err != nil {
			_ = pg.Close()
			return nil, err
		}
		log.Info("postgres-backed profile store enabled")
		return pg, nil
	}

	dbPath := filepath.Join(dataDir, store.DefaultDatabaseFile)
	db, err := store.NewSQLiteStore(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	log.Debugf("sqlite profile store: %s", dbPath)
	return db, nil
}

func newOpener(cfg *config.Config, noBrowser bool, out io.Writer) sdkAuth.SurfaceOpener {
	if len(cfg.LoginWindowCommand) > 0 && !noBrowser {
		return surface.NewCommandOpener(cfg.LoginWindowCommand)
	}
	return surface.NewBrowserOpener(noBrowser, out)
}

// Authenticator returns the Steam authenticator of this service.
func (s *Service) Authenticator() *sdkAuth.SteamAuthenticator {
	return s.auth
}

// DataDir returns the resolved data directory.
func (s *Service) DataDir() string {
	return s.dataDir
}

// Lock takes the single-instance lock of the data directory. Only one process
// may run a login against the same database at a time.
func (s *Service) Lock(ctx context.Context) error {
	if err := os.MkdirAll(s.dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	fileLock := flock.New(filepath.Join(s.dataDir, lockFileName))
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another steamlink instance is using %s", s.dataDir)
	}
	s.lock = fileLock
	return nil
}

// Close releases the lock and the store.
func (s *Service) Close() error {
	if s.lock != nil {
		if errUnlock := s.lock.Unlock(); errUnlock != nil {
			log.Warnf("failed to release lock: %v", errUnlock)
		}
		s.lock = nil
	}
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// APIKey returns the stored Steam Web API key.
func (s *Service) APIKey(ctx context.Context) (string, bool, error) {
	return s.credentials.GetCredential(ctx, sdkAuth.CredentialSteamAPIKey)
}

// SaveAPIKey stores key as the Steam Web API key.
func (s *Service) SaveAPIKey(ctx context.Context, key string) error {
	return s.credentials.SetCredential(ctx, sdkAuth.CredentialSteamAPIKey, key)
}

// DeleteAPIKey forgets the stored Steam Web API key.
func (s *Service) DeleteAPIKey(ctx context.Context) error {
	return s.credentials.DeleteCredential(ctx, sdkAuth.CredentialSteamAPIKey)
}

// Profile returns the profile stored for steamID, or the first one when steamID is empty.
func (s *Service) Profile(ctx context.Context, steamID string) (*steam.Profile, error) {
	if steamID == "" {
		return s.store.FirstProfile(ctx)
	}
	return s.store.GetProfile(ctx, steamID)
}

// DeleteProfile removes the profile with row id userID.
func (s *Service) DeleteProfile(ctx context.Context, userID int64) (bool, error) {
	return s.store.DeleteProfile(ctx, userID)
}

// Login runs one attempt through the authenticator.
func (s *Service) Login(ctx context.Context) (bool, error) {
	return s.auth.Login(ctx)
}
