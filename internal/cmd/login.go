package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/steamlink/steamlink/internal/auth/steam"
	"github.com/steamlink/steamlink/internal/config"
	"github.com/steamlink/steamlink/internal/surface"
	log "github.com/sirupsen/logrus"
)

// DoSteamLogin runs one Steam sign-in with the console as primary surface.
// The login result is printed as a JSON line. The process exits with
// ErrPortInUse's code when the callback port is taken and 1 on any other failure.
func DoSteamLogin(cfg *config.Config, options *LoginOptions) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := runSteamLogin(ctx, cfg, options)
	if code != 0 {
		stop()
		os.Exit(code)
	}
}

func runSteamLogin(ctx context.Context, cfg *config.Config, options *LoginOptions) int {
	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		log.Errorf("failed to initialize steamlink: %v", err)
		return 1
	}
	defer func() {
		if errClose := svc.Close(); errClose != nil {
			log.Warnf("failed to close store: %v", errClose)
		}
	}()
	if err = svc.Lock(ctx); err != nil {
		log.Error(err)
		return 1
	}

	primary := surface.NewConsolePrimary(options.out())
	svc.Authenticator().SetPrimary(primary)

	ok, err := svc.Login(ctx)
	if err != nil {
		var authErr *steam.AuthenticationError
		if errors.As(err, &authErr) {
			log.Error(steam.GetUserFriendlyMessage(authErr))
			if authErr.Type == steam.ErrPortInUse.Type {
				return steam.ErrPortInUse.Code
			}
			return 1
		}
		fmt.Fprintf(options.out(), "Steam authentication failed: %v\n", err)
		return 1
	}
	if !ok {
		return 1
	}
	if event, sent := primary.Last(); sent {
		log.Infof("Steam authentication successful for %s", event.SubjectID)
	}
	return 0
}
