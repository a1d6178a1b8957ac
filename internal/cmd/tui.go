package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/steamlink/steamlink/internal/config"
	"github.com/steamlink/steamlink/internal/logging"
	"github.com/steamlink/steamlink/internal/tui"
	"github.com/steamlink/steamlink/internal/watcher"
	sdkAuth "github.com/steamlink/steamlink/sdk/auth"
	log "github.com/sirupsen/logrus"
)

// DoTUI starts the terminal UI as primary surface. When configFilePath is set,
// edits to the file are applied to the next login without a restart.
func DoTUI(cfg *config.Config, configFilePath string, options *LoginOptions) {
	if options == nil {
		options = &LoginOptions{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hook := tui.NewLogHook(2000)
	hook.SetFormatter(&logging.LogFormatter{})
	log.AddHook(hook)

	origStdout := os.Stdout
	origLogOutput := log.StandardLogger().Out
	if !cfg.LoggingToFile {
		log.SetOutput(io.Discard)
	}
	defer log.SetOutput(origLogOutput)

	// Manual login instructions go to the logs tab instead of the terminal.
	logWriter := log.StandardLogger().WriterLevel(log.InfoLevel)
	defer func() { _ = logWriter.Close() }()
	options.Out = logWriter

	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return
	}
	defer func() { _ = svc.Close() }()
	if err = svc.Lock(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return
	}

	if configFilePath != "" {
		w, errWatch := startConfigWatcher(ctx, configFilePath, cfg, svc.Authenticator(), options)
		if errWatch != nil {
			log.Warnf("config hot reload disabled: %v", errWatch)
		} else {
			defer func() { _ = w.Stop() }()
		}
	}

	program := tui.NewProgram(svc, hook, origStdout)
	svc.Authenticator().SetPrimary(tui.NewProgramPrimary(program))
	defer svc.Authenticator().SetPrimary(nil)

	if _, errRun := program.Run(); errRun != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", errRun)
	}
}

func startConfigWatcher(ctx context.Context, configFilePath string, cfg *config.Config, authenticator *sdkAuth.SteamAuthenticator, options *LoginOptions) (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(configFilePath, func(newCfg *config.Config) {
		applyReloadedConfig(authenticator, newCfg, options)
	})
	if err != nil {
		return nil, err
	}
	w.SetConfig(cfg)
	if err = w.Start(ctx); err != nil {
		_ = w.Stop()
		return nil, err
	}
	return w, nil
}

// applyReloadedConfig hands the flow options of newCfg to the next login.
// Storage and logging destinations keep their startup values.
func applyReloadedConfig(authenticator *sdkAuth.SteamAuthenticator, newCfg *config.Config, options *LoginOptions) {
	if options != nil && options.CallbackPort > 0 {
		newCfg.CallbackPort = options.CallbackPort
	}
	authenticator.SetOptions(sdkAuth.OptionsFromConfig(newCfg))
}
