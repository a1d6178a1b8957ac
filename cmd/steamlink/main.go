// Package main provides the entry point for steamlink.
// steamlink signs a desktop user into Steam through the OpenID loopback flow
// and keeps the player's profile in a local database.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/steamlink/steamlink/internal/buildinfo"
	"github.com/steamlink/steamlink/internal/cmd"
	"github.com/steamlink/steamlink/internal/config"
	"github.com/steamlink/steamlink/internal/logging"
	"github.com/steamlink/steamlink/internal/util"
	log "github.com/sirupsen/logrus"
)

var (
	Version           = "dev"
	Commit            = "none"
	BuildDate         = "unknown"
	DefaultConfigPath = ""
)

// init initializes the shared logger setup.
func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	var login bool
	var setAPIKey string
	var showAPIKey bool
	var deleteAPIKey bool
	var showProfile bool
	var deleteProfile string
	var tuiMode bool
	var noBrowser bool
	var callbackPort int
	var configPath string
	var showVersion bool

	flag.BoolVar(&login, "login", false, "Sign in with Steam")
	flag.StringVar(&setAPIKey, "set-api-key", "", "Save the Steam Web API key")
	flag.BoolVar(&showAPIKey, "show-api-key", false, "Print the stored Steam Web API key (masked)")
	flag.BoolVar(&deleteAPIKey, "delete-api-key", false, "Remove the stored Steam Web API key")
	flag.BoolVar(&showProfile, "show-profile", false, "Print the stored profile; pass a SteamID64 as argument to pick one")
	flag.StringVar(&deleteProfile, "delete-profile", "", "Delete the stored profile with this user id")
	flag.BoolVar(&tuiMode, "tui", false, "Start the terminal UI")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open the browser automatically; print the login URL")
	flag.IntVar(&callbackPort, "callback-port", 0, "Override the login callback port")
	flag.StringVar(&configPath, "config", DefaultConfigPath, "Configure File Path")
	flag.BoolVar(&showVersion, "version", false, "Print version information")

	flag.Parse()

	if showVersion {
		fmt.Printf("steamlink Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}

	// Load environment variables from .env if present.
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	configFilePath := configPath
	if configFilePath == "" {
		configFilePath = filepath.Join(wd, "config.yaml")
	}
	cfg, err := config.LoadConfigOptional(configFilePath)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}

	dataDir, err := util.ResolveDataDir(cfg.DataDir)
	if err != nil {
		log.Errorf("failed to resolve data directory: %v", err)
		os.Exit(1)
	}
	cfg.DataDir = dataDir

	if err = logging.ConfigureLogOutput(cfg, dataDir); err != nil {
		log.Errorf("failed to configure log output: %v", err)
		return
	}
	defer logging.CloseLogOutputs()

	log.Debugf("steamlink Version: %s, Commit: %s, BuiltAt: %s", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	util.SetLogLevel(cfg)

	options := &cmd.LoginOptions{
		NoBrowser:    noBrowser,
		CallbackPort: callbackPort,
	}

	switch {
	case setAPIKey != "":
		cmd.DoSetAPIKey(cfg, setAPIKey, options)
	case showAPIKey:
		cmd.DoShowAPIKey(cfg, options)
	case deleteAPIKey:
		cmd.DoDeleteAPIKey(cfg, options)
	case showProfile:
		cmd.DoShowProfile(cfg, flag.Arg(0), options)
	case deleteProfile != "":
		cmd.DoDeleteProfile(cfg, deleteProfile, options)
	case login:
		cmd.DoSteamLogin(cfg, options)
	case tuiMode:
		if _, errStat := os.Stat(configFilePath); errStat != nil {
			configFilePath = ""
		}
		cmd.DoTUI(cfg, configFilePath, options)
	default:
		flag.Usage()
	}
}
