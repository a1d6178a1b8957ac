// Package browser opens URLs in the user's default web browser.
// It tries open-golang first, then pkg/browser, then well-known OS commands.
package browser

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"

	pkgbrowser "github.com/pkg/browser"
	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

var linuxBrowsers = []string{"xdg-open", "x-www-browser", "www-browser", "firefox", "chromium", "google-chrome"}

// Overridable in tests.
var (
	openRun    = open.Run
	pkgOpenURL = pkgbrowser.OpenURL
	lookPath   = exec.LookPath
)

func init() {
	// pkg/browser echoes the child's output into ours; the login URL is logged separately.
	pkgbrowser.Stdout = io.Discard
	pkgbrowser.Stderr = io.Discard
}

// OpenURL opens url in the default web browser.
func OpenURL(url string) error {
	err := openRun(url)
	if err == nil {
		log.Debug("Successfully opened URL using open-golang library")
		return nil
	}
	log.Debugf("open-golang failed: %v, trying pkg/browser", err)

	if err = pkgOpenURL(url); err == nil {
		log.Debug("Successfully opened URL using pkg/browser")
		return nil
	}
	log.Debugf("pkg/browser failed: %v, trying platform-specific commands", err)

	return openURLPlatformSpecific(url)
}

func openURLPlatformSpecific(url string) error {
	name, args, err := platformCommand(url)
	if err != nil {
		return err
	}
	cmd := exec.Command(name, args...)
	log.Debugf("Running command: %s %v", cmd.Path, cmd.Args[1:])
	if err = cmd.Start(); err != nil {
		return fmt.Errorf("failed to start browser command: %w", err)
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

func platformCommand(url string) (string, []string, error) {
	switch runtime.GOOS {
	case "darwin":
		return "open", []string{url}, nil
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	case "linux", "freebsd", "openbsd", "netbsd":
		for _, candidate := range linuxBrowsers {
			if _, err := lookPath(candidate); err == nil {
				return candidate, []string{url}, nil
			}
		}
		return "", nil, fmt.Errorf("no suitable browser found on %s", runtime.GOOS)
	default:
		return "", nil, fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// IsAvailable reports whether a command to open a browser exists on this system.
// It does not launch anything.
func IsAvailable() bool {
	name, _, err := platformCommand("about:blank")
	if err != nil {
		return false
	}
	_, err = lookPath(name)
	return err == nil
}
