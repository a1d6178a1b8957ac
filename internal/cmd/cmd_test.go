package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"

	"github.com/steamlink/steamlink/internal/auth/steam"
	"github.com/steamlink/steamlink/internal/config"
	sdkAuth "github.com/steamlink/steamlink/sdk/auth"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.NoBrowser = true
	return cfg
}

func TestAPIKeyRoundTripIsMasked(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	options := &LoginOptions{Out: &out}

	if err := showAPIKey(context.Background(), cfg, options); err != nil {
		t.Fatalf("showAPIKey() error = %v", err)
	}
	if !strings.Contains(out.String(), "No API key stored") {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	if err := setAPIKey(context.Background(), cfg, "  ABCDEFGH1234  ", options); err != nil {
		t.Fatalf("setAPIKey() error = %v", err)
	}
	if err := showAPIKey(context.Background(), cfg, options); err != nil {
		t.Fatalf("showAPIKey() error = %v", err)
	}
	if strings.Contains(out.String(), "ABCDEFGH1234") {
		t.Fatalf("key printed unmasked: %q", out.String())
	}
	if !strings.Contains(out.String(), "API key: ABCD...1234") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestDeleteAPIKey(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	options := &LoginOptions{Out: &out}
	ctx := context.Background()

	if err := setAPIKey(ctx, cfg, "ABCDEFGH1234", options); err != nil {
		t.Fatalf("setAPIKey() error = %v", err)
	}
	out.Reset()
	if err := deleteAPIKey(ctx, cfg, options); err != nil {
		t.Fatalf("deleteAPIKey() error = %v", err)
	}
	if !strings.Contains(out.String(), "API key deleted") {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	if err := showAPIKey(ctx, cfg, options); err != nil {
		t.Fatalf("showAPIKey() error = %v", err)
	}
	if !strings.Contains(out.String(), "No API key stored") {
		t.Fatalf("key still stored after delete: %q", out.String())
	}
}

func TestSetAPIKeyRejectsEmpty(t *testing.T) {
	if err := setAPIKey(context.Background(), testConfig(t), "   ", &LoginOptions{Out: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected an error for an empty key")
	}
}

func TestShowAndDeleteProfile(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer
	options := &LoginOptions{Out: &out}
	ctx := context.Background()

	if err := showProfile(ctx, cfg, "", options); err != nil {
		t.Fatalf("showProfile() error = %v", err)
	}
	if !strings.Contains(out.String(), "No profile stored") {
		t.Fatalf("output = %q", out.String())
	}

	svc, err := NewService(ctx, cfg, options)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if err = svc.store.UpsertProfile(ctx, &steam.Profile{SteamID64: "76561197960287930", PersonaName: "Alice"}); err != nil {
		t.Fatalf("UpsertProfile() error = %v", err)
	}
	stored, err := svc.Profile(ctx, "76561197960287930")
	if err != nil || stored == nil {
		t.Fatalf("Profile() = %v, %v", stored, err)
	}
	_ = svc.Close()

	out.Reset()
	if err = showProfile(ctx, cfg, "", options); err != nil {
		t.Fatalf("showProfile() error = %v", err)
	}
	if !strings.Contains(out.String(), `"personaname": "Alice"`) {
		t.Fatalf("output = %q", out.String())
	}

	out.Reset()
	if err = deleteProfile(ctx, cfg, "abc", options); err == nil {
		t.Fatal("expected an error for a non-numeric id")
	}
	if err = deleteProfile(ctx, cfg, "9999", options); err != nil {
		t.Fatalf("deleteProfile() error = %v", err)
	}
	if !strings.Contains(out.String(), "No profile with id 9999") {
		t.Fatalf("output = %q", out.String())
	}
	out.Reset()
	if err = deleteProfile(ctx, cfg, strconv.FormatInt(stored.UserID, 10), options); err != nil {
		t.Fatalf("deleteProfile() error = %v", err)
	}
	if !strings.Contains(out.String(), "deleted") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestRunSteamLoginPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = ln.Close() }()

	cfg := testConfig(t)
	var out bytes.Buffer
	options := &LoginOptions{Out: &out, CallbackPort: ln.Addr().(*net.TCPAddr).Port}

	code := runSteamLogin(context.Background(), cfg, options)
	if code != steam.ErrPortInUse.Code {
		t.Fatalf("exit code = %d, want %d", code, steam.ErrPortInUse.Code)
	}
	if !strings.Contains(out.String(), `"success":false`) || !strings.Contains(out.String(), "Callback port unavailable") {
		t.Fatalf("primary output = %q", out.String())
	}
}

func TestServiceLockIsExclusive(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	first, err := NewService(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	defer func() { _ = first.Close() }()
	if err = first.Lock(ctx); err != nil {
		t.Fatalf("first Lock() error = %v", err)
	}

	second, err := NewService(ctx, cfg, nil)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	defer func() { _ = second.Close() }()
	if err = second.Lock(ctx); err == nil {
		t.Fatal("second Lock() succeeded while the first holds the lock")
	}
}

func TestApplyReloadedConfigKeepsFlagOverrides(t *testing.T) {
	authenticator := sdkAuth.NewSteamAuthenticator(nil, nil, nil, nil)
	newCfg := config.Default()
	newCfg.CallbackPath = "/reloaded"
	newCfg.CallbackPort = 5000

	applyReloadedConfig(authenticator, newCfg, &LoginOptions{CallbackPort: 4321})

	opts := authenticator.Options()
	if opts.CallbackPort != 4321 {
		t.Fatalf("CallbackPort = %d, want the flag override 4321", opts.CallbackPort)
	}
	if opts.CallbackPath != "/reloaded" {
		t.Fatalf("CallbackPath = %q, want /reloaded", opts.CallbackPath)
	}
}

func TestNewOpenerPrefersCommand(t *testing.T) {
	cfg := config.Default()
	cfg.LoginWindowCommand = []string{"kiosk", "{url}"}
	if got := fmt.Sprintf("%T", newOpener(cfg, false, nil)); got != "*surface.CommandOpener" {
		t.Fatalf("opener = %s, want command opener", got)
	}
	if got := fmt.Sprintf("%T", newOpener(cfg, true, nil)); got != "*surface.BrowserOpener" {
		t.Fatalf("opener with no-browser = %s, want browser opener", got)
	}
}
