// Package surface provides the windows a login is shown in and reported to.
// Secondary surfaces host the provider page for one attempt; primary surfaces
// receive the attempt's single result.
package surface

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"sync"

	"github.com/atotto/clipboard"
	"github.com/steamlink/steamlink/internal/browser"
	"github.com/steamlink/steamlink/internal/logging"
	"github.com/steamlink/steamlink/internal/util"
	"github.com/steamlink/steamlink/sdk/auth"
)

// BrowserOpener shows the provider page in the user's default browser.
// When no browser can be started the URL is printed and copied to the
// clipboard, and the attempt keeps waiting for the redirect.
type BrowserOpener struct {
	NoBrowser bool
	Out       io.Writer

	openURL   func(string) error
	available func() bool
	copyText  func(string) error
}

// NewBrowserOpener returns an opener writing fallback instructions to out
// (stdout when nil).
func NewBrowserOpener(noBrowser bool, out io.Writer) *BrowserOpener {
	if out == nil {
		out = os.Stdout
	}
	return &BrowserOpener{
		NoBrowser: noBrowser,
		Out:       out,
		openURL:   browser.OpenURL,
		available: browser.IsAvailable,
		copyText:  clipboard.WriteAll,
	}
}

// Open implements auth.SurfaceOpener.
func (o *BrowserOpener) Open(ctx context.Context, loginURL string) (auth.SecondarySurface, error) {
	entry := logging.FromContext(ctx)
	s := &BrowserSurface{closed: make(chan struct{})}

	if o.NoBrowser {
		o.printManual(ctx, loginURL)
		util.PrintSSHTunnelInstructions(o.Out, callbackPort(loginURL))
		return s, nil
	}
	if !o.available() {
		entry.Warn("No browser available; please open the URL manually")
		o.printManual(ctx, loginURL)
		return s, nil
	}

	fmt.Fprintln(o.Out, "Opening browser for Steam sign-in")
	if err := o.openURL(loginURL); err != nil {
		entry.Warnf("Failed to open browser automatically: %v", err)
		o.printManual(ctx, loginURL)
	}
	return s, nil
}

func (o *BrowserOpener) printManual(ctx context.Context, loginURL string) {
	fmt.Fprintf(o.Out, "Visit the following URL to continue sign-in:\n%s\n", loginURL)
	if o.copyText == nil {
		return
	}
	if err := o.copyText(loginURL); err != nil {
		logging.FromContext(ctx).Debugf("copy login URL to clipboard: %v", err)
		return
	}
	fmt.Fprintln(o.Out, "(The URL has also been copied to your clipboard.)")
}

// callbackPort extracts the loopback port from the openid.return_to of loginURL.
func callbackPort(loginURL string) int {
	u, err := url.Parse(loginURL)
	if err != nil {
		return 0
	}
	returnTo, err := url.Parse(u.Query().Get("openid.return_to"))
	if err != nil {
		return 0
	}
	port, _ := strconv.Atoi(returnTo.Port())
	return port
}

// BrowserSurface is a browser tab the process cannot observe.
// It counts as closed only after Close.
type BrowserSurface struct {
	once   sync.Once
	closed chan struct{}
}

// Closed implements auth.SecondarySurface.
func (s *BrowserSurface) Closed() <-chan struct{} {
	return s.closed
}

// Close implements auth.SecondarySurface.
func (s *BrowserSurface) Close() error {
	s.once.Do(func() { close(s.closed) })
	return nil
}
