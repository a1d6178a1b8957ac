package steam

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/steamlink/steamlink/internal/logging"
	log "github.com/sirupsen/logrus"
)

const (
	// DefaultCallbackHost is the loopback address the callback listener binds.
	DefaultCallbackHost = "127.0.0.1"
	// DefaultCallbackPort is the fixed port registered as the OpenID return address.
	DefaultCallbackPort = 3456
	// DefaultCallbackPath is the only path the listener answers.
	DefaultCallbackPath = "/auth"

	shutdownTimeout = 5 * time.Second
)

// OutcomeState is the lifecycle state of a callback outcome.
type OutcomeState int

const (
	OutcomePending OutcomeState = iota
	OutcomeSucceeded
	OutcomeFailed
	OutcomeCancelled
)

func (s OutcomeState) String() string {
	switch s {
	case OutcomePending:
		return "pending"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CallbackOutcome is the single result of one callback server run.
type CallbackOutcome struct {
	State OutcomeState
	// SubjectID is the SteamID64 taken from the assertion, when one was parsed.
	SubjectID string
	// Err explains a failed or cancelled outcome.
	Err error
}

// Reconciler turns an asserted SteamID64 into a stored profile. It runs inside
// the callback request, so the browser only sees the confirmation page once it
// has returned.
type Reconciler interface {
	Reconcile(ctx context.Context, subjectID string) error
}

// ReconcilerFunc adapts a function to Reconciler.
type ReconcilerFunc func(ctx context.Context, subjectID string) error

// Reconcile calls f(ctx, subjectID).
func (f ReconcilerFunc) Reconcile(ctx context.Context, subjectID string) error {
	return f(ctx, subjectID)
}

// AssertionVerifier confirms a provider redirect before its identity is trusted.
type AssertionVerifier interface {
	Verify(ctx context.Context, returnTo string, query url.Values) error
}

// CallbackServer owns one loopback listener for one login attempt.
// It serves at most one callback, resolves exactly once and then shuts itself down.
type CallbackServer struct {
	host       string
	path       string
	port       atomic.Int32
	reconciler Reconciler
	verifier   AssertionVerifier

	// mu guards the listener lifecycle.
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	// serveDone is closed once Serve has returned.
	serveDone chan struct{}
	started   bool

	serving     atomic.Bool
	resolveOnce sync.Once
	outcome     CallbackOutcome
	done        chan struct{}
}

// NewCallbackServer creates a callback server for host:port and path.
// Port 0 binds an ephemeral port. A nil verifier accepts assertions unverified.
func NewCallbackServer(host string, port int, path string, reconciler Reconciler, verifier AssertionVerifier) *CallbackServer {
	if strings.TrimSpace(host) == "" {
		host = DefaultCallbackHost
	}
	if strings.TrimSpace(path) == "" {
		path = DefaultCallbackPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	s := &CallbackServer{
		host:       host,
		path:       path,
		reconciler: reconciler,
		verifier:   verifier,
		done:       make(chan struct{}),
	}
	s.port.Store(int32(port))
	return s
}

// Start binds the listener and begins waiting for the provider redirect.
// A bind failure is reported as ErrPortInUse and nothing is left running.
// When timeout is positive the attempt fails with ErrCallbackTimeout once it
// elapses. ctx is the parent of every request context; its values, such as the
// attempt id, reach the reconciler.
func (s *CallbackServer) Start(ctx context.Context, timeout time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	entry := logging.FromContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return fmt.Errorf("callback server already started")
	}
	select {
	case <-s.done:
		return fmt.Errorf("callback server already resolved")
	default:
	}

	addr := net.JoinHostPort(s.host, strconv.Itoa(s.Port()))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		entry.WithField("port", s.Port()).Errorf("steam callback: cannot listen on %s: %v", addr, err)
		return NewAuthenticationError(ErrPortInUse, err)
	}
	if tcpAddr, ok := listener.Addr().(*net.TCPAddr); ok {
		s.port.Store(int32(tcpAddr.Port))
	}
	s.started = true

	baseCtx, cancelBase := context.WithCancel(ctx)
	server := &http.Server{
		Handler:           s.routes(s.ReturnURL()),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	s.server = server
	s.listener = listener
	serveDone := make(chan struct{})
	s.serveDone = serveDone

	var timer *time.Timer
	if timeout > 0 {
		timer = time.AfterFunc(timeout, func() {
			if s.resolve(CallbackOutcome{State: OutcomeFailed, Err: NewAuthenticationError(ErrCallbackTimeout, fmt.Errorf("no callback within %s", timeout))}) {
				entry.Warnf("steam callback: no redirect received within %s", timeout)
			}
		})
	}

	go func() {
		defer close(serveDone)
		if errServe := server.Serve(listener); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			entry.Errorf("steam callback: listener failed: %v", errServe)
			s.resolve(CallbackOutcome{State: OutcomeFailed, Err: NewAuthenticationError(ErrServerStartFailed, errServe)})
		}
	}()

	go func() {
		<-s.done
		if timer != nil {
			timer.Stop()
		}
		cancelBase()
		if errStop := s.Stop(context.Background()); errStop != nil {
			entry.Warnf("steam callback: shutdown: %v", errStop)
		}
	}()

	entry.WithField("port", s.Port()).Debugf("steam callback: listening on %s", listener.Addr())
	return nil
}

// Stop closes the listener. A still pending attempt is resolved as cancelled first.
// The port is free again when Stop returns. It is idempotent and safe to call before Start.
func (s *CallbackServer) Stop(ctx context.Context) error {
	s.Cancel(errors.New("callback server stopped"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	log.Debug("Stopping steam callback server")

	if ctx == nil {
		ctx = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	err := s.server.Shutdown(shutdownCtx)
	if err != nil {
		_ = s.server.Close()
	}
	// Shutdown only closes listeners Serve has already registered.
	if errClose := s.listener.Close(); errClose != nil && !errors.Is(errClose, net.ErrClosed) && err == nil {
		err = errClose
	}
	select {
	case <-s.serveDone:
	case <-shutdownCtx.Done():
		if err == nil {
			err = shutdownCtx.Err()
		}
	}
	s.server = nil
	s.listener = nil
	return err
}

// Cancel resolves a pending attempt as cancelled by the user.
// It reports whether this call decided the outcome.
func (s *CallbackServer) Cancel(cause error) bool {
	if cause == nil {
		cause = errors.New("login window closed")
	}
	return s.resolve(CallbackOutcome{State: OutcomeCancelled, Err: NewAuthenticationError(ErrUserCancelled, cause)})
}

// Done is closed once the outcome is decided.
func (s *CallbackServer) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the decided outcome, or a pending one while still waiting.
func (s *CallbackServer) Outcome() CallbackOutcome {
	select {
	case <-s.done:
		return s.outcome
	default:
		return CallbackOutcome{State: OutcomePending}
	}
}

// Port returns the listener port; after Start it is the bound port.
func (s *CallbackServer) Port() int {
	return int(s.port.Load())
}

// ReturnURL is the openid.return_to address served by this listener.
func (s *CallbackServer) ReturnURL() string {
	return "http://" + net.JoinHostPort(s.host, strconv.Itoa(s.Port())) + s.path
}

// Realm is the openid.realm covering ReturnURL.
func (s *CallbackServer) Realm() string {
	return "http://" + net.JoinHostPort(s.host, strconv.Itoa(s.Port())) + "/"
}

// IsRunning returns whether the listener is currently bound.
func (s *CallbackServer) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.server != nil
}

func (s *CallbackServer) resolve(outcome CallbackOutcome) bool {
	decided := false
	s.resolveOnce.Do(func() {
		s.outcome = outcome
		decided = true
		close(s.done)
	})
	return decided
}

func (s *CallbackServer) routes(returnURL string) http.Handler {
	engine := gin.New()
	engine.Use(logging.GinLogrusLogger(), logging.GinLogrusRecovery(s.handlePanic))
	engine.GET(s.path, s.handleCallback(returnURL))
	return engine
}

func (s *CallbackServer) handleCallback(returnURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		setSecurityHeaders(c.Writer.Header())
		if s.isResolved() || !s.serving.CompareAndSwap(false, true) {
			c.Data(http.StatusConflict, "text/html; charset=utf-8", []byte(LoginNotPendingHTML))
			return
		}

		ctx := c.Request.Context()
		outcome := s.process(ctx, returnURL, c.Request.URL.Query())

		if !s.resolve(outcome) {
			logging.FromContext(ctx).Debugf("steam callback: %s outcome arrived after the attempt was decided", outcome.State)
			c.Data(http.StatusConflict, "text/html; charset=utf-8", []byte(LoginNotPendingHTML))
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(LoginCompleteHTML))
	}
}

func (s *CallbackServer) process(ctx context.Context, returnURL string, query url.Values) CallbackOutcome {
	entry := logging.FromContext(ctx)

	if IsCancelResponse(query) {
		entry.Info("steam callback: sign-in cancelled at the provider")
		return CallbackOutcome{State: OutcomeCancelled, Err: NewAuthenticationError(ErrUserCancelled, errors.New("provider answered openid.mode=cancel"))}
	}

	subjectID, err := ParseAssertion(query)
	if err != nil {
		entry.WithError(err).Error("steam callback: could not extract steamid")
		return CallbackOutcome{State: OutcomeFailed, Err: err}
	}
	entry = entry.WithField("steamid", subjectID)
	entry.Info("steam callback: assertion received")

	if s.verifier != nil {
		if err = s.verifier.Verify(ctx, returnURL, query); err != nil {
			entry.WithError(err).Error("steam callback: assertion rejected")
			return CallbackOutcome{State: OutcomeFailed, SubjectID: subjectID, Err: err}
		}
	}

	if s.reconciler != nil {
		if err = s.reconciler.Reconcile(ctx, subjectID); err != nil {
			return CallbackOutcome{State: OutcomeFailed, SubjectID: subjectID, Err: err}
		}
	}
	return CallbackOutcome{State: OutcomeSucceeded, SubjectID: subjectID}
}

func (s *CallbackServer) handlePanic(c *gin.Context, recovered any) {
	s.resolve(CallbackOutcome{State: OutcomeFailed, Err: NewAuthenticationError(ErrCallbackException, fmt.Errorf("panic: %v", recovered))})
	setSecurityHeaders(c.Writer.Header())
	c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", []byte(LoginErrorHTML))
}

func (s *CallbackServer) isResolved() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}
