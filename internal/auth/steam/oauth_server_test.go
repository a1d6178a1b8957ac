package steam

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const testClaimedID = "https://steamcommunity.com/openid/id/76561197960287930"

var testClient = &http.Client{
	Timeout:   5 * time.Second,
	Transport: &http.Transport{DisableKeepAlives: true},
}

type recordingReconciler struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (r *recordingReconciler) Reconcile(_ context.Context, subjectID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, subjectID)
	return r.err
}

func (r *recordingReconciler) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type stubVerifier struct {
	err      error
	returnTo atomic.Value
}

func (v *stubVerifier) Verify(_ context.Context, returnTo string, _ url.Values) error {
	v.returnTo.Store(returnTo)
	return v.err
}

func startTestServer(t *testing.T, reconciler Reconciler, verifier AssertionVerifier, timeout time.Duration) *CallbackServer {
	t.Helper()
	s := NewCallbackServer("127.0.0.1", 0, "/auth", reconciler, verifier)
	if err := s.Start(context.Background(), timeout); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func waitOutcome(t *testing.T, s *CallbackServer) CallbackOutcome {
	t.Helper()
	select {
	case <-s.Done():
		return s.Outcome()
	case <-time.After(5 * time.Second):
		t.Fatal("callback server did not resolve")
		return CallbackOutcome{}
	}
}

func waitStopped(t *testing.T, s *CallbackServer) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for s.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("callback server did not shut down")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func callback(t *testing.T, s *CallbackServer, query url.Values) (int, string) {
	t.Helper()
	return get(t, s.ReturnURL()+"?"+query.Encode())
}

func get(t *testing.T, rawURL string) (int, string) {
	t.Helper()
	resp, err := testClient.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(body)
}

func TestCallbackServer_Success(t *testing.T) {
	t.Parallel()

	reconciler := &recordingReconciler{}
	s := startTestServer(t, reconciler, nil, 0)

	status, body := callback(t, s, url.Values{"openid.claimed_id": {testClaimedID}})
	if status != http.StatusOK || !strings.Contains(body, "Login complete") {
		t.Fatalf("status=%d body=%q", status, body)
	}

	outcome := waitOutcome(t, s)
	if outcome.State != OutcomeSucceeded || outcome.SubjectID != "76561197960287930" || outcome.Err != nil {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if calls := reconciler.Calls(); len(calls) != 1 || calls[0] != "76561197960287930" {
		t.Fatalf("reconciler calls = %v", calls)
	}

	waitStopped(t, s)
	if _, err := testClient.Get(s.ReturnURL()); err == nil {
		t.Fatal("listener should be closed after the single callback")
	}
}

func TestCallbackServer_Failures(t *testing.T) {
	t.Parallel()

	storeErr := NewAuthenticationError(ErrNoAPIKey, nil)

	tests := []struct {
		name          string
		query         url.Values
		reconcileErr  error
		verifyErr     error
		wantState     OutcomeState
		wantErr       *AuthenticationError
		wantReconcile int
	}{
		{
			name:      "invalid claimed id",
			query:     url.Values{"openid.claimed_id": {"https://steamcommunity.com/id/vanity"}},
			wantState: OutcomeFailed,
			wantErr:   ErrAssertionInvalid,
		},
		{
			name:      "no claimed id",
			query:     url.Values{"openid.mode": {"id_res"}},
			wantState: OutcomeFailed,
			wantErr:   ErrAssertionInvalid,
		},
		{
			name:          "reconcile error",
			query:         url.Values{"openid.claimed_id": {testClaimedID}},
			reconcileErr:  storeErr,
			wantState:     OutcomeFailed,
			wantErr:       ErrNoAPIKey,
			wantReconcile: 1,
		},
		{
			name:      "verification rejected",
			query:     url.Values{"openid.claimed_id": {testClaimedID}},
			verifyErr: NewAuthenticationError(ErrAssertionUnverified, nil),
			wantState: OutcomeFailed,
			wantErr:   ErrAssertionUnverified,
		},
		{
			name:      "cancelled at provider",
			query:     url.Values{"openid.mode": {"cancel"}},
			wantState: OutcomeCancelled,
			wantErr:   ErrUserCancelled,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reconciler := &recordingReconciler{err: tt.reconcileErr}
			var verifier AssertionVerifier
			if tt.verifyErr != nil {
				verifier = &stubVerifier{err: tt.verifyErr}
			}
			s := startTestServer(t, reconciler, verifier, 0)

			status, body := callback(t, s, tt.query)
			if status != http.StatusOK || !strings.Contains(body, "Login complete") {
				t.Fatalf("status=%d body=%q", status, body)
			}
			outcome := waitOutcome(t, s)
			if outcome.State != tt.wantState {
				t.Fatalf("state = %s, want %s", outcome.State, tt.wantState)
			}
			if !errors.Is(outcome.Err, tt.wantErr) {
				t.Fatalf("err = %v, want %s", outcome.Err, tt.wantErr.Type)
			}
			if got := len(reconciler.Calls()); got != tt.wantReconcile {
				t.Fatalf("reconciler called %d times, want %d", got, tt.wantReconcile)
			}
		})
	}
}

func TestCallbackServer_VerifierSeesReturnURL(t *testing.T) {
	t.Parallel()

	verifier := &stubVerifier{}
	s := startTestServer(t, &recordingReconciler{}, verifier, 0)

	callback(t, s, url.Values{"openid.claimed_id": {testClaimedID}})
	if outcome := waitOutcome(t, s); outcome.State != OutcomeSucceeded {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if got, _ := verifier.returnTo.Load().(string); got != s.ReturnURL() {
		t.Fatalf("verifier saw returnTo %q, want %q", got, s.ReturnURL())
	}
}

func TestCallbackServer_OtherPathIgnored(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, &recordingReconciler{}, nil, 0)

	status, _ := get(t, strings.TrimSuffix(s.ReturnURL(), "/auth")+"/favicon.ico")
	if status != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", status)
	}
	if s.Outcome().State != OutcomePending {
		t.Fatalf("other paths must not resolve the attempt: %+v", s.Outcome())
	}

	callback(t, s, url.Values{"openid.claimed_id": {testClaimedID}})
	if outcome := waitOutcome(t, s); outcome.State != OutcomeSucceeded {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
}

func TestCallbackServer_PortInUse(t *testing.T) {
	first := startTestServer(t, &recordingReconciler{}, nil, 0)
	port := first.Port()

	second := NewCallbackServer("127.0.0.1", port, "/auth", &recordingReconciler{}, nil)
	err := second.Start(context.Background(), 0)
	if !errors.Is(err, ErrPortInUse) {
		t.Fatalf("expected ErrPortInUse, got %v", err)
	}
	if Reason(err) != "Callback port unavailable" {
		t.Fatalf("reason = %q", Reason(err))
	}
	if second.IsRunning() {
		t.Fatal("a failed start must not leave a listener")
	}

	if err = first.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	third := NewCallbackServer("127.0.0.1", port, "/auth", &recordingReconciler{}, nil)
	if err = third.Start(context.Background(), 0); err != nil {
		t.Fatalf("restart on freed port: %v", err)
	}
	if err = third.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

func TestCallbackServer_StopReleasesPortImmediately(t *testing.T) {
	port := freePort(t)

	for i := 0; i < 50; i++ {
		s := NewCallbackServer("127.0.0.1", port, "/auth", &recordingReconciler{}, nil)
		if err := s.Start(context.Background(), 0); err != nil {
			t.Fatalf("iteration %d: start: %v", i, err)
		}
		if err := s.Stop(context.Background()); err != nil {
			t.Fatalf("iteration %d: stop: %v", i, err)
		}
		if s.IsRunning() {
			t.Fatalf("iteration %d: still running after Stop", i)
		}
	}
}

func TestCallbackServer_StopAfterCancelReleasesPort(t *testing.T) {
	port := freePort(t)

	for i := 0; i < 20; i++ {
		s := NewCallbackServer("127.0.0.1", port, "/auth", &recordingReconciler{}, nil)
		if err := s.Start(context.Background(), 0); err != nil {
			t.Fatalf("iteration %d: start: %v", i, err)
		}
		s.Cancel(errors.New("window closed"))
		if err := s.Stop(context.Background()); err != nil {
			t.Fatalf("iteration %d: stop: %v", i, err)
		}
	}
}

func TestCallbackServer_Timeout(t *testing.T) {
	t.Parallel()

	reconciler := &recordingReconciler{}
	s := startTestServer(t, reconciler, nil, 50*time.Millisecond)

	outcome := waitOutcome(t, s)
	if outcome.State != OutcomeFailed || !errors.Is(outcome.Err, ErrCallbackTimeout) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	waitStopped(t, s)
	if len(reconciler.Calls()) != 0 {
		t.Fatal("reconciler must not run after a timeout")
	}
}

func TestCallbackServer_CancelIsFirstWins(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, &recordingReconciler{}, nil, 0)

	if !s.Cancel(errors.New("window closed")) {
		t.Fatal("first cancel should decide the outcome")
	}
	if s.Cancel(errors.New("again")) {
		t.Fatal("second cancel must be a no-op")
	}
	outcome := waitOutcome(t, s)
	if outcome.State != OutcomeCancelled || !errors.Is(outcome.Err, ErrUserCancelled) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	waitStopped(t, s)
}

func TestCallbackServer_PanicBecomesException(t *testing.T) {
	t.Parallel()

	s := startTestServer(t, ReconcilerFunc(func(context.Context, string) error {
		panic("boom")
	}), nil, 0)

	status, body := callback(t, s, url.Values{"openid.claimed_id": {testClaimedID}})
	if status != http.StatusInternalServerError || !strings.Contains(body, "Login failed") {
		t.Fatalf("status=%d body=%q", status, body)
	}
	outcome := waitOutcome(t, s)
	if outcome.State != OutcomeFailed || !errors.Is(outcome.Err, ErrCallbackException) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if Reason(outcome.Err) != "Exception" {
		t.Fatalf("reason = %q", Reason(outcome.Err))
	}
	waitStopped(t, s)
}

func TestCallbackServer_ConcurrentCallbackRefused(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	s := startTestServer(t, ReconcilerFunc(func(context.Context, string) error {
		calls.Add(1)
		close(entered)
		<-release
		return nil
	}), nil, 0)

	firstStatus := make(chan int, 1)
	go func() {
		resp, err := testClient.Get(s.ReturnURL() + "?" + url.Values{"openid.claimed_id": {testClaimedID}}.Encode())
		if err != nil {
			firstStatus <- 0
			return
		}
		_ = resp.Body.Close()
		firstStatus <- resp.StatusCode
	}()

	<-entered
	status, _ := callback(t, s, url.Values{"openid.claimed_id": {"https://steamcommunity.com/openid/id/1"}})
	if status != http.StatusConflict {
		t.Fatalf("second callback status = %d, want 409", status)
	}
	close(release)

	if got := <-firstStatus; got != http.StatusOK {
		t.Fatalf("first callback status = %d", got)
	}
	outcome := waitOutcome(t, s)
	if outcome.State != OutcomeSucceeded || outcome.SubjectID != "76561197960287930" {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if calls.Load() != 1 {
		t.Fatalf("reconciler ran %d times", calls.Load())
	}
}

func TestCallbackServer_CancelWhileReconcilingAnswersNotPending(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	s := startTestServer(t, ReconcilerFunc(func(context.Context, string) error {
		close(entered)
		<-release
		return nil
	}), nil, 0)

	type response struct {
		status int
		body   string
	}
	result := make(chan response, 1)
	go func() {
		resp, err := testClient.Get(s.ReturnURL() + "?" + url.Values{"openid.claimed_id": {testClaimedID}}.Encode())
		if err != nil {
			result <- response{}
			return
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(resp.Body)
		result <- response{resp.StatusCode, string(body)}
	}()

	<-entered
	if !s.Cancel(errors.New("window closed")) {
		t.Fatal("cancel should decide the pending attempt")
	}
	close(release)

	got := <-result
	if got.status != http.StatusConflict {
		t.Fatalf("status = %d, want 409", got.status)
	}
	if strings.Contains(got.body, "Login complete") || !strings.Contains(got.body, "No login is waiting") {
		t.Fatalf("body = %q", got.body)
	}
	outcome := waitOutcome(t, s)
	if outcome.State != OutcomeCancelled || !errors.Is(outcome.Err, ErrUserCancelled) {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	waitStopped(t, s)
}

func TestCallbackServer_StopBeforeStart(t *testing.T) {
	t.Parallel()

	s := NewCallbackServer("", 0, "", nil, nil)
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if s.Outcome().State != OutcomeCancelled {
		t.Fatalf("stopping a pending server should cancel it: %+v", s.Outcome())
	}
	if err := s.Start(context.Background(), 0); err == nil {
		t.Fatal("a resolved server must not start")
	}
}

func TestCallbackServer_URLs(t *testing.T) {
	t.Parallel()

	s := NewCallbackServer("127.0.0.1", 3456, "auth", nil, nil)
	if got := s.ReturnURL(); got != "http://127.0.0.1:3456/auth" {
		t.Fatalf("ReturnURL = %q", got)
	}
	if got := s.Realm(); got != "http://127.0.0.1:3456/" {
		t.Fatalf("Realm = %q", got)
	}
}
