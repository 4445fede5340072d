package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	mu      sync.Mutex
	fn      func()
	d       time.Duration
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (t *fakeTimer) fire() {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	fn := t.fn
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fakeClock is a deterministic Clock: waits return immediately but are
// recorded, and AfterFunc timers only fire when the test fires them.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	waits  []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	timer := &fakeTimer{fn: fn, d: d}
	c.mu.Lock()
	c.timers = append(c.timers, timer)
	c.mu.Unlock()
	return timer
}

func (c *fakeClock) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.waits = append(c.waits, d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) recordedWaits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.waits))
	copy(out, c.waits)
	return out
}

func (c *fakeClock) armedTimers() []*fakeTimer {
	c.mu.Lock()
	defer c.mu.Unlock()
	var armed []*fakeTimer
	for _, timer := range c.timers {
		timer.mu.Lock()
		stopped := timer.stopped
		timer.mu.Unlock()
		if !stopped {
			armed = append(armed, timer)
		}
	}
	return armed
}

type stubCredentialSource struct {
	mu    sync.Mutex
	calls int
	issue func(call int) (Credential, error)
}

func (s *stubCredentialSource) IssueCredential(ctx context.Context) (Credential, error) {
	s.mu.Lock()
	s.calls++
	call := s.calls
	issue := s.issue
	s.mu.Unlock()
	if issue == nil {
		return Credential{}, fmt.Errorf("stub source has no issue func")
	}
	return issue(call)
}

func (s *stubCredentialSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type transportOutcome struct {
	resp Response
	err  error
}

// scriptedTransport pops outcomes in order; the last outcome repeats once
// the script runs out.
type scriptedTransport struct {
	mu       sync.Mutex
	script   []transportOutcome
	requests []TransportRequest
}

func (t *scriptedTransport) Kind() string { return "scripted" }

func (t *scriptedTransport) Do(_ context.Context, req TransportRequest) (Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.requests = append(t.requests, req)
	if len(t.script) == 0 {
		return Response{StatusCode: 200}, nil
	}
	outcome := t.script[0]
	if len(t.script) > 1 {
		t.script = t.script[1:]
	}
	return outcome.resp, outcome.err
}

func (t *scriptedTransport) append(outcomes ...transportOutcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.script = append(t.script, outcomes...)
}

func (t *scriptedTransport) recorded() []TransportRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]TransportRequest, len(t.requests))
	copy(out, t.requests)
	return out
}

type captureNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *captureNotifier) Notify(_ context.Context, notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *captureNotifier) kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NoticeKind, 0, len(n.notices))
	for _, notice := range n.notices {
		out = append(out, notice.Kind)
	}
	return out
}

func (n *captureNotifier) has(kind NoticeKind) bool {
	for _, got := range n.kinds() {
		if got == kind {
			return true
		}
	}
	return false
}

type captureHooks struct {
	mu       sync.Mutex
	renewed  int
	failed   int
	logouts  []string
	statuses []ConnectionStatus
}

func (h *captureHooks) OnCredentialRenewed(context.Context, Credential) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renewed++
}

func (h *captureHooks) OnRenewalFailed(context.Context, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.failed++
}

func (h *captureHooks) OnLoggedOut(_ context.Context, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logouts = append(h.logouts, reason)
}

func (h *captureHooks) OnConnectionStatusChanged(_ context.Context, status ConnectionStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.statuses = append(h.statuses, status)
}

func (h *captureHooks) logoutReasons() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, len(h.logouts))
	copy(out, h.logouts)
	return out
}

type manualSignalSource struct {
	mu       sync.Mutex
	listener ConnectivityListener
}

func (s *manualSignalSource) Subscribe(listener ConnectivityListener) func() {
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.listener = nil
		s.mu.Unlock()
	}
}

func (s *manualSignalSource) reachable() {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener.OnReachable()
	}
}

func (s *manualSignalSource) unreachable() {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener != nil {
		listener.OnUnreachable()
	}
}

func validCredential(clock Clock, ttl time.Duration) Credential {
	now := clock.Now()
	return Credential{Value: "tok-" + now.Format("150405.000000000"), IssuedAt: now, ExpiresAt: now.Add(ttl)}
}

type clientFixture struct {
	client    *Client
	clock     *fakeClock
	source    *stubCredentialSource
	transport *scriptedTransport
	notifier  *captureNotifier
	hooks     *captureHooks
	signals   *manualSignalSource
}

func newClientFixture(t *testing.T, mutate func(*Config), extra ...Option) *clientFixture {
	t.Helper()

	fixture := &clientFixture{
		clock:     newFakeClock(),
		transport: &scriptedTransport{},
		notifier:  &captureNotifier{},
		hooks:     &captureHooks{},
		signals:   &manualSignalSource{},
	}
	fixture.source = &stubCredentialSource{
		issue: func(int) (Credential, error) {
			return validCredential(fixture.clock, time.Hour), nil
		},
	}

	cfg := Config{BaseURL: "https://api.internal.test"}
	if mutate != nil {
		mutate(&cfg)
	}

	options := append([]Option{
		WithCredentialSource(fixture.source),
		WithTransportAdapter(fixture.transport),
		WithClock(fixture.clock),
		WithNotifier(fixture.notifier),
		WithLifecycleHooks(fixture.hooks),
		WithConnectivitySource(fixture.signals),
	}, extra...)

	client, err := NewClient(cfg, options...)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	fixture.client = client
	return fixture
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}
