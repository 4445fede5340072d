package core

import (
	"testing"
)

func TestConnectionMonitor_StartsOnline(t *testing.T) {
	m := newConnectionMonitor(nil, nil, nil, nil)
	if got := m.Status(); got != StatusOnline {
		t.Fatalf("expected online at start, got %s", got)
	}
}

func TestConnectionMonitor_MarkOfflineNotifiesOnce(t *testing.T) {
	notifier := &captureNotifier{}
	m := newConnectionMonitor(nil, notifier, nil, nil)

	if !m.MarkOffline() {
		t.Fatalf("expected online -> offline transition")
	}
	if m.MarkOffline() {
		t.Fatalf("expected repeated offline mark to be a no-op")
	}
	if got := m.Status(); got != StatusOffline {
		t.Fatalf("expected offline, got %s", got)
	}

	kinds := notifier.kinds()
	if len(kinds) != 1 || kinds[0] != NoticeOffline {
		t.Fatalf("expected exactly one offline notice, got %v", kinds)
	}
}

func TestConnectionMonitor_ReachableSignalEntersChecking(t *testing.T) {
	var recovered int
	m := newConnectionMonitor(nil, nil, nil, func() { recovered++ })

	// A reachable signal while already online changes nothing.
	m.OnReachable()
	if recovered != 0 {
		t.Fatalf("expected no recovery callback while online")
	}

	m.MarkOffline()
	m.OnReachable()
	if got := m.Status(); got != StatusChecking {
		t.Fatalf("expected checking after reachable signal, got %s", got)
	}
	if recovered != 1 {
		t.Fatalf("expected one recovery callback, got %d", recovered)
	}

	if !m.MarkOnline() {
		t.Fatalf("expected checking -> online on confirmed transmit")
	}
	if got := m.Status(); got != StatusOnline {
		t.Fatalf("expected online, got %s", got)
	}
}

func TestConnectionMonitor_MarkOnlineOnlyFromOfflineOrChecking(t *testing.T) {
	m := newConnectionMonitor(nil, nil, nil, nil)
	if m.MarkOnline() {
		t.Fatalf("expected no transition while already online")
	}
	m.MarkOffline()
	if !m.MarkOnline() {
		t.Fatalf("expected offline -> online transition")
	}
}

func TestConnectionMonitor_UnreachableFromChecking(t *testing.T) {
	notifier := &captureNotifier{}
	hooks := &captureHooks{}
	m := newConnectionMonitor(nil, notifier, hooks, nil)

	m.MarkOffline()
	m.OnReachable()
	m.OnUnreachable()
	if got := m.Status(); got != StatusOffline {
		t.Fatalf("expected checking -> offline, got %s", got)
	}

	hooks.mu.Lock()
	statuses := append([]ConnectionStatus{}, hooks.statuses...)
	hooks.mu.Unlock()
	want := []ConnectionStatus{StatusOffline, StatusChecking, StatusOffline}
	if len(statuses) != len(want) {
		t.Fatalf("expected %v transitions, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Fatalf("transition %d: got %s want %s", i, statuses[i], want[i])
		}
	}
}

func TestConnectionMonitor_AttachDetach(t *testing.T) {
	source := &manualSignalSource{}
	m := newConnectionMonitor(nil, nil, nil, nil)
	m.attach(source)

	source.unreachable()
	if got := m.Status(); got != StatusOffline {
		t.Fatalf("expected offline after unreachable signal, got %s", got)
	}

	m.detach()
	source.reachable()
	if got := m.Status(); got != StatusOffline {
		t.Fatalf("expected detached monitor to ignore signals, got %s", got)
	}
}
