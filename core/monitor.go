package core

import (
	"context"
	"sync"
)

// ConnectionMonitor owns the process-wide ConnectionStatus. Transitions
// come only from connectivity signals and from the dispatcher observing a
// successful transmit while offline.
type ConnectionMonitor struct {
	mu     sync.Mutex
	status ConnectionStatus

	logger   Logger
	notifier Notifier
	hooks    LifecycleHooks

	// onReachable runs outside the monitor lock whenever connectivity is
	// regained; the client wires it to heartbeat check + queue drain.
	onReachable func()

	unsubscribe func()
}

func newConnectionMonitor(logger Logger, notifier Notifier, hooks LifecycleHooks, onReachable func()) *ConnectionMonitor {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if hooks == nil {
		hooks = NopLifecycleHooks{}
	}
	return &ConnectionMonitor{
		status:      StatusOnline,
		logger:      logger,
		notifier:    notifier,
		hooks:       hooks,
		onReachable: onReachable,
	}
}

func (m *ConnectionMonitor) attach(source ConnectivitySignalSource) {
	if m == nil || source == nil {
		return
	}
	m.unsubscribe = source.Subscribe(m)
}

func (m *ConnectionMonitor) detach() {
	if m == nil || m.unsubscribe == nil {
		return
	}
	m.unsubscribe()
	m.unsubscribe = nil
}

// Status returns the current reachability state.
func (m *ConnectionMonitor) Status() ConnectionStatus {
	if m == nil {
		return StatusOnline
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// OnReachable transitions to Checking and kicks the recovery path; the
// dispatcher promotes Checking to Online on the first successful transmit.
func (m *ConnectionMonitor) OnReachable() {
	if m == nil {
		return
	}
	changed := m.transition(StatusChecking, StatusOffline)
	if !changed {
		return
	}
	if m.onReachable != nil {
		m.onReachable()
	}
}

// OnUnreachable transitions to Offline and tells the user.
func (m *ConnectionMonitor) OnUnreachable() {
	if m == nil {
		return
	}
	if !m.transition(StatusOffline, StatusOnline, StatusChecking) {
		return
	}
	m.notifier.Notify(context.Background(), Notice{
		Kind:    NoticeOffline,
		Message: "connection lost, requests will be queued",
	})
}

// MarkOnline records a confirmed working transmit.
func (m *ConnectionMonitor) MarkOnline() bool {
	return m.transition(StatusOnline, StatusOffline, StatusChecking)
}

// MarkOffline records a transmit that found the network unreachable.
func (m *ConnectionMonitor) MarkOffline() bool {
	changed := m.transition(StatusOffline, StatusOnline, StatusChecking)
	if changed {
		m.notifier.Notify(context.Background(), Notice{
			Kind:    NoticeOffline,
			Message: "connection lost, requests will be queued",
		})
	}
	return changed
}

// transition moves to next when the current status is one of from (or from
// is empty). Returns whether the status changed.
func (m *ConnectionMonitor) transition(next ConnectionStatus, from ...ConnectionStatus) bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	current := m.status
	allowed := len(from) == 0
	for _, status := range from {
		if current == status {
			allowed = true
			break
		}
	}
	if !allowed || current == next {
		m.mu.Unlock()
		return false
	}
	m.status = next
	m.mu.Unlock()

	if m.logger != nil {
		m.logger.Info("connection status changed", "from", string(current), "to", string(next))
	}
	m.hooks.OnConnectionStatusChanged(context.Background(), next)
	return true
}

var _ ConnectivityListener = (*ConnectionMonitor)(nil)
