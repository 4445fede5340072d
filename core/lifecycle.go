package core

import (
	"context"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// renewalAttempt is the shared result of one in-flight renewal. Concurrent
// callers that find a renewal running wait on done and read the same
// cred/err pair, so the credential source sees exactly one call.
type renewalAttempt struct {
	done chan struct{}
	cred Credential
	err  error
}

// TokenLifecycleManager owns single-flight renewal, proactive renewal
// scheduling, heartbeat validity checks, and fatal-failure escalation.
//
// State machine: Idle -> (validity check fails) -> Renewing -> Idle on
// success; Renewing -> Failed -> Idle (unauthenticated) after retries are
// exhausted, which tears the session down through the fatal handler.
type TokenLifecycleManager struct {
	source  CredentialSource
	store   CredentialStore
	clock   Clock
	backoff BackoffScheduler
	cfg     RenewalConfig

	logger          Logger
	metricsRecorder MetricsRecorder
	hooks           LifecycleHooks
	notifier        Notifier
	errorMapper     ErrorMapper

	// onFatal runs after renewal retries are exhausted; the client wires it
	// to full session teardown (queue clear included).
	onFatal func(ctx context.Context, err error)

	mu             sync.Mutex
	pending        *renewalAttempt
	refreshTimer   Timer
	heartbeatTimer Timer
	closed         bool
}

type lifecycleDeps struct {
	Source      CredentialSource
	Store       CredentialStore
	Clock       Clock
	Backoff     BackoffScheduler
	Config      RenewalConfig
	Logger      Logger
	Metrics     MetricsRecorder
	Hooks       LifecycleHooks
	Notifier    Notifier
	ErrorMapper ErrorMapper
	OnFatal     func(ctx context.Context, err error)
}

func newTokenLifecycleManager(deps lifecycleDeps) *TokenLifecycleManager {
	m := &TokenLifecycleManager{
		source:          deps.Source,
		store:           deps.Store,
		clock:           deps.Clock,
		backoff:         deps.Backoff,
		cfg:             deps.Config,
		logger:          deps.Logger,
		metricsRecorder: deps.Metrics,
		hooks:           deps.Hooks,
		notifier:        deps.Notifier,
		errorMapper:     deps.ErrorMapper,
		onFatal:         deps.OnFatal,
	}
	if m.clock == nil {
		m.clock = SystemClock{}
	}
	if m.backoff == nil {
		m.backoff = ExponentialBackoffScheduler{
			Initial: deps.Config.InitialBackoff,
			Max:     deps.Config.MaxBackoff,
		}
	}
	if m.hooks == nil {
		m.hooks = NopLifecycleHooks{}
	}
	if m.notifier == nil {
		m.notifier = NopNotifier{}
	}
	if m.errorMapper == nil {
		m.errorMapper = clientErrorMapper
	}
	return m
}

// GetValidToken returns the stored credential when its expiry is further
// than the buffer window from now; otherwise it transparently renews. It
// never returns an expired or expiring credential.
func (m *TokenLifecycleManager) GetValidToken(ctx context.Context) (Credential, error) {
	if m == nil || m.source == nil {
		return Credential{}, newClientError(
			"core: credential source is not configured",
			goerrors.CategoryAuth,
			ClientErrorCredentialUnavailable,
		)
	}
	if m.store != nil {
		cred, found, err := m.store.Get(ctx)
		if err != nil {
			return Credential{}, m.mapError(err)
		}
		if found && ResolveCredentialState(m.clock.Now(), cred, m.cfg.ExpiryBuffer).Usable() {
			return cred, nil
		}
	}
	return m.RenewToken(ctx)
}

// RenewToken renews the credential with single-flight semantics: when a
// renewal is already in flight every caller waits on that same attempt and
// observes its result.
func (m *TokenLifecycleManager) RenewToken(ctx context.Context) (Credential, error) {
	if m == nil || m.source == nil {
		return Credential{}, newClientError(
			"core: credential source is not configured",
			goerrors.CategoryAuth,
			ClientErrorCredentialUnavailable,
		)
	}

	m.mu.Lock()
	if attempt := m.pending; attempt != nil {
		m.mu.Unlock()
		select {
		case <-ctx.Done():
			return Credential{}, m.mapError(ctx.Err())
		case <-attempt.done:
		}
		return attempt.cred, attempt.err
	}
	attempt := &renewalAttempt{done: make(chan struct{})}
	m.pending = attempt
	m.mu.Unlock()

	// The renewal outlives any single caller's context: other waiters share
	// its result, so one caller hanging up must not abort it.
	cred, err := m.renew(context.WithoutCancel(ctx))

	attempt.cred = cred
	attempt.err = err
	m.mu.Lock()
	m.pending = nil
	m.mu.Unlock()
	close(attempt.done)

	return cred, err
}

func (m *TokenLifecycleManager) renew(ctx context.Context) (Credential, error) {
	startedAt := m.clock.Now()
	maxAttempts := m.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		cred, err := m.source.IssueCredential(ctx)
		if err == nil {
			if strings.TrimSpace(cred.Value) == "" {
				err = newClientError(
					"core: credential source returned an empty credential",
					goerrors.CategoryAuth,
					ClientErrorRenewalFailed,
				)
			} else if !cred.ExpiresAt.After(m.clock.Now()) {
				err = newClientError(
					"core: credential source returned an already expired credential",
					goerrors.CategoryAuth,
					ClientErrorRenewalFailed,
				)
			}
		}
		if err == nil {
			if cred.IssuedAt.IsZero() {
				cred.IssuedAt = m.clock.Now()
			}
			if m.store != nil {
				if saveErr := m.store.Save(ctx, cred); saveErr != nil {
					return Credential{}, m.mapError(saveErr)
				}
			}
			m.ScheduleNextRefresh()
			m.hooks.OnCredentialRenewed(ctx, cred)
			m.observeRenewal(ctx, startedAt, attempt, nil)
			return cred, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}
		delay := m.backoff.NextDelay(attempt)
		if waitErr := waitWithContext(ctx, m.clock, delay); waitErr != nil {
			return Credential{}, m.mapError(waitErr)
		}
	}

	m.observeRenewal(ctx, startedAt, maxAttempts, lastErr)
	fatal := wrapClientError(
		lastErr,
		goerrors.CategoryAuth,
		"core: credential renewal failed after retries",
		ClientErrorRenewalFailed,
	)
	m.escalateRenewalFailure(ctx, fatal)
	return Credential{}, fatal
}

// escalateRenewalFailure is the Failed branch of the state machine: the
// session is torn down and the host application is driven to logged-out.
func (m *TokenLifecycleManager) escalateRenewalFailure(ctx context.Context, fatal error) {
	m.cancelTimers()
	if m.store != nil {
		_ = m.store.Clear(ctx)
	}
	m.hooks.OnRenewalFailed(ctx, fatal)
	m.notifier.Notify(ctx, Notice{
		Kind:    NoticeSessionExpired,
		Message: "session expired, sign in again",
		Err:     fatal,
	})
	if m.onFatal != nil {
		m.onFatal(ctx, fatal)
	}
}

// ScheduleNextRefresh arms the proactive renewal timer. Re-arming cancels
// any prior timer so no two renewal timers are ever armed at once.
func (m *TokenLifecycleManager) ScheduleNextRefresh() {
	if m == nil {
		return
	}
	interval := m.cfg.RefreshInterval
	if interval <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
	}
	m.refreshTimer = m.clock.AfterFunc(interval, func() {
		if _, err := m.RenewToken(context.Background()); err != nil {
			m.logRenewError("scheduled renewal failed", err)
		}
	})
}

// State reports the stored credential's validity snapshot. It never
// triggers a renewal.
func (m *TokenLifecycleManager) State(ctx context.Context) (CredentialState, error) {
	if m == nil || m.store == nil {
		return CredentialState{}, nil
	}
	cred, found, err := m.store.Get(ctx)
	if err != nil {
		return CredentialState{}, m.mapError(err)
	}
	if !found {
		return CredentialState{}, nil
	}
	return ResolveCredentialState(m.clock.Now(), cred, m.cfg.ExpiryBuffer), nil
}

// CheckAndRefresh is the heartbeat and reachability-regain entry point: it
// no-ops while the stored credential is still valid and renews otherwise.
func (m *TokenLifecycleManager) CheckAndRefresh(ctx context.Context) error {
	if m == nil {
		return nil
	}
	if m.store != nil {
		cred, found, err := m.store.Get(ctx)
		if err != nil {
			return m.mapError(err)
		}
		if found && ResolveCredentialState(m.clock.Now(), cred, m.cfg.ExpiryBuffer).Usable() {
			return nil
		}
		if !found {
			// No session to keep alive.
			return nil
		}
	}
	_, err := m.RenewToken(ctx)
	return err
}

func (m *TokenLifecycleManager) startHeartbeat() {
	if m == nil || m.cfg.HeartbeatInterval <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	if m.heartbeatTimer != nil {
		m.heartbeatTimer.Stop()
	}
	m.heartbeatTimer = m.clock.AfterFunc(m.cfg.HeartbeatInterval, m.heartbeatTick)
}

func (m *TokenLifecycleManager) heartbeatTick() {
	if err := m.CheckAndRefresh(context.Background()); err != nil {
		m.logRenewError("heartbeat renewal failed", err)
	}
	m.startHeartbeat()
}

// Teardown cancels scheduled timers and clears the persisted credential.
// The manager returns to the unauthenticated Idle state; a later
// GetValidToken starts a fresh renewal.
func (m *TokenLifecycleManager) Teardown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.cancelTimers()
	if m.store != nil {
		if err := m.store.Clear(ctx); err != nil {
			return m.mapError(err)
		}
	}
	return nil
}

// Close stops all timers permanently. In-flight renewal results are
// discarded by their callers; the manager arms no further work.
func (m *TokenLifecycleManager) Close() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancelTimers()
}

func (m *TokenLifecycleManager) cancelTimers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.refreshTimer != nil {
		m.refreshTimer.Stop()
		m.refreshTimer = nil
	}
	if m.heartbeatTimer != nil {
		m.heartbeatTimer.Stop()
		m.heartbeatTimer = nil
	}
}

func (m *TokenLifecycleManager) mapError(err error) error {
	if err == nil {
		return nil
	}
	if m != nil && m.errorMapper != nil {
		if mapped := m.errorMapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

func (m *TokenLifecycleManager) observeRenewal(ctx context.Context, startedAt time.Time, attempts int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	tags := map[string]string{"operation": "renewal", "status": status}
	if m.metricsRecorder != nil {
		m.metricsRecorder.IncCounter(ctx, MetricRenewalTotal, 1, tags)
		m.metricsRecorder.ObserveHistogram(
			ctx,
			MetricRenewalDurationMS,
			float64(m.clock.Now().Sub(startedAt).Milliseconds()),
			tags,
		)
	}
	if m.logger == nil {
		return
	}
	logger := m.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if err != nil {
		logger.Error("credential renewal failed", "attempts", attempts, "error", err.Error())
		return
	}
	logger.Info("credential renewed", "attempts", attempts)
}

func (m *TokenLifecycleManager) logRenewError(message string, err error) {
	if m == nil || m.logger == nil || err == nil {
		return
	}
	m.logger.Error(message, "error", err.Error())
}
