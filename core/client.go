package core

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Client is the resilient authenticated request layer. It owns the token
// lifecycle, the connection monitor, the offline replay queue, and the
// dispatch pipeline that ties them together.
type Client struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper

	lifecycle *TokenLifecycleManager
	monitor   *ConnectionMonitor
	queue     *RequestQueue

	transport TransportAdapter
	signer    Signer
	clock     Clock
	notifier  Notifier
	hooks     LifecycleHooks

	timeoutBackoff BackoffScheduler
	serverBackoff  BackoffScheduler

	connectivity ConnectivitySignalSource
	jobEnqueuer  JobEnqueuer
}

func NewClient(cfg Config, options ...Option) (*Client, error) {
	builder := defaultClientBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("authclient", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("authclient"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.signer == nil {
		builder.signer = BearerTokenSigner{}
	}
	if builder.clock == nil {
		builder.clock = SystemClock{}
	}
	if builder.notifier == nil {
		builder.notifier = NopNotifier{}
	}
	if builder.hooks == nil {
		builder.hooks = NopLifecycleHooks{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig = finalConfig.normalize()

	if builder.credentialSource == nil {
		return nil, newClientError(
			"core: credential source is required",
			goerrors.CategoryBadInput,
			ClientErrorBadInput,
		)
	}
	if builder.transport == nil {
		return nil, newClientError(
			"core: transport adapter is required",
			goerrors.CategoryBadInput,
			ClientErrorBadInput,
		)
	}
	if builder.credentialStore == nil {
		builder.credentialStore = NewMemoryCredentialStore(finalConfig.Store.MaxLifetime)
	}
	if builder.renewalBackoff == nil {
		builder.renewalBackoff = ExponentialBackoffScheduler{
			Initial: finalConfig.Renewal.InitialBackoff,
			Max:     finalConfig.Renewal.MaxBackoff,
		}
	}

	c := &Client{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		transport:       builder.transport,
		signer:          builder.signer,
		clock:           builder.clock,
		notifier:        builder.notifier,
		hooks:           builder.hooks,
		connectivity:    builder.connectivity,
		jobEnqueuer:     builder.jobEnqueuer,
		timeoutBackoff: ExponentialBackoffScheduler{
			Initial: finalConfig.Retry.TimeoutInitialBackoff,
			Max:     finalConfig.Retry.TimeoutMaxBackoff,
		},
		serverBackoff: LinearBackoffScheduler{
			Step: finalConfig.Retry.ServerErrorStep,
			Max:  finalConfig.Retry.ServerErrorStep * 2,
		},
	}

	c.queue = newRequestQueue(finalConfig.Queue.MaxLength, c.clock, logger, c.metricsRecorder)
	c.lifecycle = newTokenLifecycleManager(lifecycleDeps{
		Source:      builder.credentialSource,
		Store:       builder.credentialStore,
		Clock:       c.clock,
		Backoff:     builder.renewalBackoff,
		Config:      finalConfig.Renewal,
		Logger:      logger,
		Metrics:     c.metricsRecorder,
		Hooks:       c.hooks,
		Notifier:    c.notifier,
		ErrorMapper: c.errorMapper,
		OnFatal:     c.onRenewalFatal,
	})
	c.monitor = newConnectionMonitor(logger, c.notifier, c.hooks, c.onReachableSignal)
	c.monitor.attach(builder.connectivity)

	return c, nil
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper != nil {
		if mapped := mapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

// Start arms proactive renewal and heartbeat checks. Safe to call once after
// construction; dispatching works without it, but nothing renews in the
// background until Start runs.
func (c *Client) Start(ctx context.Context) error {
	if c == nil {
		return nil
	}
	if err := c.lifecycle.CheckAndRefresh(ctx); err != nil {
		c.logError(ctx, "initial credential check failed", map[string]any{"error": err.Error()})
	}
	c.lifecycle.ScheduleNextRefresh()
	c.lifecycle.startHeartbeat()
	return nil
}

// Logout tears the session down: timers cancelled, credential cleared, and
// every queued call rejected so no stale request fires under a future
// session.
func (c *Client) Logout(ctx context.Context) error {
	if c == nil {
		return nil
	}
	startedAt := c.clock.Now()
	err := c.lifecycle.Teardown(ctx)
	cleared := c.queue.Clear(ctx)
	c.hooks.OnLoggedOut(ctx, "user_logout")
	c.observeOperation(ctx, startedAt, "logout", err, map[string]any{
		"queue_cleared": cleared,
	})
	return err
}

// forceLogout runs when authorization is denied even after renewal: the
// credential is unusable, so the session ends.
func (c *Client) forceLogout(ctx context.Context, cause error) {
	if c == nil {
		return
	}
	_ = c.lifecycle.Teardown(ctx)
	c.queue.Clear(ctx)
	c.hooks.OnLoggedOut(ctx, "authorization_denied")
	c.notifier.Notify(ctx, Notice{
		Kind:    NoticeSessionExpired,
		Message: "session is no longer valid, sign in again",
		Err:     cause,
	})
}

// onRenewalFatal is wired into the lifecycle manager: exhausted renewal
// retries end the session, queue included.
func (c *Client) onRenewalFatal(ctx context.Context, _ error) {
	if c == nil {
		return
	}
	c.queue.Clear(ctx)
	c.hooks.OnLoggedOut(ctx, "renewal_failed")
}

// ConnectionStatus reports the monitor's current reachability state.
func (c *Client) ConnectionStatus() ConnectionStatus {
	if c == nil {
		return StatusOnline
	}
	return c.monitor.Status()
}

// QueueLength reports the number of calls waiting for replay.
func (c *Client) QueueLength() int {
	if c == nil {
		return 0
	}
	return c.queue.Len()
}

// CredentialState reports the stored credential's validity snapshot without
// triggering a renewal.
func (c *Client) CredentialState(ctx context.Context) (CredentialState, error) {
	if c == nil {
		return CredentialState{}, nil
	}
	return c.lifecycle.State(ctx)
}

// RenewNow forces a renewal regardless of the stored credential's validity.
func (c *Client) RenewNow(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.lifecycle.RenewToken(ctx)
	return err
}

// Config returns the resolved configuration.
func (c *Client) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.config
}

// Logger exposes the client logger for adapters.
func (c *Client) Logger() Logger {
	if c == nil {
		return nil
	}
	return c.logger
}

// LoggerProvider exposes the resolved logger provider for adapters.
func (c *Client) LoggerProvider() LoggerProvider {
	if c == nil {
		return nil
	}
	return c.loggerProvider
}

func (c *Client) mapError(err error) error {
	if err == nil {
		return nil
	}
	if c != nil && c.errorMapper != nil {
		if mapped := c.errorMapper(err); mapped != nil {
			return mapped
		}
	}
	return err
}

// Close stops background timers and detaches the connectivity listener.
// Queued entries stay queued; use Logout to reject them.
func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.monitor.detach()
	c.lifecycle.Close()
	return nil
}
