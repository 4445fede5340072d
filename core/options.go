package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type clientBuilder struct {
	runtimeConfig    Config
	logger           Logger
	loggerProvider   LoggerProvider
	metricsRecorder  MetricsRecorder
	errorFactory     ErrorFactory
	errorMapper      ErrorMapper
	configProvider   ConfigProvider
	optionsResolver  OptionsResolver
	credentialSource CredentialSource
	credentialStore  CredentialStore
	transport        TransportAdapter
	signer           Signer
	clock            Clock
	notifier         Notifier
	hooks            LifecycleHooks
	connectivity     ConnectivitySignalSource
	renewalBackoff   BackoffScheduler
	jobEnqueuer      JobEnqueuer
}

type Option func(*clientBuilder)

func WithLogger(logger Logger) Option {
	return func(b *clientBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *clientBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *clientBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *clientBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *clientBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *clientBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *clientBuilder) {
		b.optionsResolver = resolver
	}
}

func WithCredentialSource(source CredentialSource) Option {
	return func(b *clientBuilder) {
		b.credentialSource = source
	}
}

func WithCredentialStore(store CredentialStore) Option {
	return func(b *clientBuilder) {
		b.credentialStore = store
	}
}

func WithTransportAdapter(adapter TransportAdapter) Option {
	return func(b *clientBuilder) {
		b.transport = adapter
	}
}

func WithSigner(signer Signer) Option {
	return func(b *clientBuilder) {
		b.signer = signer
	}
}

func WithClock(clock Clock) Option {
	return func(b *clientBuilder) {
		b.clock = clock
	}
}

func WithNotifier(notifier Notifier) Option {
	return func(b *clientBuilder) {
		b.notifier = notifier
	}
}

func WithLifecycleHooks(hooks LifecycleHooks) Option {
	return func(b *clientBuilder) {
		b.hooks = hooks
	}
}

func WithConnectivitySource(source ConnectivitySignalSource) Option {
	return func(b *clientBuilder) {
		b.connectivity = source
	}
}

func WithRenewalBackoffScheduler(scheduler BackoffScheduler) Option {
	return func(b *clientBuilder) {
		b.renewalBackoff = scheduler
	}
}

func WithJobEnqueuer(enqueuer JobEnqueuer) Option {
	return func(b *clientBuilder) {
		b.jobEnqueuer = enqueuer
	}
}

func defaultClientBuilder(runtime Config) clientBuilder {
	loggerProvider, logger := glog.Resolve("authclient", nil, nil)
	return clientBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		signer:          BearerTokenSigner{},
		clock:           SystemClock{},
		notifier:        NopNotifier{},
		hooks:           NopLifecycleHooks{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return clientErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	return copyAnyMap(l.Values), nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.BaseURL) != "" {
		layer["base_url"] = cfg.BaseURL
	}
	if includeZero || strings.TrimSpace(cfg.VerifyPath) != "" {
		layer["verify_path"] = cfg.VerifyPath
	}

	renewal := map[string]any{}
	if includeZero || cfg.Renewal.ExpiryBuffer > 0 {
		renewal["expiry_buffer"] = cfg.Renewal.ExpiryBuffer
	}
	if includeZero || cfg.Renewal.RefreshInterval > 0 {
		renewal["refresh_interval"] = cfg.Renewal.RefreshInterval
	}
	if includeZero || cfg.Renewal.HeartbeatInterval > 0 {
		renewal["heartbeat_interval"] = cfg.Renewal.HeartbeatInterval
	}
	if includeZero || cfg.Renewal.MaxAttempts > 0 {
		renewal["max_attempts"] = cfg.Renewal.MaxAttempts
	}
	if includeZero || cfg.Renewal.InitialBackoff > 0 {
		renewal["initial_backoff"] = cfg.Renewal.InitialBackoff
	}
	if includeZero || cfg.Renewal.MaxBackoff > 0 {
		renewal["max_backoff"] = cfg.Renewal.MaxBackoff
	}
	if len(renewal) > 0 {
		layer["renewal"] = renewal
	}

	retry := map[string]any{}
	if includeZero || cfg.Retry.TimeoutRetries > 0 {
		retry["timeout_retries"] = cfg.Retry.TimeoutRetries
	}
	if includeZero || cfg.Retry.TimeoutInitialBackoff > 0 {
		retry["timeout_initial_backoff"] = cfg.Retry.TimeoutInitialBackoff
	}
	if includeZero || cfg.Retry.TimeoutMaxBackoff > 0 {
		retry["timeout_max_backoff"] = cfg.Retry.TimeoutMaxBackoff
	}
	if includeZero || cfg.Retry.ServerErrorRetries > 0 {
		retry["server_error_retries"] = cfg.Retry.ServerErrorRetries
	}
	if includeZero || cfg.Retry.ServerErrorStep > 0 {
		retry["server_error_step"] = cfg.Retry.ServerErrorStep
	}
	if includeZero || cfg.Retry.AuthRetries > 0 {
		retry["auth_retries"] = cfg.Retry.AuthRetries
	}
	if len(retry) > 0 {
		layer["retry"] = retry
	}

	if includeZero || cfg.Queue.MaxLength > 0 {
		layer["queue"] = map[string]any{
			"max_length": cfg.Queue.MaxLength,
		}
	}
	if includeZero || cfg.Store.MaxLifetime > 0 {
		layer["store"] = map[string]any{
			"max_lifetime": cfg.Store.MaxLifetime,
		}
	}
	return layer
}
