package authclient

import "github.com/goliatone/go-authclient/core"

type Config = core.Config

type RenewalConfig = core.RenewalConfig
type RetryConfig = core.RetryConfig
type QueueConfig = core.QueueConfig
type StoreConfig = core.StoreConfig

type Option = core.Option

type Client = core.Client

type Credential = core.Credential
type CredentialSource = core.CredentialSource
type CredentialStore = core.CredentialStore
type CredentialState = core.CredentialState

type RequestDescriptor = core.RequestDescriptor
type RequestOption = core.RequestOption
type Response = core.Response
type TransportAdapter = core.TransportAdapter
type Signer = core.Signer

type ConnectionStatus = core.ConnectionStatus
type ConnectivityListener = core.ConnectivityListener
type ConnectivitySignalSource = core.ConnectivitySignalSource

type Notice = core.Notice
type NoticeKind = core.NoticeKind
type Notifier = core.Notifier
type LifecycleHooks = core.LifecycleHooks

type Clock = core.Clock
type MetricsRecorder = core.MetricsRecorder

const (
	StatusOnline   = core.StatusOnline
	StatusOffline  = core.StatusOffline
	StatusChecking = core.StatusChecking
)

var (
	WithLogger                  = core.WithLogger
	WithLoggerProvider          = core.WithLoggerProvider
	WithMetricsRecorder         = core.WithMetricsRecorder
	WithErrorFactory            = core.WithErrorFactory
	WithErrorMapper             = core.WithErrorMapper
	WithConfigProvider          = core.WithConfigProvider
	WithOptionsResolver         = core.WithOptionsResolver
	WithCredentialSource        = core.WithCredentialSource
	WithCredentialStore         = core.WithCredentialStore
	WithTransportAdapter        = core.WithTransportAdapter
	WithSigner                  = core.WithSigner
	WithClock                   = core.WithClock
	WithNotifier                = core.WithNotifier
	WithLifecycleHooks          = core.WithLifecycleHooks
	WithConnectivitySource      = core.WithConnectivitySource
	WithRenewalBackoffScheduler = core.WithRenewalBackoffScheduler
	WithJobEnqueuer             = core.WithJobEnqueuer

	WithQuery          = core.WithQuery
	WithHeaders        = core.WithHeaders
	WithRequestTimeout = core.WithRequestTimeout
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	return core.NewClient(cfg, opts...)
}
