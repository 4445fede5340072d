package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// Credential is a short-lived signed token proving the caller's identity.
// It is replaced atomically on renewal and never partially updated.
type Credential struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// CredentialSource issues fresh credentials on demand. Implementations must
// be safe to call repeatedly and must not require a valid session credential.
type CredentialSource interface {
	IssueCredential(ctx context.Context) (Credential, error)
}

// CredentialStore is the process-wide persisted slot for the current
// credential. Get reports found=false when no credential is stored or the
// stored slot outlived its maximum lifetime.
type CredentialStore interface {
	Get(ctx context.Context) (Credential, bool, error)
	Save(ctx context.Context, cred Credential) error
	Clear(ctx context.Context) error
}

// RequestDescriptor describes one outbound call routed through the
// dispatcher pipeline.
type RequestDescriptor struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration

	// Bootstrap marks identity-verification calls: the credential is embedded
	// in the JSON payload in addition to the transport header, because the
	// verify endpoint treats the credential as the subject of the call.
	Bootstrap bool
}

// TransportRequest is the wire-level request handed to a transport adapter.
type TransportRequest struct {
	Method  string
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
}

// Response is returned by transport adapters and by the dispatcher.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// TransportAdapter transmits a single request. Adapters return an error only
// for transport-level failures (timeouts, unreachable host, malformed
// request); HTTP error statuses come back in the Response and are classified
// by the dispatcher.
type TransportAdapter interface {
	Kind() string
	Do(ctx context.Context, req TransportRequest) (Response, error)
}

// Signer attaches a credential to an outbound transport request.
type Signer interface {
	Sign(ctx context.Context, req *TransportRequest, cred Credential) error
}

// ConnectionStatus is the process-wide transport reachability state.
type ConnectionStatus string

const (
	StatusOnline   ConnectionStatus = "online"
	StatusOffline  ConnectionStatus = "offline"
	StatusChecking ConnectionStatus = "checking"
)

// ConnectivityListener receives reachability transitions from a signal
// source. Any host environment can implement the source side: browser
// online/offline events, OS network change notifications, or a probe loop.
type ConnectivityListener interface {
	OnReachable()
	OnUnreachable()
}

// ConnectivitySignalSource delivers reachability transitions to a listener.
// Subscribe returns a cancel function that detaches the listener.
type ConnectivitySignalSource interface {
	Subscribe(listener ConnectivityListener) (cancel func())
}

// NoticeKind labels one-shot user-visible notifications.
type NoticeKind string

const (
	NoticeRequestTimeout NoticeKind = "request_timeout"
	NoticeServerError    NoticeKind = "server_error"
	NoticeSessionExpired NoticeKind = "session_expired"
	NoticeOffline        NoticeKind = "offline"
	NoticeQueuedRetry    NoticeKind = "queued_retry"
)

// Notice is a single user-visible notification emitted by the client.
type Notice struct {
	Kind    NoticeKind
	Message string
	Err     error
}

// Notifier surfaces one-shot notifications to the host application.
type Notifier interface {
	Notify(ctx context.Context, notice Notice)
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notice) {}

// LifecycleHooks observes credential and connectivity lifecycle events.
type LifecycleHooks interface {
	OnCredentialRenewed(ctx context.Context, cred Credential)
	OnRenewalFailed(ctx context.Context, err error)
	OnLoggedOut(ctx context.Context, reason string)
	OnConnectionStatusChanged(ctx context.Context, status ConnectionStatus)
}

// NopLifecycleHooks ignores all lifecycle events.
type NopLifecycleHooks struct{}

func (NopLifecycleHooks) OnCredentialRenewed(context.Context, Credential)           {}
func (NopLifecycleHooks) OnRenewalFailed(context.Context, error)                    {}
func (NopLifecycleHooks) OnLoggedOut(context.Context, string)                       {}
func (NopLifecycleHooks) OnConnectionStatusChanged(context.Context, ConnectionStatus) {}

// Timer is an armed callback that can be stopped before it fires.
type Timer interface {
	Stop() bool
}

// Clock abstracts time for renewal scheduling, heartbeats, and backoff
// waits so they are deterministically testable with virtual time.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, fn func()) Timer
	Wait(ctx context.Context, d time.Duration) error
}

// MetricsRecorder receives counters and histograms from the client.
type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

// JobExecutionMessage is the queue-neutral description of a scheduled
// client job (heartbeat tick, proactive renewal, queue drain).
type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

// JobNackOptions bounds redelivery of a failed job execution.
type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobDequeuer interface {
	Dequeue(ctx context.Context) (JobDelivery, error)
}

// JobWorkerEvent mirrors one worker lifecycle transition for observability.
type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

// JobWorkerHook observes job worker lifecycle transitions.
type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}

// VerifyResult is the decoded response of the identity-verification
// bootstrap endpoint.
type VerifyResult struct {
	Valid   bool   `json:"valid"`
	Subject string `json:"subject"`
}
