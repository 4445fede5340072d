package query

const (
	TypeConnectionStatus = "authclient.query.connection_status"
	TypeQueueLength      = "authclient.query.queue_length"
	TypeCredentialState  = "authclient.query.credential_state"
)

type ConnectionStatusMessage struct{}

func (ConnectionStatusMessage) Type() string { return TypeConnectionStatus }

func (ConnectionStatusMessage) Validate() error { return nil }

type QueueLengthMessage struct{}

func (QueueLengthMessage) Type() string { return TypeQueueLength }

func (QueueLengthMessage) Validate() error { return nil }

type CredentialStateMessage struct{}

func (CredentialStateMessage) Type() string { return TypeCredentialState }

func (CredentialStateMessage) Validate() error { return nil }
