package query

import (
	"github.com/goliatone/go-authclient/core"
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Querier[ConnectionStatusMessage, core.ConnectionStatus] = (*ConnectionStatusQuery)(nil)
	_ gocmd.Querier[QueueLengthMessage, int]                        = (*QueueLengthQuery)(nil)
	_ gocmd.Querier[CredentialStateMessage, core.CredentialState]   = (*CredentialStateQuery)(nil)
)
