package authclient

import (
	"fmt"

	clientcommand "github.com/goliatone/go-authclient/command"
	clientquery "github.com/goliatone/go-authclient/query"
)

// CommandQueryClient is the combined surface the facade wraps: the mutating
// operations plus the read-side status and credential views. *core.Client
// satisfies it.
type CommandQueryClient interface {
	clientcommand.MutatingClient
	clientquery.StatusReader
	clientquery.CredentialReader
}

type Commands struct {
	Dispatch   *clientcommand.DispatchCommand
	RenewToken *clientcommand.RenewTokenCommand
	Verify     *clientcommand.VerifyCommand
	Logout     *clientcommand.LogoutCommand
	DrainQueue *clientcommand.DrainQueueCommand
}

type Queries struct {
	ConnectionStatus *clientquery.ConnectionStatusQuery
	QueueLength      *clientquery.QueueLengthQuery
	CredentialState  *clientquery.CredentialStateQuery
}

// Facade bundles the command and query handlers around one client so hosts
// that route everything through a message dispatcher have a single
// construction point.
type Facade struct {
	client   CommandQueryClient
	commands Commands
	queries  Queries
}

func NewFacade(client CommandQueryClient) (*Facade, error) {
	if client == nil {
		return nil, fmt.Errorf("authclient: command/query client is required")
	}

	facade := &Facade{client: client}
	facade.commands = Commands{
		Dispatch:   clientcommand.NewDispatchCommand(client),
		RenewToken: clientcommand.NewRenewTokenCommand(client),
		Verify:     clientcommand.NewVerifyCommand(client),
		Logout:     clientcommand.NewLogoutCommand(client),
		DrainQueue: clientcommand.NewDrainQueueCommand(client),
	}
	facade.queries = Queries{
		ConnectionStatus: clientquery.NewConnectionStatusQuery(client),
		QueueLength:      clientquery.NewQueueLengthQuery(client),
		CredentialState:  clientquery.NewCredentialStateQuery(client),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Client() CommandQueryClient {
	if f == nil {
		return nil
	}
	return f.client
}
