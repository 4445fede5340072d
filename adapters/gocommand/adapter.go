package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	clientcommand "github.com/goliatone/go-authclient/command"
	clientquery "github.com/goliatone/go-authclient/query"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := gocmd.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(gocmd.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry gocmd.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// Client is the combined surface the dispatcher subscriptions need: the
// mutating operations plus the read-side status and credential views.
type Client interface {
	clientcommand.MutatingClient
	clientquery.StatusReader
	clientquery.CredentialReader
}

// SubscribeClient wires every client command and query into the in-process
// dispatcher. The returned subscriptions unsubscribe in reverse order via
// the cancel function.
func SubscribeClient(client Client, runnerOpts ...runner.Option) (cancel func(), err error) {
	if client == nil {
		return nil, fmt.Errorf("gocommand: client is required")
	}

	subscriptions := []commanddispatcher.Subscription{
		SubscribeCommand(clientcommand.NewDispatchCommand(client), runnerOpts...),
		SubscribeCommand(clientcommand.NewRenewTokenCommand(client), runnerOpts...),
		SubscribeCommand(clientcommand.NewVerifyCommand(client), runnerOpts...),
		SubscribeCommand(clientcommand.NewLogoutCommand(client), runnerOpts...),
		SubscribeCommand(clientcommand.NewDrainQueueCommand(client), runnerOpts...),
		SubscribeQuery(clientquery.NewConnectionStatusQuery(client), runnerOpts...),
		SubscribeQuery(clientquery.NewQueueLengthQuery(client), runnerOpts...),
		SubscribeQuery(clientquery.NewCredentialStateQuery(client), runnerOpts...),
	}

	return func() {
		for i := len(subscriptions) - 1; i >= 0; i-- {
			if subscriptions[i] != nil {
				subscriptions[i].Unsubscribe()
			}
		}
	}, nil
}
