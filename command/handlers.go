package command

import (
	"context"

	"github.com/goliatone/go-authclient/core"
	gocmd "github.com/goliatone/go-command"
)

// MutatingClient is the subset of the client the command handlers drive.
type MutatingClient interface {
	Do(ctx context.Context, desc core.RequestDescriptor) (core.Response, error)
	RenewNow(ctx context.Context) error
	Verify(ctx context.Context) (core.VerifyResult, error)
	Logout(ctx context.Context) error
	ScheduleJob(ctx context.Context, jobID string, params map[string]any) error
}

type DispatchCommand struct {
	client MutatingClient
}

func NewDispatchCommand(client MutatingClient) *DispatchCommand {
	return &DispatchCommand{client: client}
}

func (c *DispatchCommand) Execute(ctx context.Context, msg DispatchMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: dispatch client is required")
	}
	out, err := c.client.Do(ctx, msg.Descriptor)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RenewTokenCommand struct {
	client MutatingClient
}

func NewRenewTokenCommand(client MutatingClient) *RenewTokenCommand {
	return &RenewTokenCommand{client: client}
}

func (c *RenewTokenCommand) Execute(ctx context.Context, msg RenewTokenMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: renew client is required")
	}
	return c.client.RenewNow(ctx)
}

type VerifyCommand struct {
	client MutatingClient
}

func NewVerifyCommand(client MutatingClient) *VerifyCommand {
	return &VerifyCommand{client: client}
}

func (c *VerifyCommand) Execute(ctx context.Context, msg VerifyMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: verify client is required")
	}
	out, err := c.client.Verify(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type LogoutCommand struct {
	client MutatingClient
}

func NewLogoutCommand(client MutatingClient) *LogoutCommand {
	return &LogoutCommand{client: client}
}

func (c *LogoutCommand) Execute(ctx context.Context, msg LogoutMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: logout client is required")
	}
	return c.client.Logout(ctx)
}

type DrainQueueCommand struct {
	client MutatingClient
}

func NewDrainQueueCommand(client MutatingClient) *DrainQueueCommand {
	return &DrainQueueCommand{client: client}
}

func (c *DrainQueueCommand) Execute(ctx context.Context, msg DrainQueueMessage) error {
	if c == nil || c.client == nil {
		return commandDependencyError("command: drain client is required")
	}
	return c.client.ScheduleJob(ctx, core.JobIDQueueDrain, nil)
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
