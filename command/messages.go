package command

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-authclient/core"
)

const (
	TypeDispatch   = "authclient.command.dispatch"
	TypeRenewToken = "authclient.command.token.renew"
	TypeVerify     = "authclient.command.verify"
	TypeLogout     = "authclient.command.logout"
	TypeDrainQueue = "authclient.command.queue.drain"
)

type DispatchMessage struct {
	Descriptor core.RequestDescriptor
}

func (DispatchMessage) Type() string { return TypeDispatch }

func (m DispatchMessage) Validate() error {
	if strings.TrimSpace(m.Descriptor.Method) == "" {
		return fmt.Errorf("command: request method is required")
	}
	if strings.TrimSpace(m.Descriptor.Path) == "" {
		return fmt.Errorf("command: request path is required")
	}
	return nil
}

type RenewTokenMessage struct{}

func (RenewTokenMessage) Type() string { return TypeRenewToken }

func (RenewTokenMessage) Validate() error { return nil }

type VerifyMessage struct{}

func (VerifyMessage) Type() string { return TypeVerify }

func (VerifyMessage) Validate() error { return nil }

type LogoutMessage struct {
	Reason string
}

func (LogoutMessage) Type() string { return TypeLogout }

func (LogoutMessage) Validate() error { return nil }

type DrainQueueMessage struct{}

func (DrainQueueMessage) Type() string { return TypeDrainQueue }

func (DrainQueueMessage) Validate() error { return nil }
