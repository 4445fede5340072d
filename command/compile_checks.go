package command

import (
	gocmd "github.com/goliatone/go-command"
)

var (
	_ gocmd.Commander[DispatchMessage]   = (*DispatchCommand)(nil)
	_ gocmd.Commander[RenewTokenMessage] = (*RenewTokenCommand)(nil)
	_ gocmd.Commander[VerifyMessage]     = (*VerifyCommand)(nil)
	_ gocmd.Commander[LogoutMessage]     = (*LogoutCommand)(nil)
	_ gocmd.Commander[DrainQueueMessage] = (*DrainQueueCommand)(nil)
)
