package winrs

import (
	"context"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
)

// Protocol is the subset of *wsman.Protocol used by shells and processes.
type Protocol interface {
	OpenShell(ctx context.Context, opts wsman.ShellOptions) (string, error)
	RunCommand(ctx context.Context, shellID, command string, args []string, timeout time.Duration) (string, error)
	SendCommandInput(ctx context.Context, shellID, commandID string, input []byte, end bool) error
	GetCommandState(ctx context.Context, shellID, commandID string, timeout time.Duration) (*wsman.CommandState, error)
	StreamCommandState(ctx context.Context, shellID, commandID string, timeout time.Duration, fn func(*wsman.CommandState) error) (*wsman.CommandState, error)
	SignalCommand(ctx context.Context, shellID, commandID, code string) error
	CloseCommand(ctx context.Context, shellID, commandID string) error
	CloseShell(ctx context.Context, shellID string) error
}

var _ Protocol = (*wsman.Protocol)(nil)
