package winrs

import "errors"

// Sentinel errors for WinRS operations.
var (
	// ErrShellClosed indicates the shell has already been closed.
	ErrShellClosed = errors.New("winrs: shell is closed")

	// ErrShellNotOpen indicates a command was started before Open.
	ErrShellNotOpen = errors.New("winrs: shell is not open")

	// ErrShellAlreadyOpen indicates Open was called twice.
	ErrShellAlreadyOpen = errors.New("winrs: shell is already open")

	// ErrProcessDone indicates the process has already completed.
	ErrProcessDone = errors.New("winrs: process already completed")

	// ErrProcessClosed indicates the command has been closed.
	ErrProcessClosed = errors.New("winrs: process is closed")

	// ErrInvalidExecutable indicates the executable path is invalid.
	ErrInvalidExecutable = errors.New("winrs: invalid executable")
)
