package winrs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
)

// Process represents a command running in a WinRS shell.
type Process struct {
	shell     *Shell
	shellID   string
	commandID string

	mu       sync.Mutex
	state    string
	stdout   []byte
	stderr   []byte
	exitCode int
	done     bool
	closed   bool
}

// Run executes a command, waits for it to finish and releases it.
func (s *Shell) Run(ctx context.Context, executable string, args ...string) (*Process, error) {
	proc, err := s.Start(ctx, executable, args...)
	if err != nil {
		return nil, err
	}

	waitErr := proc.Wait(ctx)
	closeErr := proc.Close(ctx)
	if waitErr != nil {
		return nil, waitErr
	}
	if closeErr != nil {
		return nil, closeErr
	}
	return proc, nil
}

// Start executes a command without waiting for completion.
// Use Wait() to block until the process finishes.
func (s *Shell) Start(ctx context.Context, executable string, args ...string) (*Process, error) {
	if executable == "" {
		return nil, ErrInvalidExecutable
	}
	shellID, err := s.openID()
	if err != nil {
		return nil, err
	}

	commandID, err := s.protocol.RunCommand(ctx, shellID, executable, args, s.config.commandTimeout)
	if err != nil {
		return nil, fmt.Errorf("winrs: start command: %w", err)
	}
	s.config.logger.Debug("command started",
		"shell_id", shellID,
		"command_id", commandID,
		"executable", executable)

	return &Process{
		shell:     s,
		shellID:   shellID,
		commandID: commandID,
		state:     wsman.CommandStateRunning,
	}, nil
}

// Wait blocks until the process completes or ctx is done.
func (p *Process) Wait(ctx context.Context) error {
	return p.Stream(ctx, nil, nil)
}

// Stream waits like Wait and copies output to stdout and stderr as it
// arrives. Either writer may be nil. Output is also kept for Stdout and
// Stderr.
func (p *Process) Stream(ctx context.Context, stdout, stderr io.Writer) error {
	if err := p.usable(false); err != nil {
		if err == ErrProcessDone {
			return nil
		}
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		st, err := p.shell.protocol.GetCommandState(ctx, p.shellID, p.commandID, p.shell.config.commandTimeout)
		if err != nil {
			return fmt.Errorf("winrs: receive output: %w", err)
		}
		if err := p.apply(st, stdout, stderr); err != nil {
			return err
		}
		if st.Done {
			return nil
		}
	}
}

// Poll waits at most timeout for the process to complete. It returns an
// error matching wsman.ErrTimeout if the process is still running.
func (p *Process) Poll(ctx context.Context, timeout time.Duration) error {
	return p.StreamFor(ctx, timeout, nil, nil)
}

// StreamFor is Stream bounded by timeout. The deadline is checked between
// Receive calls, so a Receive in flight is never cancelled by it. When the
// deadline passes the error wraps a *wsman.TimeoutError and output received
// so far is kept.
func (p *Process) StreamFor(ctx context.Context, timeout time.Duration, stdout, stderr io.Writer) error {
	if err := p.usable(false); err != nil {
		if err == ErrProcessDone {
			return nil
		}
		return err
	}
	_, err := p.shell.protocol.StreamCommandState(ctx, p.shellID, p.commandID, timeout,
		func(st *wsman.CommandState) error {
			return p.apply(st, stdout, stderr)
		})
	if err != nil {
		return fmt.Errorf("winrs: poll: %w", err)
	}
	return nil
}

func (p *Process) apply(st *wsman.CommandState, stdout, stderr io.Writer) error {
	p.mu.Lock()
	p.stdout = append(p.stdout, st.Stdout...)
	p.stderr = append(p.stderr, st.Stderr...)
	p.state = st.State
	if st.Done {
		p.done = true
		p.exitCode = st.ExitCode
	}
	p.mu.Unlock()

	if stdout != nil && len(st.Stdout) > 0 {
		if _, err := stdout.Write(st.Stdout); err != nil {
			return fmt.Errorf("winrs: write stdout: %w", err)
		}
	}
	if stderr != nil && len(st.Stderr) > 0 {
		if _, err := stderr.Write(st.Stderr); err != nil {
			return fmt.Errorf("winrs: write stderr: %w", err)
		}
	}
	return nil
}

// usable reports ErrProcessClosed, or ErrProcessDone when the process has
// finished and allowDone is false.
func (p *Process) usable(allowDone bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrProcessClosed
	}
	if p.done && !allowDone {
		return ErrProcessDone
	}
	return nil
}

// Send writes data to the process's stdin. Set end on the last chunk.
func (p *Process) Send(ctx context.Context, data []byte, end bool) error {
	if err := p.usable(false); err != nil {
		return err
	}
	if err := p.shell.protocol.SendCommandInput(ctx, p.shellID, p.commandID, data, end); err != nil {
		return fmt.Errorf("winrs: send input: %w", err)
	}
	return nil
}

// Signal sends a signal to the process.
// Use wsman.SignalTerminate, wsman.SignalCtrlC, or wsman.SignalCtrlBreak.
func (p *Process) Signal(ctx context.Context, code string) error {
	if err := p.usable(true); err != nil {
		return err
	}
	if err := p.shell.protocol.SignalCommand(ctx, p.shellID, p.commandID, code); err != nil {
		return fmt.Errorf("winrs: signal: %w", err)
	}
	return nil
}

// Close terminates the command on the server. Closing twice is a no-op.
func (p *Process) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	if err := p.shell.protocol.CloseCommand(ctx, p.shellID, p.commandID); err != nil {
		return fmt.Errorf("winrs: close command: %w", err)
	}
	return nil
}

// CommandID returns the command ID.
func (p *Process) CommandID() string {
	return p.commandID
}

// State returns the last CommandState URI observed.
func (p *Process) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done returns true if the process has completed.
func (p *Process) Done() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Stdout returns a copy of the captured standard output.
func (p *Process) Stdout() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.stdout)
}

// Stderr returns a copy of the captured standard error.
func (p *Process) Stderr() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bytes.Clone(p.stderr)
}

// ExitCode returns the process exit code once Done.
func (p *Process) ExitCode() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitCode
}
