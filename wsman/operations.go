package wsman

import (
	"context"
	"encoding/base64"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"time"
)

// ShellOptions are the parameters of OpenShell. Zero values are omitted from
// the request, except the stream names which default to stdin and
// "stdout stderr".
type ShellOptions struct {
	InputStreams     string
	OutputStreams    string
	WorkingDirectory string
	Environment      map[string]string
	IdleTimeout      time.Duration

	// Codepage sets WINRS_CODEPAGE (e.g. 65001 for UTF-8) when non-zero.
	Codepage int

	// NoProfile sets WINRS_NOPROFILE=TRUE so the user profile is not loaded.
	NoProfile bool
}

// CommandState is the observed state of a command.
type CommandState struct {
	CommandID string

	// State is the CommandState URI reported by the server.
	State string

	// Done is true once the server reports the Done state.
	Done     bool
	ExitCode int

	Stdout []byte
	Stderr []byte
}

// OpenShell creates a cmd shell and returns its ShellId.
func (p *Protocol) OpenShell(ctx context.Context, opts ShellOptions) (string, error) {
	env := p.newEnvelope(ActionCreate, ResourceURICmd, 0)
	if opts.NoProfile {
		env.WithOption(OptionNoProfile, "TRUE")
	}
	if opts.Codepage != 0 {
		env.WithOption(OptionCodepage, strconv.Itoa(opts.Codepage))
	}

	shell := &Shell{
		InputStreams:     opts.InputStreams,
		OutputStreams:    opts.OutputStreams,
		WorkingDirectory: opts.WorkingDirectory,
	}
	if shell.InputStreams == "" {
		shell.InputStreams = DefaultInputStreams
	}
	if shell.OutputStreams == "" {
		shell.OutputStreams = DefaultOutputStreams
	}
	if opts.IdleTimeout > 0 {
		shell.IdleTimeOut = FormatDuration(opts.IdleTimeout)
	}
	if len(opts.Environment) > 0 {
		shell.Environment = &Environment{}
		for _, name := range slices.Sorted(maps.Keys(opts.Environment)) {
			shell.Environment.Variables = append(shell.Environment.Variables,
				Variable{Name: name, Value: opts.Environment[name]})
		}
	}
	env.Body.Shell = shell

	resp, err := p.roundTrip(ctx, env)
	if err != nil {
		return "", fmt.Errorf("open shell: %w", err)
	}

	if rc := resp.Body.ResourceCreated; rc != nil && rc.ReferenceParameters != nil && rc.ReferenceParameters.SelectorSet != nil {
		for _, s := range rc.ReferenceParameters.SelectorSet.Selectors {
			if s.Name == SelectorShellID && s.Value != "" {
				return s.Value, nil
			}
		}
	}
	if resp.Body.Shell != nil && resp.Body.Shell.ShellID != "" {
		return resp.Body.Shell.ShellID, nil
	}
	return "", fmt.Errorf("open shell: %w", ErrMissingShellID)
}

// RunCommand starts command with args in the shell and returns the
// CommandId. A timeout greater than zero overrides the OperationTimeout of
// this request only.
func (p *Protocol) RunCommand(ctx context.Context, shellID, command string, args []string, timeout time.Duration) (string, error) {
	env := p.shellEnvelope(ActionCommand, shellID, timeout).
		WithOption(OptionConsoleModeStdin, "TRUE").
		WithOption(OptionSkipCmdShell, "FALSE")
	env.Body.CommandLine = &CommandLine{
		Command:   command,
		Arguments: args,
	}

	resp, err := p.roundTrip(ctx, env)
	if err != nil {
		return "", fmt.Errorf("run command: %w", err)
	}
	if resp.Body.CommandResponse == nil || resp.Body.CommandResponse.CommandID == "" {
		return "", fmt.Errorf("run command: %w", ErrMissingCommandID)
	}
	return resp.Body.CommandResponse.CommandID, nil
}

// SendCommandInput writes input to the stdin stream of a command. When end
// is true the stream is marked closed.
func (p *Protocol) SendCommandInput(ctx context.Context, shellID, commandID string, input []byte, end bool) error {
	env := p.shellEnvelope(ActionSend, shellID, 0)
	env.Body.Send = &Send{Streams: []Stream{{
		Name:      streamStdin,
		CommandID: commandID,
		End:       end,
		Content:   base64.StdEncoding.EncodeToString(input),
	}}}

	if _, err := p.roundTrip(ctx, env); err != nil {
		return fmt.Errorf("send input: %w", err)
	}
	return nil
}

// GetCommandState performs one Receive for the command. A fault matched by
// the continuation rules is reported as a running command with no output.
// A timeout greater than zero overrides the OperationTimeout of this request.
func (p *Protocol) GetCommandState(ctx context.Context, shellID, commandID string, timeout time.Duration) (*CommandState, error) {
	env := p.shellEnvelope(ActionReceive, shellID, timeout).
		WithOption(OptionReceiveKeepAlive, "TRUE")
	env.Body.Receive = &Receive{DesiredStream: DesiredStream{
		CommandID: commandID,
		Streams:   DefaultOutputStreams,
	}}

	state := &CommandState{CommandID: commandID, State: CommandStateRunning}

	resp, err := p.roundTrip(ctx, env)
	if err != nil {
		if p.classifier.IsContinuation(err) {
			return state, nil
		}
		return nil, fmt.Errorf("receive: %w", err)
	}

	rr := resp.Body.ReceiveResponse
	if rr == nil {
		return nil, fmt.Errorf("receive: %w", ErrUnexpectedResponse)
	}

	for _, s := range rr.Streams {
		if s.Content == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(s.Content)
		if err != nil {
			return nil, fmt.Errorf("receive: %w", &SerializationError{
				Op:  "unmarshal",
				Err: fmt.Errorf("stream %s: %w", s.Name, err),
			})
		}
		switch s.Name {
		case streamStdout:
			state.Stdout = append(state.Stdout, data...)
		case streamStderr:
			state.Stderr = append(state.Stderr, data...)
		}
	}

	if cs := rr.CommandState; cs != nil {
		state.State = cs.State
		if cs.State == CommandStateDone {
			state.Done = true
			if cs.ExitCode != nil {
				state.ExitCode = *cs.ExitCode
			}
		}
	}
	return state, nil
}

// PollCommandState calls GetCommandState until the command is done or the
// deadline passes. The deadline is timeout from now, or the configured
// OperationTimeout when timeout is zero. Output from every call is
// accumulated in the returned state. There is no delay between calls since
// each Receive blocks on the server for up to OperationTimeout.
//
// Faults other than continuations and transport errors are returned
// immediately. When the deadline passes the error is a *TimeoutError.
func (p *Protocol) PollCommandState(ctx context.Context, shellID, commandID string, timeout time.Duration) (*CommandState, error) {
	return p.StreamCommandState(ctx, shellID, commandID, timeout, nil)
}

// StreamCommandState polls like PollCommandState and passes the result of
// each Receive to fn as it arrives. An error from fn stops polling and is
// returned as is. fn may be nil.
//
// The deadline is checked between Receive calls only. A Receive in flight
// when it passes is left to finish, bounded by its OperationTimeout.
func (p *Protocol) StreamCommandState(ctx context.Context, shellID, commandID string, timeout time.Duration, fn func(*CommandState) error) (*CommandState, error) {
	if timeout <= 0 {
		timeout = p.cfg.OperationTimeout
	}
	deadline := p.cfg.Clock.Now().Add(timeout)

	acc := &CommandState{CommandID: commandID, State: CommandStateRunning}
	calls := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		opTimeout := p.cfg.OperationTimeout
		if remaining := deadline.Sub(p.cfg.Clock.Now()); remaining < opTimeout {
			opTimeout = max(remaining, minOperationTimeout)
		}

		st, err := p.GetCommandState(ctx, shellID, commandID, opTimeout)
		calls++
		if err != nil {
			return nil, err
		}
		if fn != nil {
			if err := fn(st); err != nil {
				return nil, err
			}
		}

		acc.Stdout = append(acc.Stdout, st.Stdout...)
		acc.Stderr = append(acc.Stderr, st.Stderr...)
		acc.State = st.State

		if st.Done {
			acc.Done = true
			acc.ExitCode = st.ExitCode
			p.logger.Debug("command done",
				"command_id", commandID,
				"exit_code", acc.ExitCode,
				"receive_calls", calls)
			return acc, nil
		}

		if !p.cfg.Clock.Now().Before(deadline) {
			return nil, &TimeoutError{CommandID: commandID, Timeout: timeout, Calls: calls}
		}
	}
}

// SignalCommand sends a signal code (SignalTerminate, SignalCtrlC,
// SignalCtrlBreak) to a command.
func (p *Protocol) SignalCommand(ctx context.Context, shellID, commandID, code string) error {
	env := p.shellEnvelope(ActionSignal, shellID, 0)
	env.Body.Signal = &Signal{CommandID: commandID, Code: code}

	if _, err := p.roundTrip(ctx, env); err != nil {
		return fmt.Errorf("signal: %w", err)
	}
	return nil
}

// CloseCommand terminates a command and releases its server resources.
func (p *Protocol) CloseCommand(ctx context.Context, shellID, commandID string) error {
	if err := p.SignalCommand(ctx, shellID, commandID, SignalTerminate); err != nil {
		return fmt.Errorf("close command: %w", err)
	}
	return nil
}

// CloseShell deletes the shell.
func (p *Protocol) CloseShell(ctx context.Context, shellID string) error {
	env := p.shellEnvelope(ActionDelete, shellID, 0)
	if _, err := p.roundTrip(ctx, env); err != nil {
		return fmt.Errorf("close shell: %w", err)
	}
	return nil
}
