package winrs

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/smnsjas/go-winrm/wsman"
)

// State is the lifecycle state of a Shell.
type State int

// Shell states. A shell moves forward only: Unopened, Open, Closed.
const (
	StateUnopened State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "Unopened"
	case StateOpen:
		return "Open"
	case StateClosed:
		return "Closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// shellConfig holds the configuration for a Shell.
type shellConfig struct {
	workingDir     string
	environment    map[string]string
	idleTimeout    time.Duration
	codepage       int
	noProfile      bool
	commandTimeout time.Duration
	logger         *slog.Logger
}

// Option configures a Shell.
type Option func(*shellConfig)

// WithWorkingDirectory sets the shell's initial working directory.
func WithWorkingDirectory(dir string) Option {
	return func(c *shellConfig) { c.workingDir = dir }
}

// WithEnvironment sets environment variables for the shell.
func WithEnvironment(env map[string]string) Option {
	return func(c *shellConfig) { c.environment = maps.Clone(env) }
}

// WithIdleTimeout sets the shell idle timeout.
// If the shell is idle for this duration, the server may close it.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *shellConfig) { c.idleTimeout = d }
}

// WithCodepage sets the console codepage.
// Common values: 437 (OEM/DOS), 65001 (UTF-8).
func WithCodepage(cp int) Option {
	return func(c *shellConfig) { c.codepage = cp }
}

// WithNoProfile prevents loading the user profile on shell creation.
func WithNoProfile() Option {
	return func(c *shellConfig) { c.noProfile = true }
}

// WithCommandTimeout sets the OperationTimeout sent with Command and
// Receive requests. Zero uses the protocol default.
func WithCommandTimeout(d time.Duration) Option {
	return func(c *shellConfig) { c.commandTimeout = d }
}

// WithLogger sets the logger for shell lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *shellConfig) { c.logger = logger }
}

// Shell is a remote cmd.exe shell. It is created Unopened, becomes Open
// after Open and Closed after Close; a closed shell cannot be reopened.
type Shell struct {
	protocol Protocol
	config   shellConfig

	mu    sync.Mutex
	state State
	id    string
}

// NewShell returns an unopened shell.
func NewShell(protocol Protocol, opts ...Option) (*Shell, error) {
	if protocol == nil {
		return nil, fmt.Errorf("winrs: protocol is nil")
	}

	cfg := shellConfig{
		idleTimeout: 30 * time.Minute,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}

	return &Shell{
		protocol: protocol,
		config:   cfg,
	}, nil
}

// Open creates a new shell and opens it.
func Open(ctx context.Context, protocol Protocol, opts ...Option) (*Shell, error) {
	s, err := NewShell(protocol, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Open creates the shell on the server.
func (s *Shell) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateOpen:
		return ErrShellAlreadyOpen
	case StateClosed:
		return ErrShellClosed
	}

	id, err := s.protocol.OpenShell(ctx, wsman.ShellOptions{
		WorkingDirectory: s.config.workingDir,
		Environment:      s.config.environment,
		IdleTimeout:      s.config.idleTimeout,
		Codepage:         s.config.codepage,
		NoProfile:        s.config.noProfile,
	})
	if err != nil {
		return fmt.Errorf("winrs: create shell: %w", err)
	}

	s.id = id
	s.state = StateOpen
	s.config.logger.Debug("shell opened", "shell_id", id)
	return nil
}

// ID returns the shell ID, or "" before Open.
func (s *Shell) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// State returns the lifecycle state.
func (s *Shell) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// openID returns the shell ID if the shell is open.
func (s *Shell) openID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateUnopened:
		return "", ErrShellNotOpen
	case StateClosed:
		return "", ErrShellClosed
	}
	return s.id, nil
}

// Close deletes the shell. Closing an unopened or closed shell sends
// nothing. The shell is Closed even when the server rejects the delete.
func (s *Shell) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = StateClosed
	if prev != StateOpen {
		return nil
	}

	if err := s.protocol.CloseShell(ctx, s.id); err != nil {
		return fmt.Errorf("winrs: close shell: %w", err)
	}
	s.config.logger.Debug("shell closed", "shell_id", s.id)
	return nil
}
