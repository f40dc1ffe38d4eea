// Package cli implements the winrm command.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/smnsjas/go-winrm/client"
	"github.com/smnsjas/go-winrm/internal/log"
	"github.com/smnsjas/go-winrm/wsman"
)

// Remote is the part of client.Client the commands use.
type Remote interface {
	ExecuteStream(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (*client.CmdResult, error)
	Identify(ctx context.Context) (*wsman.IdentifyResponse, error)
	GetConfig(ctx context.Context) (*wsman.ServiceConfig, error)
	EnumerateShells(ctx context.Context) ([]wsman.Shell, error)
	Close(ctx context.Context) error
}

var _ Remote = (*client.Client)(nil)

// Dialer creates a Remote for host.
type Dialer func(host string, cfg client.Config, logger *slog.Logger) (Remote, error)

func dialClient(host string, cfg client.Config, logger *slog.Logger) (Remote, error) {
	return client.New(host, cfg, client.WithLogger(logger))
}

// ExitError carries a remote command's non-zero exit code.
type ExitError struct {
	Host string
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: command exited with code %d", e.Host, e.Code)
}

type app struct {
	configPath       string
	hosts            []string
	user             string
	authName         string
	useTLS           bool
	insecure         bool
	port             int
	operationTimeout time.Duration
	readTimeout      time.Duration
	logLevel         string
	logFile          string
	logFormat        string
	output           string
	parallel         int
	commandTimeout   time.Duration

	dial         Dialer
	getenv       func(string) string
	readPassword func(prompt string) (string, error)
	logWriter    io.Writer

	file      *client.File
	logger    *slog.Logger
	logCloser io.Closer

	passwordOnce sync.Once
	password     string
	passwordErr  error
}

// Option configures the root command. Used by tests.
type Option func(*app)

// WithDialer replaces client.New.
func WithDialer(d Dialer) Option {
	return func(a *app) { a.dial = d }
}

// WithEnv replaces os.Getenv.
func WithEnv(getenv func(string) string) Option {
	return func(a *app) { a.getenv = getenv }
}

// WithPasswordPrompt replaces the terminal prompt.
func WithPasswordPrompt(fn func(prompt string) (string, error)) Option {
	return func(a *app) { a.readPassword = fn }
}

// WithLogWriter sends logs to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(a *app) { a.logWriter = w }
}

// NewRootCmd builds the winrm command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	a := &app{
		dial:         dialClient,
		getenv:       os.Getenv,
		readPassword: promptPassword,
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:   "winrm",
		Short: "Run commands on Windows hosts over WinRM",
		Long: `winrm runs commands in remote cmd.exe shells through the WS-Management
protocol and queries the WinRM service on one or more hosts.

The password is read from ` + PasswordEnv + ` or prompted for.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.configPath, "config", "", "YAML config file with defaults and per-host settings")
	f.StringSliceVarP(&a.hosts, "host", "H", nil, "target host (repeatable or comma separated)")
	f.StringVarP(&a.user, "user", "u", "", `username, DOMAIN\user or user@REALM`)
	f.StringVar(&a.authName, "auth", "", "authentication: basic, ntlm or kerberos")
	f.BoolVar(&a.useTLS, "tls", false, "use HTTPS (port 5986)")
	f.BoolVar(&a.insecure, "insecure", false, "skip TLS certificate verification")
	f.IntVar(&a.port, "port", 0, "WinRM port (default 5985, or 5986 with --tls)")
	f.DurationVar(&a.operationTimeout, "operation-timeout", 0, "OperationTimeout sent with each request")
	f.DurationVar(&a.readTimeout, "read-timeout", 0, "HTTP timeout per request; should exceed --operation-timeout")
	f.StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	f.StringVar(&a.logFile, "log-file", "", "write logs to a rotating file instead of stderr")
	f.StringVar(&a.logFormat, "log-format", string(log.FormatText), "log format: text or json")
	f.StringVarP(&a.output, "output", "o", outputText, "output format: text, json, yaml")
	f.IntVar(&a.parallel, "parallel", 8, "maximum hosts contacted at once")

	root.AddCommand(
		a.newRunCmd(),
		a.newIdentifyCmd(),
		a.newConfigCmd(),
		a.newShellsCmd(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCmd()
	err := root.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	// A single host's exit code is passed through; anything else is an
	// error of the tool itself.
	if exitErr, ok := err.(*ExitError); ok {
		return exitErr.Code
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := validOutput(a.output); err != nil {
		return err
	}
	level, err := log.ParseLevel(a.logLevel)
	if err != nil {
		return err
	}

	w := a.logWriter
	if w == nil {
		w = cmd.ErrOrStderr()
	}
	if a.logFile != "" {
		rf, err := log.NewRotatingFile(a.logFile, log.DefaultMaxSize, log.DefaultMaxBackups)
		if err != nil {
			return err
		}
		a.logCloser = rf
		w = rf
	}
	a.logger = log.New(w, level, log.Format(a.logFormat))

	if a.configPath != "" {
		a.file, err = client.LoadConfigFile(a.configPath)
		if err != nil {
			return err
		}
	} else {
		a.file = &client.File{Defaults: client.DefaultConfig()}
	}
	return nil
}

// configFor merges the config file entry for host with the flags the user
// set explicitly.
func (a *app) configFor(cmd *cobra.Command, host string) (client.Config, error) {
	cfg := a.file.For(host)
	flags := cmd.Flags()

	if flags.Changed("user") {
		cfg.Username = a.user
	}
	if flags.Changed("auth") {
		at, err := client.ParseAuthType(a.authName)
		if err != nil {
			return cfg, err
		}
		cfg.AuthType = at
	}
	if flags.Changed("tls") {
		cfg.UseTLS = a.useTLS
	}
	if flags.Changed("insecure") {
		cfg.InsecureSkipVerify = a.insecure
	}
	if flags.Changed("port") {
		cfg.Port = a.port
	}
	if flags.Changed("operation-timeout") {
		cfg.OperationTimeout = client.Duration(a.operationTimeout)
	}
	if flags.Changed("read-timeout") {
		cfg.ReadTimeout = client.Duration(a.readTimeout)
	}
	if a.commandTimeout > 0 {
		cfg.CommandTimeout = client.Duration(a.commandTimeout)
	}

	if cfg.AuthType != client.AuthKerberos {
		pass, err := a.resolvePassword(cfg.Username)
		if err != nil {
			return cfg, err
		}
		cfg.Password = pass
	}
	return cfg, nil
}

// resolvePassword asks once per invocation; every host shares the answer.
func (a *app) resolvePassword(user string) (string, error) {
	a.passwordOnce.Do(func() {
		if p := a.getenv(PasswordEnv); p != "" {
			a.password = p
			return
		}
		a.password, a.passwordErr = a.readPassword(fmt.Sprintf("Password for %s: ", user))
		if a.passwordErr == nil && a.password == "" {
			a.passwordErr = fmt.Errorf("password is required (set %s)", PasswordEnv)
		}
	})
	return a.password, a.passwordErr
}

// targets returns the --host values, or every host in the config file when
// none were given.
func (a *app) targets() []string {
	if len(a.hosts) > 0 || a.file == nil {
		return a.hosts
	}
	return slices.Sorted(maps.Keys(a.file.Hosts))
}

// forEachHost dials every host and runs fn, at most --parallel at a time.
// A failing host does not stop the others; the errors are joined in host
// order.
func (a *app) forEachHost(cmd *cobra.Command, fn func(ctx context.Context, i int, host string, r Remote) error) error {
	hosts := a.targets()
	if len(hosts) == 0 {
		return errors.New("at least one --host is required")
	}

	configs := make([]client.Config, len(hosts))
	for i, host := range hosts {
		cfg, err := a.configFor(cmd, host)
		if err != nil {
			return fmt.Errorf("%s: %w", host, err)
		}
		configs[i] = cfg
	}

	ctx := cmd.Context()
	errs := make([]error, len(hosts))
	var g errgroup.Group
	if a.parallel > 0 {
		g.SetLimit(a.parallel)
	}
	for i, host := range hosts {
		g.Go(func() error {
			errs[i] = a.withRemote(ctx, host, configs[i], func(r Remote) error {
				return fn(ctx, i, host, r)
			})
			return nil
		})
	}
	_ = g.Wait()

	if len(hosts) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}

func (a *app) withRemote(ctx context.Context, host string, cfg client.Config, fn func(Remote) error) error {
	logger := a.logger.With("host", host)
	r, err := a.dial(host, cfg, logger)
	if err != nil {
		return fmt.Errorf("%s: %w", host, err)
	}
	defer func() {
		if err := r.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("failed to close client", "error", err)
		}
	}()

	if err := fn(r); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return err
		}
		return fmt.Errorf("%s: %w", host, err)
	}
	return nil
}
