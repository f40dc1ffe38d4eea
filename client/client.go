// Package client provides a high-level API for running commands over WinRM.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/smnsjas/go-winrm/winrs"
	"github.com/smnsjas/go-winrm/wsman"
	"github.com/smnsjas/go-winrm/wsman/auth"
	"github.com/smnsjas/go-winrm/wsman/transport"
)

// cleanupTimeout bounds the requests that release a command and its shell
// after the caller's context has ended.
const cleanupTimeout = 30 * time.Second

// ErrClosed is returned by operations on a closed Client.
var ErrClosed = errors.New("client is closed")

type options struct {
	logger     *slog.Logger
	transport  wsman.Transport
	clock      wsman.Clock
	idProvider wsman.IDProvider
}

// Option configures a Client.
type Option func(*options)

// WithLogger sets the logger for client, protocol and audit events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTransport replaces the HTTP transport and authentication. Used to
// run the client against an in-memory endpoint.
func WithTransport(tr wsman.Transport) Option {
	return func(o *options) { o.transport = tr }
}

// WithClock sets the clock for poll deadlines and event timestamps.
func WithClock(clock wsman.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDProvider sets the MessageID source.
func WithIDProvider(p wsman.IDProvider) Option {
	return func(o *options) { o.idProvider = p }
}

// Client runs commands on one WinRM endpoint. It is safe for concurrent
// use; every Execute uses its own shell.
type Client struct {
	host     string
	config   Config
	endpoint string
	logger   *slog.Logger

	httpTransport *transport.HTTPTransport
	kerberos      *auth.KerberosProvider
	protocol      *wsman.Protocol
	security      *SecurityLogger
	calls         atomic.Int64 // numbers Execute calls in audit events
	identifyCache *ttlcache.Cache[string, *wsman.IdentifyResponse]

	mu     sync.Mutex
	closed bool
}

// New creates a client for host. No request is sent until the first
// operation.
func New(host string, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if host == "" {
		return nil, errors.New("invalid config: host is required")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	c := &Client{
		host:     host,
		config:   cfg,
		endpoint: cfg.Endpoint(host),
	}
	c.logger = logger.With("component", "client", "endpoint", c.endpoint)

	tr := o.transport
	if tr == nil {
		httpTr, err := c.newHTTPTransport(logger)
		if err != nil {
			return nil, err
		}
		c.httpTransport = httpTr
		tr = httpTr
	}

	if cfg.timeoutMismatch() {
		c.logger.Warn("read timeout does not exceed operation timeout; long polls may be cut off",
			"read_timeout", time.Duration(cfg.ReadTimeout),
			"operation_timeout", time.Duration(cfg.OperationTimeout))
	}

	popts := []wsman.ProtocolOption{
		wsman.WithOperationTimeout(time.Duration(cfg.OperationTimeout)),
		wsman.WithMaxEnvelopeSize(cfg.MaxEnvelopeSize),
		wsman.WithLocale(cfg.Locale),
		wsman.WithLogger(logger),
	}
	if o.clock != nil {
		popts = append(popts, wsman.WithClock(o.clock))
	}
	if o.idProvider != nil {
		popts = append(popts, wsman.WithIDProvider(o.idProvider))
	}
	c.protocol = wsman.NewProtocol(c.endpoint, tr, popts...)

	c.security = NewSecurityLogger(logger, o.clock, cfg.Username, c.endpoint)

	ttl := time.Duration(cfg.IdentifyCacheTTL)
	if ttl == 0 {
		ttl = DefaultIdentifyCacheTTL
	}
	if ttl > 0 {
		c.identifyCache = ttlcache.New[string, *wsman.IdentifyResponse](
			ttlcache.WithTTL[string, *wsman.IdentifyResponse](ttl),
			ttlcache.WithDisableTouchOnHit[string, *wsman.IdentifyResponse](),
		)
		go c.identifyCache.Start()
	}

	return c, nil
}

func (c *Client) newHTTPTransport(logger *slog.Logger) (*transport.HTTPTransport, error) {
	cfg := c.config
	readTimeout := time.Duration(cfg.ReadTimeout)
	if readTimeout == 0 {
		readTimeout = DefaultReadTimeout
	}

	tr := transport.NewHTTPTransport(
		transport.WithLogger(logger),
		transport.WithEndpoint(c.endpoint),
		transport.WithTimeout(readTimeout),
		transport.WithProxy(cfg.Proxy),
		transport.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
	)

	creds := auth.Credentials{
		Username: cfg.Username,
		Password: cfg.Password,
		Domain:   cfg.Domain,
	}.Normalized()

	var authenticator auth.Authenticator
	switch cfg.AuthType {
	case AuthNTLM:
		authenticator = auth.NewNTLMAuth(creds)
	case AuthKerberos:
		spn := cfg.TargetSPN
		if spn == "" {
			spn = auth.SPNForEndpoint(c.host)
		}
		kcfg := auth.KerberosProviderConfig{
			TargetSPN:    spn,
			Realm:        cfg.Realm,
			Krb5ConfPath: cfg.Krb5ConfPath,
			KeytabPath:   cfg.KeytabPath,
			CCachePath:   cfg.CCachePath,
		}
		if creds.Username != "" {
			kcfg.Credentials = &creds
		}
		provider, err := auth.NewKerberosProvider(kcfg)
		if err != nil {
			return nil, fmt.Errorf("kerberos: %w", err)
		}
		c.kerberos = provider
		authenticator = auth.NewNegotiateAuth(provider)
	default:
		authenticator = auth.NewBasicAuth(creds).WithLogger(logger)
	}

	tr.Client().Transport = authenticator.Transport(tr.Client().Transport)
	c.logger.Debug("transport configured", "auth", authenticator.Name(), "config", cfg)
	return tr, nil
}

// Endpoint returns the WinRM endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Protocol returns the underlying protocol for low-level use.
func (c *Client) Protocol() *wsman.Protocol {
	return c.protocol
}

// CorrelationID returns the ID stamped on this client's audit events.
func (c *Client) CorrelationID() string {
	return c.security.CorrelationID()
}

func (c *Client) checkOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	return nil
}

// Close releases the client's idle connections, caches and tickets.
// Shells opened through Shell must be closed by the caller.
func (c *Client) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	if c.identifyCache != nil {
		c.identifyCache.Stop()
	}
	if c.httpTransport != nil {
		c.httpTransport.CloseIdleConnections()
	}
	if c.kerberos != nil {
		return c.kerberos.Close()
	}
	return nil
}

// Identify returns the service identity, cached for IdentifyCacheTTL.
func (c *Client) Identify(ctx context.Context) (*wsman.IdentifyResponse, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	if c.identifyCache != nil {
		if item := c.identifyCache.Get(c.endpoint); item != nil {
			return item.Value(), nil
		}
	}

	var resp *wsman.IdentifyResponse
	err := c.withRetry(ctx, "identify", func(ctx context.Context) error {
		var err error
		resp, err = c.protocol.Identify(ctx)
		return err
	})
	if err != nil {
		c.logFailure(err, "identify")
		return nil, err
	}

	c.security.LogConnection("identify", SubtypeConnEstablished, OutcomeSuccess, SeverityInfo, map[string]any{
		"product_vendor":  resp.ProductVendor,
		"product_version": resp.ProductVersion,
	})
	if c.identifyCache != nil {
		c.identifyCache.Set(c.endpoint, resp, ttlcache.DefaultTTL)
	}
	return resp, nil
}

// GetConfig returns the service limits.
func (c *Client) GetConfig(ctx context.Context) (*wsman.ServiceConfig, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	var cfg *wsman.ServiceConfig
	err := c.withRetry(ctx, "get_config", func(ctx context.Context) error {
		var err error
		cfg, err = c.protocol.GetConfig(ctx)
		return err
	})
	if err != nil {
		c.logFailure(err, "get_config")
		return nil, err
	}
	return cfg, nil
}

// EnumerateShells lists the shells the user owns on the server.
func (c *Client) EnumerateShells(ctx context.Context) ([]wsman.Shell, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	var shells []wsman.Shell
	err := c.withRetry(ctx, "enumerate_shells", func(ctx context.Context) error {
		var err error
		shells, err = c.protocol.EnumerateShells(ctx)
		return err
	})
	if err != nil {
		c.logFailure(err, "enumerate_shells")
		return nil, err
	}
	return shells, nil
}

// Shell opens a shell for running several commands. The caller closes it.
func (c *Client) Shell(ctx context.Context, opts ...winrs.Option) (*winrs.Shell, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}
	opts = append([]winrs.Option{
		winrs.WithLogger(c.logger),
		winrs.WithCommandTimeout(time.Duration(c.config.OperationTimeout)),
	}, opts...)

	shell, err := winrs.Open(ctx, c.protocol, opts...)
	if err != nil {
		c.logFailure(err, "open_shell")
		return nil, err
	}
	c.security.LogSession("open_shell", SubtypeSessionOpen, OutcomeSuccess, SeverityInfo, map[string]any{
		"shell_id": shell.ID(),
	})
	return shell, nil
}

// logFailure records an error as a security event; access denials and
// authentication failures are logged as such.
func (c *Client) logFailure(err error, action string) {
	var fault *wsman.Fault
	switch {
	case errors.Is(err, transport.ErrUnauthorized):
		c.security.LogAuthentication(action, SubtypeAuthFailure, OutcomeDenied, SeverityWarning, map[string]any{
			"error": err.Error(),
		})
	case errors.As(err, &fault) && fault.IsAccessDenied():
		c.security.LogAuthentication(action, SubtypeAuthFailure, OutcomeDenied, SeverityWarning, map[string]any{
			"wsman_code": fault.WSManCode,
			"reason":     fault.Reason,
		})
	case errors.As(err, new(*wsman.TransportError)):
		c.security.LogConnection(action, SubtypeConnFailed, OutcomeFailure, SeverityError, map[string]any{
			"error": err.Error(),
		})
	default:
		c.logger.Debug("operation failed", "action", action, "error", err)
	}
}

// CmdResult holds the result of a command execution.
type CmdResult struct {
	// Stdout is the standard output from the command.
	Stdout string
	// Stderr is the standard error from the command.
	Stderr string
	// ExitCode is the command's exit code.
	ExitCode int
}

// Execute runs command with args in a new shell and waits for it: open
// shell, run, poll to Done, close command, close shell.
func (c *Client) Execute(ctx context.Context, command string, args ...string) (*CmdResult, error) {
	return c.ExecuteStream(ctx, nil, nil, command, args...)
}

// ExecuteCmd runs a command line through cmd.exe /c, which makes shell
// built-ins such as dir and set available.
//
//	result, err := c.ExecuteCmd(ctx, "dir /b C:\\Windows")
func (c *Client) ExecuteCmd(ctx context.Context, commandLine string) (*CmdResult, error) {
	return c.Execute(ctx, "cmd.exe", "/c", commandLine)
}

// ExecuteStream is Execute with output copied to stdout and stderr as it
// arrives. Either writer may be nil.
func (c *Client) ExecuteStream(ctx context.Context, stdout, stderr io.Writer, command string, args ...string) (*CmdResult, error) {
	if err := c.checkOpen(); err != nil {
		return nil, err
	}

	callID := c.calls.Add(1)
	logged := sanitizeCommandForLogging(strings.Join(append([]string{command}, args...), " "))
	c.security.LogCommand("execute", SubtypeCommandExecute, OutcomeAttempt, SeverityInfo, map[string]any{
		"call_id": callID,
		"command": logged,
	})

	result, err := c.execute(ctx, callID, stdout, stderr, command, args)
	if err != nil {
		c.logFailure(err, "execute")
		c.security.LogCommand("execute", SubtypeCommandFailed, OutcomeFailure, SeverityError, map[string]any{
			"call_id": callID,
			"command": logged,
			"error":   err.Error(),
		})
		return nil, err
	}

	outcome, severity := OutcomeSuccess, SeverityInfo
	if result.ExitCode != 0 {
		outcome, severity = OutcomeFailure, SeverityWarning
	}
	c.security.LogCommand("execute", SubtypeCommandComplete, outcome, severity, map[string]any{
		"call_id":   callID,
		"exit_code": result.ExitCode,
	})
	return result, nil
}

func (c *Client) execute(ctx context.Context, callID int64, stdout, stderr io.Writer, command string, args []string) (*CmdResult, error) {
	shell, err := winrs.Open(ctx, c.protocol,
		winrs.WithLogger(c.logger),
		winrs.WithCommandTimeout(time.Duration(c.config.OperationTimeout)))
	if err != nil {
		return nil, err
	}
	shellID := shell.ID()
	c.security.LogSession("open_shell", SubtypeSessionOpen, OutcomeSuccess, SeverityInfo, map[string]any{
		"call_id":  callID,
		"shell_id": shellID,
	})
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if closeErr := shell.Close(cleanupCtx); closeErr != nil {
			c.logger.Warn("failed to close shell", "shell_id", shellID, "error", closeErr)
			return
		}
		c.security.LogSession("close_shell", SubtypeSessionClosed, OutcomeSuccess, SeverityInfo, map[string]any{
			"call_id":  callID,
			"shell_id": shellID,
		})
	}()

	proc, err := shell.Start(ctx, command, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
		if closeErr := proc.Close(cleanupCtx); closeErr != nil {
			c.logger.Warn("failed to close command", "command_id", proc.CommandID(), "error", closeErr)
		}
	}()

	// CommandTimeout bounds the Receive loop, not ctx, so a Receive in
	// flight at the deadline is allowed to finish.
	if commandTimeout := time.Duration(c.config.CommandTimeout); commandTimeout > 0 {
		err = proc.StreamFor(ctx, commandTimeout, stdout, stderr)
	} else {
		err = proc.Stream(ctx, stdout, stderr)
	}
	if err != nil {
		return nil, err
	}

	return &CmdResult{
		Stdout:   string(proc.Stdout()),
		Stderr:   string(proc.Stderr()),
		ExitCode: proc.ExitCode(),
	}, nil
}
