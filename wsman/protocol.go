package wsman

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Transport delivers a serialized envelope and returns the raw response.
// Implementations must return SOAP fault bodies (HTTP 500) as responses, not
// errors, so that the fault can be parsed.
type Transport interface {
	Send(ctx context.Context, body []byte) ([]byte, error)
}

// Default configuration values.
const (
	DefaultOperationTimeout = 20 * time.Second

	// minOperationTimeout is the shortest OperationTimeout sent while polling.
	minOperationTimeout = time.Second
)

// Config holds the settings shared by every envelope a Protocol builds.
type Config struct {
	// OperationTimeout is sent as the OperationTimeout header and is the
	// default aggregate deadline of PollCommandState.
	OperationTimeout time.Duration

	// MaxEnvelopeSize bounds the size of response envelopes, in bytes.
	MaxEnvelopeSize int

	// Locale is sent as both Locale and DataLocale.
	Locale string

	IDProvider        IDProvider
	Clock             Clock
	ContinuationRules []ContinuationRule
	Logger            *slog.Logger
}

// DefaultConfig returns the configuration used when no options are given.
func DefaultConfig() Config {
	return Config{
		OperationTimeout: DefaultOperationTimeout,
		MaxEnvelopeSize:  DefaultMaxEnvelopeSize,
		Locale:           DefaultLocale,
		IDProvider:       UUIDProvider{},
		Clock:            realClock{},
	}
}

// ProtocolOption configures a Protocol.
type ProtocolOption func(*Config)

// WithOperationTimeout sets the default OperationTimeout.
func WithOperationTimeout(d time.Duration) ProtocolOption {
	return func(c *Config) {
		if d > 0 {
			c.OperationTimeout = d
		}
	}
}

// WithMaxEnvelopeSize sets the MaxEnvelopeSize header value.
func WithMaxEnvelopeSize(n int) ProtocolOption {
	return func(c *Config) {
		if n > 0 {
			c.MaxEnvelopeSize = n
		}
	}
}

// WithLocale sets the Locale and DataLocale language tag.
func WithLocale(locale string) ProtocolOption {
	return func(c *Config) {
		if locale != "" {
			c.Locale = locale
		}
	}
}

// WithIDProvider sets the message identifier source.
func WithIDProvider(p IDProvider) ProtocolOption {
	return func(c *Config) {
		if p != nil {
			c.IDProvider = p
		}
	}
}

// WithClock sets the clock used for poll deadlines.
func WithClock(clock Clock) ProtocolOption {
	return func(c *Config) {
		if clock != nil {
			c.Clock = clock
		}
	}
}

// WithContinuationRules replaces the faults treated as "still running".
func WithContinuationRules(rules []ContinuationRule) ProtocolOption {
	return func(c *Config) {
		c.ContinuationRules = rules
	}
}

// WithLogger sets the logger. Envelope traffic is logged at debug level.
func WithLogger(logger *slog.Logger) ProtocolOption {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Protocol implements the WinRM remote shell operations on top of a
// Transport. It holds no per-shell state; a Protocol may be shared by
// concurrent callers.
type Protocol struct {
	endpoint   string
	transport  Transport
	cfg        Config
	classifier *Classifier
	logger     *slog.Logger
}

// NewProtocol creates a Protocol that sends envelopes addressed to endpoint
// through tr.
func NewProtocol(endpoint string, tr Transport, opts ...ProtocolOption) *Protocol {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Protocol{
		endpoint:   endpoint,
		transport:  tr,
		cfg:        cfg,
		classifier: NewClassifier(cfg.ContinuationRules),
		logger:     logger.With("component", "wsman", "endpoint", endpoint),
	}
}

// Endpoint returns the endpoint URL envelopes are addressed to.
func (p *Protocol) Endpoint() string {
	return p.endpoint
}

// Config returns a copy of the protocol configuration.
func (p *Protocol) Config() Config {
	return p.cfg
}

// Classifier returns the fault classifier used by GetCommandState.
func (p *Protocol) Classifier() *Classifier {
	return p.classifier
}

// newEnvelope builds an envelope with the common addressing and management
// headers. A timeout of zero uses the configured OperationTimeout.
func (p *Protocol) newEnvelope(action, resourceURI string, timeout time.Duration) *Envelope {
	if timeout <= 0 {
		timeout = p.cfg.OperationTimeout
	}
	return NewEnvelope().
		WithTo(p.endpoint).
		WithReplyTo(AddressAnonymous).
		WithMaxEnvelopeSize(p.cfg.MaxEnvelopeSize).
		WithMessageID(p.cfg.IDProvider.NewID()).
		WithLocale(p.cfg.Locale).
		WithDataLocale(p.cfg.Locale).
		WithOperationTimeout(FormatDuration(timeout)).
		WithResourceURI(resourceURI).
		WithAction(action)
}

// shellEnvelope builds an envelope addressed to an existing shell.
func (p *Protocol) shellEnvelope(action, shellID string, timeout time.Duration) *Envelope {
	return p.newEnvelope(action, ResourceURICmd, timeout).WithSelector(SelectorShellID, shellID)
}

// roundTrip serializes env, sends it and parses the response. A SOAP fault
// is returned as the *Fault error together with the parsed envelope.
func (p *Protocol) roundTrip(ctx context.Context, env *Envelope) (*Envelope, error) {
	action := env.Header.ActionURI()
	if action == "" && env.Body != nil && env.Body.Identify != nil {
		action = ActionIdentify
	}
	messageID := env.Header.MessageID

	body, err := Marshal(env)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("sending envelope",
		"action", action,
		"message_id", messageID,
		"bytes", len(body))

	respBody, err := p.transport.Send(ctx, body)
	if err != nil {
		p.logger.Debug("transport failed", "action", action, "error", err)
		return nil, &TransportError{Action: action, Err: err}
	}

	resp, err := Unmarshal(respBody)
	if err != nil {
		var fault *Fault
		if errors.As(err, &fault) {
			p.logger.Debug("received fault",
				"action", action,
				"message_id", messageID,
				"subcode", fault.Subcode,
				"wsman_code", fault.WSManCode)
		}
		return resp, err
	}
	if resp.Body == nil {
		resp.Body = &Body{}
	}

	if messageID != "" && resp.Header != nil && resp.Header.RelatesTo != "" &&
		resp.Header.RelatesTo != messageID {
		return nil, fmt.Errorf("%w: sent %s, got %s", ErrMessageMismatch, messageID, resp.Header.RelatesTo)
	}

	p.logger.Debug("received envelope",
		"action", action,
		"message_id", messageID,
		"bytes", len(respBody))

	return resp, nil
}
