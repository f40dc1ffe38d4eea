package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"
)

const (
	// ContentTypeSOAP is the content type for SOAP 1.2 messages.
	ContentTypeSOAP = "application/soap+xml;charset=UTF-8"

	// DefaultTimeout is the default HTTP request timeout. It plays the role
	// of WinRM's read timeout and should exceed the OperationTimeout sent in
	// each envelope.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxResponseSize bounds a single response body.
	DefaultMaxResponseSize = 16 << 20

	// maxErrorBody bounds the response text kept in a StatusError.
	maxErrorBody = 3000

	soapEnvelopeNS = "http://www.w3.org/2003/05/soap-envelope"
)

var (
	// ErrUnauthorized is returned when the server responds with 401
	// Unauthorized after authentication was attempted.
	ErrUnauthorized = errors.New("transport: authentication failed (401 Unauthorized)")

	// ErrNoEndpoint is returned by Send when the transport has no endpoint.
	ErrNoEndpoint = errors.New("transport: no endpoint configured")

	// ErrResponseTooLarge is returned when a response body exceeds the
	// configured maximum.
	ErrResponseTooLarge = errors.New("transport: response too large")
)

// StatusError reports an HTTP error status that did not carry a SOAP fault.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("transport: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("transport: HTTP %d: %s", e.StatusCode, e.Body)
}

// responseBuffers holds read buffers sized for a typical WinRM envelope.
var responseBuffers = sync.Pool{
	New: func() any { return bytes.NewBuffer(make([]byte, 0, 32<<10)) },
}

// readResponse reads at most limit bytes of r into a fresh slice.
func readResponse(r io.Reader, limit int64) ([]byte, error) {
	buf := responseBuffers.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		responseBuffers.Put(buf)
	}()

	n, err := buf.ReadFrom(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if n > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrResponseTooLarge, limit)
	}
	return bytes.Clone(buf.Bytes()), nil
}

// HTTPTransport posts SOAP envelopes to a WinRM listener. It implements
// wsman.Transport through Send.
type HTTPTransport struct {
	client          *http.Client
	base            *http.Transport
	endpoint        string
	maxResponseSize int64
	logger          *slog.Logger
}

// HTTPTransportOption configures an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// NewHTTPTransport creates a transport with TLS 1.2 or newer, proxy settings
// from the environment and connection reuse for NTLM.
func NewHTTPTransport(opts ...HTTPTransportOption) *HTTPTransport {
	base := newRoundTripper()
	t := &HTTPTransport{
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: base,
		},
		base:            base,
		maxResponseSize: DefaultMaxResponseSize,
		logger:          slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func newRoundTripper() *http.Transport {
	return &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		// NTLM authenticates the connection, so every concurrent command
		// keeps its own.
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client.Timeout = d
	}
}

// WithEndpoint sets the URL that Send posts to.
func WithEndpoint(endpoint string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.endpoint = endpoint
	}
}

// WithMaxResponseSize bounds the size of a response body. Values <= 0 keep
// the default.
func WithMaxResponseSize(n int64) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if n > 0 {
			t.maxResponseSize = n
		}
	}
}

// WithLogger sets the logger used for transport warnings and request tracing.
func WithLogger(logger *slog.Logger) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithProxy configures the HTTP proxy. An empty string keeps the proxy from
// the environment, "direct" disables proxying, anything else is used as the
// proxy URL.
func WithProxy(proxy string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		rt := t.roundTripper()
		switch proxy {
		case "":
			rt.Proxy = http.ProxyFromEnvironment
		case "direct":
			rt.Proxy = nil
		default:
			u, err := url.Parse(proxy)
			if err != nil {
				t.logger.Warn("ignoring invalid proxy URL", "proxy", proxy, "error", err)
				return
			}
			rt.Proxy = http.ProxyURL(u)
		}
	}
}

// WithInsecureSkipVerify disables certificate verification. Only for test
// hosts with self-signed certificates.
func WithInsecureSkipVerify(skip bool) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if skip {
			t.logger.Warn("TLS certificate verification disabled; use only for testing")
		}
		rt := t.roundTripper()
		if rt.TLSClientConfig == nil {
			rt.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		rt.TLSClientConfig.InsecureSkipVerify = skip
	}
}

// WithTLSConfig sets a custom TLS configuration. MinVersion is raised to
// TLS 1.2 when lower.
func WithTLSConfig(cfg *tls.Config) HTTPTransportOption {
	return func(t *HTTPTransport) {
		if cfg.MinVersion < tls.VersionTLS12 {
			cfg.MinVersion = tls.VersionTLS12
		}
		t.roundTripper().TLSClientConfig = cfg
	}
}

// roundTripper returns the client's *http.Transport, installing one if the
// client has none.
func (t *HTTPTransport) roundTripper() *http.Transport {
	if rt, ok := t.client.Transport.(*http.Transport); ok {
		t.base = rt
		return rt
	}
	rt := newRoundTripper()
	t.client.Transport = rt
	t.base = rt
	return rt
}

// Client returns the underlying HTTP client. Authenticators are installed
// by wrapping its Transport.
func (t *HTTPTransport) Client() *http.Client {
	return t.client
}

// CloseIdleConnections closes idle connections of the underlying
// *http.Transport, also when an authenticator wraps it.
func (t *HTTPTransport) CloseIdleConnections() {
	t.client.CloseIdleConnections()
	if t.base != nil {
		t.base.CloseIdleConnections()
	}
}

// Send posts body to the configured endpoint.
func (t *HTTPTransport) Send(ctx context.Context, body []byte) ([]byte, error) {
	if t.endpoint == "" {
		return nil, ErrNoEndpoint
	}
	return t.Post(ctx, t.endpoint, body)
}

// Endpoint returns the URL that Send posts to.
func (t *HTTPTransport) Endpoint() string {
	return t.endpoint
}

// Post sends a SOAP request to url and returns the response body.
//
// WinRM reports SOAP faults with status 500, so a 500 response whose body is
// a SOAP envelope is returned as a normal response for the caller to parse.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("transport: build request: %w", err)
	}
	req.Header.Set("Content-Type", ContentTypeSOAP)

	start := time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := readResponse(resp.Body, t.maxResponseSize)
	if err != nil {
		return nil, fmt.Errorf("transport: read response: %w", err)
	}

	t.logger.Debug("http exchange",
		"url", url,
		"status", resp.StatusCode,
		"sent", len(body),
		"received", len(respBody),
		"elapsed", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusInternalServerError && isSOAPEnvelope(respBody):
		return respBody, nil
	case resp.StatusCode >= 400:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: preview(respBody)}
	}
	return respBody, nil
}

func preview(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}

// isSOAPEnvelope reports whether body starts like a SOAP 1.2 envelope.
func isSOAPEnvelope(body []byte) bool {
	head := body[:min(len(body), 1024)]
	return bytes.Contains(head, []byte("Envelope")) && bytes.Contains(head, []byte(soapEnvelopeNS))
}
