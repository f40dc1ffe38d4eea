package client

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/smnsjas/go-winrm/wsman"
)

// AuthType specifies the authentication mechanism.
type AuthType int

const (
	// AuthBasic uses HTTP Basic authentication.
	AuthBasic AuthType = iota
	// AuthNTLM uses NTLM authentication.
	AuthNTLM
	// AuthKerberos uses SPNEGO with a Kerberos ticket.
	AuthKerberos
)

// String returns the lower-case name used in config files and flags.
func (a AuthType) String() string {
	switch a {
	case AuthBasic:
		return "basic"
	case AuthNTLM:
		return "ntlm"
	case AuthKerberos:
		return "kerberos"
	default:
		return "AuthType(" + strconv.Itoa(int(a)) + ")"
	}
}

// ParseAuthType parses "basic", "ntlm", "kerberos" or "negotiate".
func ParseAuthType(s string) (AuthType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic":
		return AuthBasic, nil
	case "ntlm":
		return AuthNTLM, nil
	case "kerberos", "negotiate":
		return AuthKerberos, nil
	}
	return 0, fmt.Errorf("unknown auth type %q", s)
}

// MarshalYAML implements yaml.Marshaler.
func (a AuthType) MarshalYAML() (any, error) {
	return a.String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *AuthType) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseAuthType(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Duration is a time.Duration written as "30s" in YAML.
type Duration time.Duration

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Config holds configuration for a WinRM client.
type Config struct {
	// Port is the WinRM port (default: 5985 for HTTP, 5986 for HTTPS).
	// Zero selects the default for UseTLS.
	Port int `yaml:"port,omitempty"`

	// Path is the URL path of the service (default: /wsman).
	Path string `yaml:"path,omitempty"`

	// UseTLS enables HTTPS transport.
	UseTLS bool `yaml:"tls,omitempty"`

	// InsecureSkipVerify skips TLS certificate verification.
	// WARNING: Only use for testing.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify,omitempty"`

	// Proxy is passed to transport.WithProxy: "" uses the environment and
	// "direct" disables proxying.
	Proxy string `yaml:"proxy,omitempty"`

	// ReadTimeout bounds each HTTP exchange. It should exceed
	// OperationTimeout, or long polls are cut off by the client.
	ReadTimeout Duration `yaml:"read_timeout,omitempty"`

	// OperationTimeout is sent to the server with every request.
	OperationTimeout Duration `yaml:"operation_timeout,omitempty"`

	// CommandTimeout bounds how long Execute waits for a command. Zero
	// waits until the command completes or the context is done.
	CommandTimeout Duration `yaml:"command_timeout,omitempty"`

	// MaxEnvelopeSize is the MaxEnvelopeSize header value in bytes.
	MaxEnvelopeSize int `yaml:"max_envelope_size,omitempty"`

	// Locale is sent as Locale and DataLocale.
	Locale string `yaml:"locale,omitempty"`

	// AuthType specifies the authentication type.
	AuthType AuthType `yaml:"auth,omitempty"`

	// Username for authentication. DOMAIN\user sets Domain.
	Username string `yaml:"username,omitempty"`

	// Password for authentication. Not read from config files.
	Password string `yaml:"-"`

	// Domain for NTLM authentication.
	Domain string `yaml:"domain,omitempty"`

	// Kerberos settings, used with AuthKerberos.
	Realm        string `yaml:"realm,omitempty"`
	Krb5ConfPath string `yaml:"krb5_conf,omitempty"`
	KeytabPath   string `yaml:"keytab,omitempty"`
	CCachePath   string `yaml:"ccache,omitempty"`
	TargetSPN    string `yaml:"spn,omitempty"`

	// Retry controls retries of read-only requests (Identify, GetConfig,
	// EnumerateShells). Nil disables retries.
	Retry *RetryPolicy `yaml:"retry,omitempty"`

	// IdentifyCacheTTL is how long Identify responses are reused.
	// Zero uses the default; a negative value disables the cache.
	IdentifyCacheTTL Duration `yaml:"identify_cache_ttl,omitempty"`
}

// Default ports and timeouts.
const (
	DefaultHTTPPort         = 5985
	DefaultHTTPSPort        = 5986
	DefaultPath             = "/wsman"
	DefaultReadTimeout      = 30 * time.Second
	DefaultIdentifyCacheTTL = 10 * time.Minute
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Path:             DefaultPath,
		ReadTimeout:      Duration(DefaultReadTimeout),
		OperationTimeout: Duration(wsman.DefaultOperationTimeout),
		MaxEnvelopeSize:  wsman.DefaultMaxEnvelopeSize,
		Locale:           wsman.DefaultLocale,
		AuthType:         AuthBasic,
		IdentifyCacheTTL: Duration(DefaultIdentifyCacheTTL),
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.Username == "" && !(c.AuthType == AuthKerberos && c.CCachePath != "") {
		return errors.New("username is required")
	}
	if c.Password == "" && c.AuthType != AuthKerberos {
		return errors.New("password is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.ReadTimeout < 0 || c.OperationTimeout < 0 || c.CommandTimeout < 0 {
		return errors.New("timeouts must not be negative")
	}
	if c.MaxEnvelopeSize < 0 {
		return fmt.Errorf("invalid max envelope size %d", c.MaxEnvelopeSize)
	}
	return nil
}

// Endpoint builds the service URL for host.
func (c *Config) Endpoint(host string) string {
	scheme := "http"
	port := c.Port
	if c.UseTLS {
		scheme = "https"
		if port == 0 {
			port = DefaultHTTPSPort
		}
	} else if port == 0 {
		port = DefaultHTTPPort
	}
	path := c.Path
	if path == "" {
		path = DefaultPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return scheme + "://" + net.JoinHostPort(host, strconv.Itoa(port)) + path
}

// timeoutMismatch reports whether ReadTimeout would cut off a long poll.
func (c *Config) timeoutMismatch() bool {
	return c.ReadTimeout > 0 && c.OperationTimeout > 0 && c.ReadTimeout <= c.OperationTimeout
}

// LogValue implements slog.LogValuer and never logs the password.
func (c Config) LogValue() slog.Value {
	pass := ""
	if c.Password != "" {
		pass = "REDACTED"
	}
	return slog.GroupValue(
		slog.Int("port", c.Port),
		slog.Bool("tls", c.UseTLS),
		slog.Bool("insecure_skip_verify", c.InsecureSkipVerify),
		slog.String("auth", c.AuthType.String()),
		slog.String("username", c.Username),
		slog.String("domain", c.Domain),
		slog.String("password", pass),
		slog.Duration("read_timeout", time.Duration(c.ReadTimeout)),
		slog.Duration("operation_timeout", time.Duration(c.OperationTimeout)),
	)
}

// File is the YAML configuration file: defaults plus per-host overrides.
//
//	defaults:
//	  auth: ntlm
//	  username: CORP\ops
//	  operation_timeout: 20s
//	hosts:
//	  web01.corp.example.com:
//	    tls: true
type File struct {
	Defaults Config            `yaml:"defaults"`
	Hosts    map[string]Config `yaml:"hosts,omitempty"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig parses YAML configuration. Fields not set in the file keep
// the DefaultConfig values.
func ParseConfig(data []byte) (*File, error) {
	f := &File{Defaults: DefaultConfig()}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return f, nil
}

// For returns the configuration for host: the defaults overlaid with the
// host's entry. Only non-zero host fields override.
func (f *File) For(host string) Config {
	cfg := f.Defaults
	h, ok := f.Hosts[host]
	if !ok {
		return cfg
	}
	if h.Port != 0 {
		cfg.Port = h.Port
	}
	if h.Path != "" {
		cfg.Path = h.Path
	}
	if h.UseTLS {
		cfg.UseTLS = true
	}
	if h.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true
	}
	if h.Proxy != "" {
		cfg.Proxy = h.Proxy
	}
	if h.ReadTimeout != 0 {
		cfg.ReadTimeout = h.ReadTimeout
	}
	if h.OperationTimeout != 0 {
		cfg.OperationTimeout = h.OperationTimeout
	}
	if h.CommandTimeout != 0 {
		cfg.CommandTimeout = h.CommandTimeout
	}
	if h.MaxEnvelopeSize != 0 {
		cfg.MaxEnvelopeSize = h.MaxEnvelopeSize
	}
	if h.Locale != "" {
		cfg.Locale = h.Locale
	}
	if h.AuthType != AuthBasic {
		cfg.AuthType = h.AuthType
	}
	if h.Username != "" {
		cfg.Username = h.Username
	}
	if h.Domain != "" {
		cfg.Domain = h.Domain
	}
	if h.Realm != "" {
		cfg.Realm = h.Realm
	}
	if h.Krb5ConfPath != "" {
		cfg.Krb5ConfPath = h.Krb5ConfPath
	}
	if h.KeytabPath != "" {
		cfg.KeytabPath = h.KeytabPath
	}
	if h.CCachePath != "" {
		cfg.CCachePath = h.CCachePath
	}
	if h.TargetSPN != "" {
		cfg.TargetSPN = h.TargetSPN
	}
	if h.Retry != nil {
		cfg.Retry = h.Retry
	}
	if h.IdentifyCacheTTL != 0 {
		cfg.IdentifyCacheTTL = h.IdentifyCacheTTL
	}
	return cfg
}
