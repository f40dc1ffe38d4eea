package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

// Authenticator adds an authentication scheme to an HTTP transport.
type Authenticator interface {
	// Transport wraps an http.RoundTripper with authentication.
	Transport(base http.RoundTripper) http.RoundTripper

	// Name returns the authentication scheme name.
	Name() string
}

// Credentials holds a user name and password.
type Credentials struct {
	Username string
	Password string

	// Domain is the optional NTLM domain. A Username of the form
	// DOMAIN\user also sets it.
	Domain string
}

// ParseUsername splits a DOMAIN\user or user@realm string. The realm form
// is returned unchanged because both NTLM and Kerberos accept it.
func ParseUsername(s string) (domain, user string) {
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		return s[:i], s[i+1:]
	}
	return "", s
}

// Normalized returns a copy with any DOMAIN\ prefix moved into Domain.
func (c Credentials) Normalized() Credentials {
	domain, user := ParseUsername(c.Username)
	if domain != "" {
		c.Domain = domain
		c.Username = user
	}
	return c
}

// Validate checks that a user name and password are present.
func (c *Credentials) Validate() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// ValidateForKerberos checks credentials for Kerberos, where a credential
// cache or keytab may stand in for the password.
func (c *Credentials) ValidateForKerberos() error {
	if c.Username == "" {
		return errors.New("username is required")
	}
	return nil
}

// LogValue implements slog.LogValuer and never logs the password.
func (c Credentials) LogValue() slog.Value {
	pass := ""
	if c.Password != "" {
		pass = "REDACTED"
	}
	return slog.GroupValue(
		slog.String("username", c.Username),
		slog.String("domain", c.Domain),
		slog.String("password", pass),
	)
}

// Account returns DOMAIN\user, or the bare user name without a domain.
func (c Credentials) Account() string {
	if c.Domain != "" {
		return c.Domain + `\` + c.Username
	}
	return c.Username
}

// String formats the credentials without the password.
func (c Credentials) String() string {
	return c.Account() + ":********"
}

// withBasicAuth returns a round tripper that sets creds as the request's
// Basic credentials before calling next.
func withBasicAuth(creds Credentials, next http.RoundTripper) http.RoundTripper {
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		out := req.Clone(req.Context())
		out.SetBasicAuth(creds.Account(), creds.Password)
		return next.RoundTrip(out)
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }
