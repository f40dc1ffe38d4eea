package auth

import (
	"log/slog"
	"net/http"
	"sync"
)

// BasicAuth sends the user name and password with every request. WinRM
// accepts it only for local accounts and only when AllowUnencrypted or
// HTTPS is configured on the listener.
type BasicAuth struct {
	creds  Credentials
	logger *slog.Logger
}

// NewBasicAuth returns Basic authentication for creds.
func NewBasicAuth(creds Credentials) *BasicAuth {
	return &BasicAuth{creds: creds, logger: slog.Default()}
}

// WithLogger sets the logger for the plain HTTP warning.
func (a *BasicAuth) WithLogger(logger *slog.Logger) *BasicAuth {
	if logger != nil {
		a.logger = logger
	}
	return a
}

// Name returns "Basic".
func (a *BasicAuth) Name() string {
	return "Basic"
}

// Transport wraps base. The first request over plain HTTP logs a warning.
func (a *BasicAuth) Transport(base http.RoundTripper) http.RoundTripper {
	var warnOnce sync.Once
	next := withBasicAuth(a.creds, base)
	return roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Scheme != "https" {
			warnOnce.Do(func() {
				a.logger.Warn("basic authentication over plain HTTP; credentials are not encrypted",
					"host", req.URL.Host)
			})
		}
		return next.RoundTrip(req)
	})
}
