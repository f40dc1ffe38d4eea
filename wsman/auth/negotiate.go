package auth

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// maxNegotiateRetries bounds the number of legs a server may demand.
const maxNegotiateRetries = 5

// ErrNegotiateRejected is returned when the server answers a final token
// with another challenge.
var ErrNegotiateRejected = errors.New("negotiate authentication rejected")

// NegotiateAuth implements SPNEGO authentication using a pluggable SecurityProvider.
type NegotiateAuth struct {
	provider SecurityProvider
}

// NewNegotiateAuth creates a new Negotiate authenticator.
func NewNegotiateAuth(provider SecurityProvider) *NegotiateAuth {
	return &NegotiateAuth{
		provider: provider,
	}
}

// Name returns the scheme name.
func (a *NegotiateAuth) Name() string {
	return "Negotiate"
}

// Transport wraps the base transport with Negotiate authentication logic.
func (a *NegotiateAuth) Transport(base http.RoundTripper) http.RoundTripper {
	return &negotiateRoundTripper{
		base:     base,
		provider: a.provider,
	}
}

type negotiateRoundTripper struct {
	base     http.RoundTripper
	provider SecurityProvider

	// mu serializes provider calls; providers are not safe for concurrent use.
	mu sync.Mutex
}

func (rt *negotiateRoundTripper) step(ctx context.Context, serverToken []byte) ([]byte, bool, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.provider.Step(ctx, serverToken)
}

func (rt *negotiateRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
	}

	// The first token is sent proactively so a single-leg Kerberos
	// exchange costs one request.
	clientToken, continueNeeded, err := rt.step(req.Context(), nil)
	if err != nil {
		return nil, fmt.Errorf("negotiate step failed: %w", err)
	}

	for attempt := 0; attempt < maxNegotiateRetries; attempt++ {
		reqClone := req.Clone(req.Context())
		if req.Body != nil {
			reqClone.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			reqClone.ContentLength = int64(len(bodyBytes))
			reqClone.GetBody = func() (io.ReadCloser, error) {
				return io.NopCloser(bytes.NewReader(bodyBytes)), nil
			}
		}
		if clientToken != nil {
			reqClone.Header.Set("Authorization",
				"Negotiate "+base64.StdEncoding.EncodeToString(clientToken))
		}

		resp, err := rt.base.RoundTrip(reqClone)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return resp, nil
		}

		authHeader := resp.Header.Get("WWW-Authenticate")
		if !strings.HasPrefix(strings.ToLower(authHeader), "negotiate") {
			return resp, nil
		}
		if resp.Body != nil {
			_ = resp.Body.Close()
		}

		if clientToken != nil && !continueNeeded {
			return nil, ErrNegotiateRejected
		}

		// A bare "Negotiate" challenge carries no token.
		var serverToken []byte
		if _, encoded, ok := strings.Cut(authHeader, " "); ok && strings.TrimSpace(encoded) != "" {
			serverToken, err = base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
			if err != nil {
				return nil, fmt.Errorf("decode negotiate challenge: %w", err)
			}
		}

		clientToken, continueNeeded, err = rt.step(req.Context(), serverToken)
		if err != nil {
			return nil, fmt.Errorf("negotiate step failed: %w", err)
		}
	}

	return nil, fmt.Errorf("negotiate authentication failed after %d attempts", maxNegotiateRetries)
}
