package auth

import (
	"net/http"

	"github.com/Azure/go-ntlmssp"
)

// NTLMAuth authenticates each connection with an NTLM handshake.
type NTLMAuth struct {
	creds Credentials
}

// NewNTLMAuth returns NTLM authentication for creds. A DOMAIN\user name is
// split into domain and user.
func NewNTLMAuth(creds Credentials) *NTLMAuth {
	return &NTLMAuth{creds: creds.Normalized()}
}

// Name returns "NTLM".
func (a *NTLMAuth) Name() string {
	return "NTLM"
}

// Transport wraps base with the go-ntlmssp negotiator. The negotiator takes
// the account from the request's Basic credentials, which are set here and
// never sent as Basic auth.
func (a *NTLMAuth) Transport(base http.RoundTripper) http.RoundTripper {
	return withBasicAuth(a.creds, ntlmssp.Negotiator{RoundTripper: base})
}
