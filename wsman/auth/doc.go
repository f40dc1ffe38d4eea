// Package auth provides HTTP authentication for WS-Management endpoints.
//
// # Supported Authentication Methods
//
//   - Basic: HTTP Basic authentication (use only over TLS)
//   - NTLM: NT LAN Manager authentication (via github.com/Azure/go-ntlmssp)
//   - Negotiate: SPNEGO driven by a SecurityProvider; KerberosProvider uses
//     the pure Go github.com/go-krb5/krb5 library on every platform
//
// Each Authenticator wraps an http.RoundTripper, so it composes with the
// transport package:
//
//	tr := transport.NewHTTPTransport(transport.WithEndpoint(endpoint))
//	tr.Client().Transport = a.Transport(tr.Client().Transport)
//
// # Usage
//
// NTLM authentication:
//
//	a := auth.NewNTLMAuth(auth.Credentials{
//	    Username: `DOMAIN\administrator`,
//	    Password: "password",
//	})
//
// Kerberos authentication with a credential cache from kinit:
//
//	provider, err := auth.NewKerberosProvider(auth.KerberosProviderConfig{
//	    TargetSPN:  auth.SPNForEndpoint("server.domain.com"),
//	    Realm:      "DOMAIN.COM",
//	    CCachePath: "/tmp/krb5cc_1000",
//	})
//	a := auth.NewNegotiateAuth(provider)
package auth
