package auth

import "context"

// SecurityProvider produces the GSS-API tokens carried in the
// "Authorization: Negotiate" header. NegotiateAuth drives it:
//
//	token, more, err := p.Step(ctx, nil)         // first request
//	token, more, err = p.Step(ctx, serverToken)  // after each 401 challenge
//
// until the server accepts a request or more is false. NegotiateAuth
// serializes its calls, so implementations need no locking of their own.
type SecurityProvider interface {
	// Step consumes the server's token, nil on the first leg, and returns
	// the token for the next request. continueNeeded reports whether the
	// provider expects another server token.
	Step(ctx context.Context, serverToken []byte) (token []byte, continueNeeded bool, err error)

	// Complete reports whether the security context is established.
	Complete() bool

	// Close releases tickets and other resources held by the provider.
	Close() error
}
