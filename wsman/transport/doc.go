// Package transport provides HTTP/TLS transport for WSMan communication.
//
// HTTPTransport posts serialized envelopes to a WinRM endpoint and returns
// the response body. It satisfies wsman.Transport through Send. SOAP faults
// delivered with status 500 are returned as bodies; other error statuses
// become *StatusError, and 401 becomes ErrUnauthorized. Authentication is
// layered on by wrapping the http.Client's RoundTripper (see package auth).
package transport
