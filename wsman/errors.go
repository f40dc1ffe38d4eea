package wsman

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors.
var (
	// ErrUnknownNamespace indicates a namespace URI with no registered prefix.
	ErrUnknownNamespace = errors.New("wsman: unknown namespace")

	// ErrTimeout indicates PollCommandState exhausted its deadline.
	ErrTimeout = errors.New("wsman: operation timed out")

	// ErrMessageMismatch indicates a response whose RelatesTo does not match
	// the MessageID of the request.
	ErrMessageMismatch = errors.New("wsman: response does not relate to request")

	// ErrMissingShellID indicates a Create response without a shell identifier.
	ErrMissingShellID = errors.New("wsman: create response has no shell id")

	// ErrMissingCommandID indicates a Command response without a command identifier.
	ErrMissingCommandID = errors.New("wsman: command response has no command id")

	// ErrUnexpectedResponse indicates a response that lacks the expected body payload.
	ErrUnexpectedResponse = errors.New("wsman: unexpected response body")
)

// Fault represents a WSMan SOAP fault.
type Fault struct {
	// Code is the SOAP fault code (e.g., "s:Sender", "s:Receiver").
	Code string

	// Subcode is the WSMan-specific subcode (e.g., "w:InvalidSelectors").
	Subcode string

	// Reason is the human-readable fault reason.
	Reason string

	// WSManCode is the numeric WSMan error code.
	WSManCode uint32

	// Machine is the machine that generated the fault.
	Machine string

	// Message is the WSMan fault message.
	Message string
}

// Error implements the error interface.
func (f *Fault) Error() string {
	var parts []string
	if f.Code != "" {
		parts = append(parts, f.Code)
	}
	if f.Subcode != "" {
		parts = append(parts, f.Subcode)
	}
	if f.Reason != "" {
		parts = append(parts, f.Reason)
	}
	if f.WSManCode != 0 {
		parts = append(parts, fmt.Sprintf("code=%d", f.WSManCode))
	}
	return "wsman fault: " + strings.Join(parts, ": ")
}

// SubcodeLocal returns the subcode without its namespace prefix.
func (f *Fault) SubcodeLocal() string {
	return localName(f.Subcode)
}

// IsAccessDenied returns true if the fault indicates access was denied.
func (f *Fault) IsAccessDenied() bool {
	if f.SubcodeLocal() == "AccessDenied" {
		return true
	}
	// Windows ERROR_ACCESS_DENIED
	return f.WSManCode == 5
}

// IsShellNotFound returns true if the fault indicates the shell was not found.
func (f *Fault) IsShellNotFound() bool {
	return f.SubcodeLocal() == "InvalidSelectors" ||
		strings.Contains(f.Reason, "shell was not found")
}

// IsTimeout returns true if the fault indicates a timeout.
func (f *Fault) IsTimeout() bool {
	return f.SubcodeLocal() == "TimedOut" ||
		strings.Contains(f.Reason, "timed out")
}

// IsFault returns true if the error is a WSMan Fault.
func IsFault(err error) bool {
	var f *Fault
	return errors.As(err, &f)
}

func localName(qname string) string {
	if i := strings.LastIndexByte(qname, ':'); i >= 0 {
		return qname[i+1:]
	}
	return qname
}

// toFault converts the wire fault to its error form.
func (sf *SOAPFault) toFault() *Fault {
	f := &Fault{
		Code:   strings.TrimSpace(sf.Code.Value),
		Reason: strings.TrimSpace(sf.Reason.Text.Value),
	}
	if sf.Code.Subcode != nil {
		f.Subcode = strings.TrimSpace(sf.Code.Subcode.Value)
	}
	if sf.Detail != nil && sf.Detail.WSManFault != nil {
		wf := sf.Detail.WSManFault
		if code, err := strconv.ParseUint(strings.TrimSpace(wf.Code), 10, 32); err == nil {
			f.WSManCode = uint32(code)
		}
		f.Machine = wf.Machine
		f.Message = strings.TrimSpace(wf.Message)
	}
	return f
}

// SerializationError reports a failure to write or parse an envelope.
type SerializationError struct {
	Op  string // "marshal" or "unmarshal"
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("wsman: %s envelope: %v", e.Op, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// TransportError wraps a failure of the underlying transport.
type TransportError struct {
	Action string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("wsman: transport (%s): %v", e.Action, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// TimeoutError is returned when PollCommandState reaches its deadline before
// the command is done.
type TimeoutError struct {
	CommandID string
	Timeout   time.Duration
	Calls     int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("wsman: command %s not done after %s (%d receive calls)",
		e.CommandID, e.Timeout, e.Calls)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }
