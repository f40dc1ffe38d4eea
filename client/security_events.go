package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/smnsjas/go-winrm/wsman"
)

// Event types, following the categories of NIST SP 800-92.
const (
	EventAuthentication   = "authentication"
	EventConnection       = "connection"
	EventCommand          = "command"
	EventSessionLifecycle = "session_lifecycle"
)

// Event subtypes.
const (
	SubtypeConnEstablished = "established"
	SubtypeConnFailed      = "failed"
	SubtypeAuthFailure     = "failure"
	SubtypeSessionOpen     = "open"
	SubtypeSessionClosed   = "closed"
	SubtypeCommandExecute  = "execute"
	SubtypeCommandComplete = "complete"
	SubtypeCommandFailed   = "failed"
)

// Event outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
	OutcomeAttempt = "attempt"
)

// Event severities.
const (
	SeverityInfo     = "INFO"
	SeverityWarning  = "WARNING"
	SeverityError    = "ERROR"
	SeverityCritical = "CRITICAL"
)

// severityLevels maps event severities to slog levels. Unknown severities
// log at Info.
var severityLevels = map[string]slog.Level{
	SeverityWarning:  slog.LevelWarn,
	SeverityError:    slog.LevelError,
	SeverityCritical: slog.LevelError,
}

// auditSource names this library in the Source field of every event.
const auditSource = "go-winrm"

// SecurityEvent is one audit record.
type SecurityEvent struct {
	Timestamp string `json:"timestamp"` // RFC 3339, UTC
	EventType string `json:"event_type"`
	Subtype   string `json:"subtype"`
	Severity  string `json:"severity"`

	User          string `json:"user,omitempty"`
	Source        string `json:"source"`
	Target        string `json:"target"` // endpoint URL
	CorrelationID string `json:"correlation_id"`

	Action  string         `json:"action"`
	Outcome string         `json:"outcome"`
	Details map[string]any `json:"details,omitempty"`
}

// String returns the event as JSON.
func (e *SecurityEvent) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// LogValue renders the event as a group so handlers, including the
// redacting handler, see every detail as its own attribute.
func (e *SecurityEvent) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.String("timestamp", e.Timestamp),
		slog.String("event_type", e.EventType),
		slog.String("subtype", e.Subtype),
		slog.String("severity", e.Severity),
	}
	if e.User != "" {
		attrs = append(attrs, slog.String("user", e.User))
	}
	attrs = append(attrs,
		slog.String("source", e.Source),
		slog.String("target", e.Target),
		slog.String("correlation_id", e.CorrelationID),
		slog.String("action", e.Action),
		slog.String("outcome", e.Outcome),
	)
	if len(e.Details) > 0 {
		keys := slices.Sorted(maps.Keys(e.Details))
		details := make([]any, 0, len(keys))
		for _, k := range keys {
			details = append(details, slog.Any(k, e.Details[k]))
		}
		attrs = append(attrs, slog.Group("details", details...))
	}
	return slog.GroupValue(attrs...)
}

// SecurityLogger writes audit events for one client. All events carry the
// same correlation ID. A nil *SecurityLogger discards events.
type SecurityLogger struct {
	logger        *slog.Logger
	clock         wsman.Clock
	user          string
	target        string
	correlationID string
}

// NewSecurityLogger returns a logger whose events are stamped with user,
// target and a fresh correlation ID. A nil clock means the wall clock.
func NewSecurityLogger(logger *slog.Logger, clock wsman.Clock, user, target string) *SecurityLogger {
	return &SecurityLogger{
		logger:        logger,
		clock:         clock,
		user:          user,
		target:        target,
		correlationID: uuid.NewString(),
	}
}

// CorrelationID returns the ID stamped on every event.
func (l *SecurityLogger) CorrelationID() string {
	return l.correlationID
}

func (l *SecurityLogger) now() time.Time {
	if l.clock == nil {
		return time.Now()
	}
	return l.clock.Now()
}

// LogEvent builds an event and logs it at the level matching severity.
func (l *SecurityLogger) LogEvent(eventType, action, subtype, severity, outcome string, details map[string]any) {
	if l == nil || l.logger == nil {
		return
	}

	event := &SecurityEvent{
		Timestamp:     l.now().UTC().Format(time.RFC3339),
		EventType:     eventType,
		Subtype:       subtype,
		Severity:      severity,
		User:          l.user,
		Source:        auditSource,
		Target:        l.target,
		CorrelationID: l.correlationID,
		Action:        action,
		Outcome:       outcome,
		Details:       details,
	}

	level, ok := severityLevels[severity]
	if !ok {
		level = slog.LevelInfo
	}
	l.logger.Log(context.Background(), level, "SecurityEvent", slog.Any("event", event))
}

// LogConnection logs connection events.
func (l *SecurityLogger) LogConnection(action, subtype, outcome, severity string, details map[string]any) {
	l.LogEvent(EventConnection, action, subtype, severity, outcome, details)
}

// LogSession logs shell lifecycle events.
func (l *SecurityLogger) LogSession(action, subtype, outcome, severity string, details map[string]any) {
	l.LogEvent(EventSessionLifecycle, action, subtype, severity, outcome, details)
}

// LogCommand logs command execution events.
func (l *SecurityLogger) LogCommand(action, subtype, outcome, severity string, details map[string]any) {
	l.LogEvent(EventCommand, action, subtype, severity, outcome, details)
}

// LogAuthentication logs authentication events.
func (l *SecurityLogger) LogAuthentication(action, subtype, outcome, severity string, details map[string]any) {
	l.LogEvent(EventAuthentication, action, subtype, severity, outcome, details)
}

const maxLoggedCommandLen = 100

// sensitiveCommandMarkers flag command lines that likely carry secrets.
var sensitiveCommandMarkers = []string{
	"password",
	"passwd",
	"/p:",
	"pwd=",
	"credential",
	"secret",
	"apikey",
	"api_key",
	"access_token",
	"net user",
	"cmdkey",
}

// sanitizeCommandForLogging truncates long command lines and hides ones
// that look like they carry credentials.
func sanitizeCommandForLogging(command string) string {
	lower := strings.ToLower(command)
	for _, marker := range sensitiveCommandMarkers {
		if strings.Contains(lower, marker) {
			return "[command contains sensitive data - not logged]"
		}
	}
	if len(command) > maxLoggedCommandLen {
		return command[:maxLoggedCommandLen] + "... [truncated]"
	}
	return command
}
