package client

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smnsjas/go-winrm/internal/log"
	"github.com/smnsjas/go-winrm/wsman"
)

func TestSanitizeCommandForLogging(t *testing.T) {
	tests := []struct {
		name     string
		command  string
		expected string
	}{
		{
			name:     "short safe command",
			command:  "ipconfig /all",
			expected: "ipconfig /all",
		},
		{
			name:     "long safe command",
			command:  strings.Repeat("a", 150),
			expected: strings.Repeat("a", 100) + "... [truncated]",
		},
		{
			name:     "exactly at limit",
			command:  strings.Repeat("b", 100),
			expected: strings.Repeat("b", 100),
		},
		{
			name:     "net user",
			command:  "cmd.exe /c net user svc_backup Hunter2 /add",
			expected: "[command contains sensitive data - not logged]",
		},
		{
			name:     "schtasks password switch",
			command:  "schtasks /create /tn job /ru admin /p:secret",
			expected: "[command contains sensitive data - not logged]",
		},
		{
			name:     "connection string",
			command:  "sqlcmd -Q \"select 1\" -C \"Server=db;Pwd=x\"",
			expected: "[command contains sensitive data - not logged]",
		},
		{
			name:     "cmdkey",
			command:  "cmdkey /add:server /user:admin",
			expected: "[command contains sensitive data - not logged]",
		},
		{
			name:     "mixed case keyword",
			command:  "setx DB_PASSWORD abc",
			expected: "[command contains sensitive data - not logged]",
		},
		{
			name:     "access token",
			command:  "curl.exe -H access_token:abc https://api",
			expected: "[command contains sensitive data - not logged]",
		},
		{
			name:     "empty",
			command:  "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeCommandForLogging(tt.command))
		})
	}
}

func TestSecurityEvent_String(t *testing.T) {
	ev := &SecurityEvent{
		Timestamp: "2026-01-02T03:04:05Z",
		EventType: EventCommand,
		Subtype:   SubtypeCommandExecute,
		Severity:  SeverityInfo,
		Source:    "go-winrm",
		Target:    "https://web01:5986/wsman",
		Action:    "execute",
		Outcome:   OutcomeAttempt,
	}

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(ev.String()), &decoded))
	assert.Equal(t, "execute", decoded["action"])
	assert.Equal(t, "go-winrm", decoded["source"])
	assert.NotContains(t, decoded, "user")
	assert.NotContains(t, decoded, "details")
}

func TestSecurityLogger_Severity(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	clock := wsman.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	sl := NewSecurityLogger(logger, clock, "ops", "http://web01:5985/wsman")

	sl.LogAuthentication("identify", SubtypeAuthFailure, OutcomeDenied, SeverityWarning, nil)
	sl.LogConnection("identify", SubtypeConnFailed, OutcomeFailure, SeverityError, map[string]any{"error": "refused"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first, second struct {
		Level string        `json:"level"`
		Event SecurityEvent `json:"event"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))

	assert.Equal(t, "WARN", first.Level)
	assert.Equal(t, EventAuthentication, first.Event.EventType)
	assert.Equal(t, "ops", first.Event.User)
	assert.Equal(t, "2026-03-01T12:00:00Z", first.Event.Timestamp)

	assert.Equal(t, "ERROR", second.Level)
	assert.Equal(t, EventConnection, second.Event.EventType)
	assert.Equal(t, "refused", second.Event.Details["error"])
	assert.Equal(t, first.Event.CorrelationID, second.Event.CorrelationID)
	assert.Equal(t, sl.CorrelationID(), first.Event.CorrelationID)
}

func TestSecurityLogger_NilSafe(t *testing.T) {
	var sl *SecurityLogger
	assert.NotPanics(t, func() {
		sl.LogCommand("execute", SubtypeCommandExecute, OutcomeAttempt, SeverityInfo, nil)
	})

	noLogger := NewSecurityLogger(nil, nil, "", "")
	assert.NotPanics(t, func() {
		noLogger.LogSession("open_shell", SubtypeSessionOpen, OutcomeSuccess, SeverityInfo, nil)
	})
}

func TestSecurityLogger_DetailsRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, slog.LevelInfo, log.FormatJSON)
	sl := NewSecurityLogger(logger, nil, "ops", "http://web01:5985/wsman")

	sl.LogCommand("execute", SubtypeCommandFailed, OutcomeFailure, SeverityCritical, map[string]any{
		"exit_code": 5,
		"token":     "eyJhbGciOi",
	})

	var rec struct {
		Level string `json:"level"`
		Event struct {
			Details map[string]any `json:"details"`
		} `json:"event"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "ERROR", rec.Level)
	assert.Equal(t, float64(5), rec.Event.Details["exit_code"])
	assert.Equal(t, log.Redacted, rec.Event.Details["token"])
	assert.NotContains(t, buf.String(), "eyJhbGciOi")
}
