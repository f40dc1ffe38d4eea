package wsman

import (
	"errors"
	"strings"
)

// ContinuationRule matches a fault that a Receive can report while a command
// is still running. Every non-empty criterion must match.
type ContinuationRule struct {
	// Subcode is compared with the fault subcode without its prefix,
	// e.g. "TimedOut" matches "w:TimedOut".
	Subcode string

	// WSManCode matches the numeric WSManFault code.
	WSManCode uint32

	// ReasonContains matches a substring of the fault reason.
	ReasonContains string
}

// WSManCodeOperationTimeout is the WSManFault code reported when a Receive
// reaches its OperationTimeout without output.
const WSManCodeOperationTimeout uint32 = 2150858793

// DefaultContinuationRules are the faults treated as "still running".
var DefaultContinuationRules = []ContinuationRule{
	{Subcode: "TimedOut"},
	{WSManCode: WSManCodeOperationTimeout},
}

func (r ContinuationRule) empty() bool {
	return r.Subcode == "" && r.WSManCode == 0 && r.ReasonContains == ""
}

func (r ContinuationRule) matches(f *Fault) bool {
	if r.empty() {
		return false
	}
	if r.Subcode != "" && f.SubcodeLocal() != localName(r.Subcode) {
		return false
	}
	if r.WSManCode != 0 && f.WSManCode != r.WSManCode {
		return false
	}
	if r.ReasonContains != "" && !strings.Contains(f.Reason, r.ReasonContains) {
		return false
	}
	return true
}

// Classifier decides whether a fault returned by Receive means the command is
// still running.
type Classifier struct {
	rules []ContinuationRule
}

// NewClassifier returns a classifier for rules. A nil slice selects
// DefaultContinuationRules; an empty non-nil slice matches nothing.
func NewClassifier(rules []ContinuationRule) *Classifier {
	if rules == nil {
		rules = DefaultContinuationRules
	}
	return &Classifier{rules: append([]ContinuationRule(nil), rules...)}
}

// IsContinuation reports whether err is a fault matched by one of the rules.
func (c *Classifier) IsContinuation(err error) bool {
	var f *Fault
	if !errors.As(err, &f) {
		return false
	}
	for _, r := range c.rules {
		if r.matches(f) {
			return true
		}
	}
	return false
}
