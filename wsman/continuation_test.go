package wsman

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifier_Defaults(t *testing.T) {
	c := NewClassifier(nil)

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timed out subcode", &Fault{Subcode: "w:TimedOut"}, true},
		{"timed out other prefix", &Fault{Subcode: "wsman:TimedOut"}, true},
		{"operation timeout code", &Fault{Subcode: "w:InternalError", WSManCode: WSManCodeOperationTimeout}, true},
		{"wrapped", fmt.Errorf("receive: %w", &Fault{Subcode: "w:TimedOut"}), true},
		{"other fault", &Fault{Subcode: "w:InvalidSelectors", WSManCode: 2150858843}, false},
		{"not a fault", errors.New("boom"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.IsContinuation(tt.err); got != tt.want {
				t.Errorf("IsContinuation() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassifier_CustomRules(t *testing.T) {
	c := NewClassifier([]ContinuationRule{
		{Subcode: "w:InternalError", ReasonContains: "try again"},
	})

	if !c.IsContinuation(&Fault{Subcode: "w:InternalError", Reason: "please try again"}) {
		t.Error("expected match when every criterion matches")
	}
	if c.IsContinuation(&Fault{Subcode: "w:InternalError", Reason: "fatal"}) {
		t.Error("expected no match when the reason differs")
	}
	if c.IsContinuation(&Fault{Subcode: "w:TimedOut"}) {
		t.Error("custom rules replace the defaults")
	}
}

func TestClassifier_EmptyRules(t *testing.T) {
	c := NewClassifier([]ContinuationRule{})
	if c.IsContinuation(&Fault{Subcode: "w:TimedOut"}) {
		t.Error("an empty rule set should match nothing")
	}

	c = NewClassifier([]ContinuationRule{{}})
	if c.IsContinuation(&Fault{Subcode: "w:TimedOut"}) {
		t.Error("a rule without criteria should match nothing")
	}
}
