// Package host runs the rule host session: it reads line-delimited JSON
// messages, routes each request to the eligible rules, and writes one
// response per request.
package host

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/rulehost/internal/registry"
	"github.com/leapstack-labs/rulehost/pkg/core"
)

// Message kinds.
const (
	KindInit     = "init"
	KindCheck    = "check"
	KindRunStage = "run_stage"
	KindShutdown = "shutdown"
)

// Response types.
const (
	TypeReady      = "ready"
	TypeViolations = "violations"
	TypeError      = "error"
)

// InitMessage is the first line of a session.
type InitMessage struct {
	Kind    string                `json:"kind,omitempty"`
	Scripts []registry.ScriptSpec `json:"scripts"`
}

// RequestMessage is one per-file request.
type RequestMessage struct {
	Kind    string          `json:"kind"`
	Stage   string          `json:"stage,omitempty"`
	Path    string          `json:"path,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Rules   RuleSet         `json:"rules,omitzero"`
}

// RuleSet is the caller's rule-id selection.
type RuleSet struct {
	Enabled  []string `json:"enabled,omitempty"`
	Disabled []string `json:"disabled,omitempty"`
}

// Selection converts the wire form to a core selection.
func (r RuleSet) Selection() core.RuleSelection {
	return core.RuleSelection{Enabled: r.Enabled, Disabled: r.Disabled}
}

// ReadyResponse acknowledges a successful init.
type ReadyResponse struct {
	Type string `json:"type"`
}

// ViolationsResponse carries the aggregated result of one request.
type ViolationsResponse struct {
	Type       string            `json:"type"`
	Stage      core.Stage        `json:"stage"`
	Violations []core.Violation  `json:"violations"`
	RuleErrors []RuleErrorRecord `json:"rule_errors,omitempty"`
}

// RuleErrorRecord names a rule source that failed under the isolate policy.
type RuleErrorRecord struct {
	Script string `json:"script"`
	Detail string `json:"detail"`
}

// ErrorResponse is terminal: the session ends after it is written.
type ErrorResponse struct {
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Script string `json:"script,omitempty"`
}

// ProtocolError reports a message the host cannot accept.
type ProtocolError struct {
	Detail string
}

func (e *ProtocolError) Error() string {
	return "protocol error: " + e.Detail
}

func protocolErrorf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Detail: fmt.Sprintf(format, args...)}
}

func decodeInit(line []byte) (*InitMessage, error) {
	var msg InitMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, protocolErrorf("invalid init message: %v", err)
	}
	if msg.Kind != "" && msg.Kind != KindInit {
		return nil, protocolErrorf("expected init message, got kind %q", msg.Kind)
	}
	return &msg, nil
}

func decodeRequest(line []byte) (*RequestMessage, core.Stage, error) {
	var msg RequestMessage
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, "", protocolErrorf("invalid request: %v", err)
	}

	switch msg.Kind {
	case KindShutdown:
		return &msg, "", nil
	case KindCheck, KindRunStage:
	case "":
		return nil, "", protocolErrorf("request has no kind")
	default:
		return nil, "", protocolErrorf("unknown request kind %q", msg.Kind)
	}

	stage, err := core.ParseStage(msg.Stage)
	if err != nil {
		return nil, "", protocolErrorf("%v", err)
	}
	return &msg, stage, nil
}
