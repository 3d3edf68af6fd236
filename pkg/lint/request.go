package lint

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/cst"
)

// Request is one analysis request as seen by rules. It is created per
// incoming message and discarded after its response is written.
type Request struct {
	Stage     core.Stage
	Path      string
	Payload   json.RawMessage
	Selection core.RuleSelection

	scratch *Scratch
}

// NewRequest creates a request with a fresh scratch space.
func NewRequest(stage core.Stage, path string, payload json.RawMessage, sel core.RuleSelection) *Request {
	return &Request{
		Stage:     stage,
		Path:      path,
		Payload:   payload,
		Selection: sel,
		scratch:   newScratch(),
	}
}

// Scratch returns the request-local memo storage.
func (r *Request) Scratch() *Scratch {
	if r.scratch == nil {
		r.scratch = newScratch()
	}
	return r.scratch
}

// Memo keys used by the payload views.
const (
	memoText    = "lint.payload.text"
	memoCST     = "lint.payload.cst"
	memoAST     = "lint.payload.ast"
	memoGeneric = "lint.payload.generic"
)

// Text returns the payload text of raw_text and pp_text requests.
// Other stages return the empty string.
func (r *Request) Text() (string, error) {
	p, err := r.textPayload()
	if err != nil {
		return "", err
	}
	return p.Text, nil
}

// Defines returns the macro definitions of a pp_text request.
func (r *Request) Defines() ([]Define, error) {
	p, err := r.textPayload()
	if err != nil {
		return nil, err
	}
	return p.Defines, nil
}

func (r *Request) textPayload() (*TextPayload, error) {
	return Memo(r.Scratch(), memoText, func() (*TextPayload, error) {
		var p TextPayload
		if r.Stage != core.StageRawText && r.Stage != core.StagePPText {
			return &p, nil
		}
		if err := r.decode(&p); err != nil {
			return nil, err
		}
		return &p, nil
	})
}

type cstPayload struct {
	Mode   string  `json:"mode"`
	HasCST *bool   `json:"has_cst"`
	IR     *cst.IR `json:"cst_ir"`
}

// CST returns the shared index over the payload's CST. It returns nil with no
// error when the request is not a cst request, the payload mode is "none",
// or the payload carries no tree.
func (r *Request) CST() (*cst.Index, error) {
	return Memo(r.Scratch(), memoCST, func() (*cst.Index, error) {
		if r.Stage != core.StageCST {
			return nil, nil
		}
		var p cstPayload
		if err := r.decode(&p); err != nil {
			return nil, err
		}
		if p.Mode == CSTModeNone || p.IR == nil || (p.HasCST != nil && !*p.HasCST) {
			return nil, nil
		}
		return cst.NewIndex(p.IR), nil
	})
}

// AST returns the typed view of an ast payload. Other stages return an
// empty payload.
func (r *Request) AST() (*ASTPayload, error) {
	return Memo(r.Scratch(), memoAST, func() (*ASTPayload, error) {
		var p ASTPayload
		if r.Stage != core.StageAST {
			return &p, nil
		}
		if err := r.decode(&p); err != nil {
			return nil, err
		}
		return &p, nil
	})
}

// Generic returns the payload decoded into plain maps and slices. Numbers
// are kept as json.Number so integers survive the round trip.
func (r *Request) Generic() (map[string]any, error) {
	return Memo(r.Scratch(), memoGeneric, func() (map[string]any, error) {
		out := make(map[string]any)
		if isEmptyPayload(r.Payload) {
			return out, nil
		}
		dec := json.NewDecoder(bytes.NewReader(r.Payload))
		dec.UseNumber()
		if err := dec.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", r.Stage, err)
		}
		return out, nil
	})
}

// decode fills a typed view. Untyped values such as CST node fields keep
// numbers as json.Number, matching Generic.
func (r *Request) decode(into any) error {
	if isEmptyPayload(r.Payload) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.Payload))
	dec.UseNumber()
	if err := dec.Decode(into); err != nil {
		return fmt.Errorf("decode %s payload: %w", r.Stage, err)
	}
	return nil
}

func isEmptyPayload(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
