package format

import (
	"context"
	"unicode/utf8"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// Rule ids produced by the shared text scan.
const (
	ASCIIOnlyID       = "format.ascii_only"
	NoTabsID          = "format.no_tabs"
	NoTrailingSpaceID = "format.no_trailing_whitespace"
	FinalNewlineID    = "format.final_newline"
)

const textScanKey = "format.text_scan"

var textRules = []struct {
	id          string
	description string
}{
	{ASCIIOnlyID, "Source must contain only ASCII characters."},
	{NoTabsID, "Source must not contain tab characters."},
	{NoTrailingSpaceID, "Lines must not end with whitespace."},
	{FinalNewlineID, "Files must end with a newline."},
}

func init() {
	for _, r := range textRules {
		id := r.id
		lint.Register(lint.Builtin{
			Name:        id,
			Description: r.description,
			Stages:      []core.Stage{core.StageRawText},
			StageRules:  map[core.Stage][]string{core.StageRawText: {id}},
			New: func() lint.Rule {
				return lint.RuleFunc(func(_ context.Context, req *lint.Request) ([]core.Violation, error) {
					table, err := lint.Memo(req.Scratch(), textScanKey, func() (map[string][]core.Violation, error) {
						return scanText(req)
					})
					if err != nil {
						return nil, err
					}
					return table[id], nil
				})
			},
		})
	}
}

// scanText walks the request text once and buckets findings by rule id.
func scanText(req *lint.Request) (map[string][]core.Violation, error) {
	table := make(map[string][]core.Violation)
	text, err := req.Text()
	if err != nil || text == "" {
		return table, err
	}

	lm := linemap.New(text)
	add := func(id, msg string, start, end int) {
		table[id] = append(table[id], core.Violation{
			RuleID:   id,
			Severity: core.SeverityWarning,
			Message:  msg,
			Location: lm.Loc(start, end),
		})
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r >= utf8.RuneSelf {
			add(ASCIIOnlyID, "non-ASCII character detected", i, i+size)
		}
		if r == '\t' {
			add(NoTabsID, "tab character detected", i, i+1)
		}
		i += size
	}

	for i := 0; i < len(text); i++ {
		if text[i] != '\n' || i == 0 {
			continue
		}
		if c := text[i-1]; c == ' ' || c == '\t' {
			add(NoTrailingSpaceID, "trailing whitespace at line end", i-1, i)
		}
	}

	if text[len(text)-1] != '\n' {
		_, size := utf8.DecodeLastRuneInString(text)
		add(FinalNewlineID, "file must end with newline", len(text)-size, len(text))
	}

	return table, nil
}
