package format

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/linemap"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// MaxColumns is the widest line format.line_length accepts.
const MaxColumns = 100

const lineLengthID = "format.line_length"

func init() {
	lint.Register(lint.Builtin{
		Name:        lineLengthID,
		Description: fmt.Sprintf("Lines must not exceed %d display columns.", MaxColumns),
		Stages:      []core.Stage{core.StageRawText},
		StageRules:  map[core.Stage][]string{core.StageRawText: {lineLengthID}},
		New:         func() lint.Rule { return lint.RuleFunc(checkLineLength) },
	})
}

func checkLineLength(_ context.Context, req *lint.Request) ([]core.Violation, error) {
	text, err := req.Text()
	if err != nil || text == "" {
		return nil, err
	}

	lm := linemap.New(text)
	var out []core.Violation
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		start := offset
		offset += len(line)

		body := strings.TrimRight(line, "\r\n")
		width := runewidth.StringWidth(body)
		if width <= MaxColumns {
			continue
		}

		out = append(out, core.Violation{
			RuleID:   lineLengthID,
			Severity: core.SeverityWarning,
			Message:  fmt.Sprintf("line exceeds %d columns (%d)", MaxColumns, width),
			Location: lm.Loc(start+overflowOffset(body), start+len(body)),
		})
	}
	return out, nil
}

// overflowOffset returns the byte offset of the first rune that ends past
// MaxColumns.
func overflowOffset(line string) int {
	width := 0
	for i, r := range line {
		width += runewidth.RuneWidth(r)
		if width > MaxColumns {
			return i
		}
	}
	return len(line)
}
