package commands

import (
	"slices"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/rulehost/internal/cli/output"
	"github.com/leapstack-labs/rulehost/internal/registry"
	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
	_ "github.com/leapstack-labs/rulehost/pkg/lint/rules" // register builtin rule sources
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Stage  string // Filter by stage
	Format string // Output format
}

// ruleInfo is the JSON form of one builtin rule source.
type ruleInfo struct {
	Source      string                  `json:"source"`
	Description string                  `json:"description"`
	Stages      []core.Stage            `json:"stages"`
	StageRules  map[core.Stage][]string `json:"stage_rules,omitempty"`
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List builtin rule sources",
		Long: `List the rule sources compiled into the host.

Each source can be loaded by an init message or a check.scripts entry as
builtin:<name>.`,
		Example: `  # List all builtin sources
  rulehost rules

  # Only sources that run on CST requests
  rulehost rules --stage cst

  # Output as JSON
  rulehost rules --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return listRules(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Stage, "stage", "s", "", "Filter by stage: raw_text, pp_text, cst, ast")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func listRules(cmd *cobra.Command, opts *RulesOptions) error {
	var stage core.Stage
	if opts.Stage != "" {
		st, err := core.ParseStage(opts.Stage)
		if err != nil {
			return err
		}
		stage = st
	}

	var infos []ruleInfo
	for _, b := range lint.Builtins() {
		if stage != "" && len(b.Stages) > 0 && !slices.Contains(b.Stages, stage) {
			continue
		}
		infos = append(infos, ruleInfo{
			Source:      registry.BuiltinPrefix + b.Name,
			Description: b.Description,
			Stages:      b.Stages,
			StageRules:  b.StageRules,
		})
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(opts.Format))
	if r.EffectiveMode() == output.ModeJSON {
		if infos == nil {
			infos = []ruleInfo{}
		}
		return r.JSON(infos)
	}

	if len(infos) == 0 {
		r.Println("No builtin rule sources")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.Writer())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Source", "Stages", "Rule IDs", "Description"})
	for _, info := range infos {
		t.AppendRow(table.Row{
			info.Source,
			joinStages(info.Stages),
			strings.Join(lint.Builtin{StageRules: info.StageRules}.RuleIDs(), ", "),
			info.Description,
		})
	}
	t.Render()
	return nil
}

func joinStages(stages []core.Stage) string {
	if len(stages) == 0 {
		return "all"
	}
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
