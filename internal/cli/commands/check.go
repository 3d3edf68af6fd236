package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/rulehost/internal/cli/config"
	"github.com/leapstack-labs/rulehost/internal/cli/output"
	"github.com/leapstack-labs/rulehost/internal/host"
	"github.com/leapstack-labs/rulehost/internal/registry"
	"github.com/leapstack-labs/rulehost/pkg/core"
	"github.com/leapstack-labs/rulehost/pkg/lint"
)

// CheckOptions holds options for the check command.
type CheckOptions struct {
	Scripts []string // Rule sources; overrides check.scripts
	Stages  []string // Text stages to request for each file
	CSTIR   string   // CST payload file (JSON or YAML)
	AST     string   // AST payload file (JSON or YAML)
}

// FileResult is the check output for one file.
type FileResult struct {
	Path       string           `json:"path"`
	Violations []core.Violation `json:"violations"`
}

// CheckSummary counts violations by severity.
type CheckSummary struct {
	Files      int `json:"files"`
	Violations int `json:"violations"`
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
	Info       int `json:"info"`
}

// CheckOutput is the JSON form of a check run.
type CheckOutput struct {
	Files   []FileResult `json:"files"`
	Summary CheckSummary `json:"summary"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand() *cobra.Command {
	opts := &CheckOptions{}
	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Run rule sources over files in process",
		Long: `Run rule sources over source files without a driving pipeline.

Each file is read as UTF-8 (a byte order mark is stripped, CRLF line
endings are normalised) and sent as raw_text and pp_text requests through
the same dispatcher the host uses. CST and AST requests are added when a
payload file is given with --cst-ir or --ast; those flags take exactly one
source file.

Rule sources come from --script, else check.scripts in the config file,
else every builtin source.`,
		Example: `  # Check files with the builtin rules
  rulehost check rtl/top.sv rtl/alu.sv

  # Use a Starlark rule script
  rulehost check --script rules/naming.star rtl/top.sv

  # Include a CST payload produced by the parser
  rulehost check --cst-ir build/top.cst.json rtl/top.sv

  # Machine-readable output
  rulehost check --format json rtl/top.sv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, args, opts)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Scripts, "script", nil, "Rule source to load (repeatable): path.star or builtin:<name>")
	cmd.Flags().StringSliceVar(&opts.Stages, "stage", []string{string(core.StageRawText), string(core.StagePPText)}, "Text stages to request")
	cmd.Flags().StringVar(&opts.CSTIR, "cst-ir", "", "CST payload file for a cst request")
	cmd.Flags().StringVar(&opts.AST, "ast", "", "AST payload file for an ast request")
	cmd.Flags().StringP("format", "f", "", "Output format: text, json")

	return cmd
}

type stageRequest struct {
	stage   core.Stage
	payload json.RawMessage
}

func runCheck(cmd *cobra.Command, args []string, opts *CheckOptions) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	if (opts.CSTIR != "" || opts.AST != "") && len(args) != 1 {
		return fmt.Errorf("--cst-ir and --ast take exactly one source file, got %d", len(args))
	}

	stages := make([]core.Stage, 0, len(opts.Stages))
	for _, s := range opts.Stages {
		st, err := core.ParseStage(s)
		if err != nil {
			return err
		}
		if st != core.StageRawText && st != core.StagePPText {
			return fmt.Errorf("--stage only takes text stages, got %s", st)
		}
		stages = append(stages, st)
	}

	extra, err := payloadRequests(opts)
	if err != nil {
		return err
	}

	policy, err := host.ParsePolicy(cfg.Host.OnRuleError)
	if err != nil {
		return err
	}
	lintCfg, err := cfg.Rules.LintConfig()
	if err != nil {
		return err
	}

	loader := &registry.Loader{
		BaseDir:     cfg.Host.BaseDir,
		Parallelism: cfg.Host.LoadParallelism,
		Logger:      logger,
	}
	reg, err := loader.Load(ctx, checkScripts(cfg.Check.Scripts, opts.Scripts))
	if err != nil {
		return err
	}
	d := host.NewDispatcher(reg, policy, logger, nil)
	sel := lintCfg.Selection()

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), renderMode(cfg.Check.Format))
	results := make([]FileResult, 0, len(args))

	for _, path := range args {
		text, err := readSource(path)
		if err != nil {
			return err
		}
		textPayload, err := json.Marshal(lint.TextPayload{Text: text})
		if err != nil {
			return err
		}

		reqs := make([]stageRequest, 0, len(stages)+len(extra))
		for _, st := range stages {
			reqs = append(reqs, stageRequest{stage: st, payload: textPayload})
		}
		reqs = append(reqs, extra...)

		var vs []core.Violation
		for _, sr := range reqs {
			res, err := d.Dispatch(ctx, lint.NewRequest(sr.stage, path, sr.payload, sel))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			for _, rerr := range res.RuleErrors {
				r.Warn(fmt.Sprintf("%s: %v", path, rerr))
			}
			vs = append(vs, res.Violations...)
		}
		results = append(results, FileResult{Path: path, Violations: lintCfg.Apply(vs)})
	}

	summary := summarize(results)
	if r.EffectiveMode() == output.ModeJSON {
		if err := r.JSON(CheckOutput{Files: results, Summary: summary}); err != nil {
			return err
		}
	} else {
		renderCheckText(r, results, summary)
	}

	if summary.Violations > 0 {
		return fmt.Errorf("%d violations found", summary.Violations)
	}
	return nil
}

// checkScripts picks the rule sources: flags, then config, then all builtins.
func checkScripts(configured []registry.ScriptSpec, flags []string) []registry.ScriptSpec {
	if len(flags) > 0 {
		specs := make([]registry.ScriptSpec, len(flags))
		for i, f := range flags {
			specs[i] = registry.ScriptSpec{Path: f}
		}
		return specs
	}
	if len(configured) > 0 {
		return configured
	}
	var specs []registry.ScriptSpec
	for _, b := range lint.Builtins() {
		specs = append(specs, registry.ScriptSpec{Path: registry.BuiltinPrefix + b.Name})
	}
	return specs
}

func renderMode(format string) output.Mode {
	if format == "json" {
		return output.ModeJSON
	}
	return output.ModeAuto
}

// readSource reads a file as UTF-8 text with any byte order mark removed
// and CRLF line endings normalised to LF.
func readSource(path string) (string, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the command line
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", path, err)
	}
	return strings.ReplaceAll(string(decoded), "\r\n", "\n"), nil
}

func payloadRequests(opts *CheckOptions) ([]stageRequest, error) {
	var reqs []stageRequest
	if opts.CSTIR != "" {
		p, err := readPayload(opts.CSTIR)
		if err != nil {
			return nil, err
		}
		if _, ok := p["cst_ir"]; !ok {
			p = map[string]any{"cst_ir": p}
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, stageRequest{stage: core.StageCST, payload: raw})
	}
	if opts.AST != "" {
		p, err := readPayload(opts.AST)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, stageRequest{stage: core.StageAST, payload: raw})
	}
	return reqs, nil
}

// readPayload reads a JSON or YAML object from path.
func readPayload(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: paths come from the command line
	if err != nil {
		return nil, fmt.Errorf("read payload %s: %w", path, err)
	}

	var p map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &p)
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		err = dec.Decode(&p)
	}
	if err != nil {
		return nil, fmt.Errorf("parse payload %s: %w", path, err)
	}
	if p == nil {
		p = map[string]any{}
	}
	return p, nil
}

func summarize(results []FileResult) CheckSummary {
	s := CheckSummary{Files: len(results)}
	for _, res := range results {
		s.Violations += len(res.Violations)
		for _, v := range res.Violations {
			switch v.Severity {
			case core.SeverityError:
				s.Errors++
			case core.SeverityWarning:
				s.Warnings++
			case core.SeverityInfo:
				s.Info++
			}
		}
	}
	return s
}

func renderCheckText(r *output.Renderer, results []FileResult, summary CheckSummary) {
	if summary.Violations == 0 {
		r.Success(fmt.Sprintf("No violations in %d files", summary.Files))
		return
	}

	st := r.Styles()
	for _, res := range results {
		if len(res.Violations) == 0 {
			continue
		}
		r.Println(st.Path.Render(res.Path))
		for _, v := range res.Violations {
			sev := v.Severity.String()
			switch v.Severity {
			case core.SeverityError:
				sev = st.Error.Render(sev)
			case core.SeverityWarning:
				sev = st.Warning.Render(sev)
			case core.SeverityInfo:
				sev = st.Info.Render(sev)
			}
			loc := fmt.Sprintf("%d:%d", v.Location.Line, v.Location.Col)
			r.Printf("  %-8s %s  %s  %s\n", loc, sev, v.Message, st.RuleID.Render(v.RuleID))
		}
	}
	r.Println(st.Muted.Render(fmt.Sprintf("%d violations (%d errors, %d warnings, %d info) in %d files",
		summary.Violations, summary.Errors, summary.Warnings, summary.Info, summary.Files)))
}
