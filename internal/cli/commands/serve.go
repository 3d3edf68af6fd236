package commands

import (
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/rulehost/internal/cli/config"
	"github.com/leapstack-labs/rulehost/internal/host"
	"github.com/leapstack-labs/rulehost/internal/registry"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the rule host on stdin/stdout",
		Long: `Run the rule host for a driving pipeline.

The host reads one JSON message per line on stdin and writes one JSON
response per request on stdout. The first line lists the rule sources to
load; every following line is a check request or a shutdown message.
Logs go to stderr.`,
		Example: `  # Usually spawned by the build driver
  rulehost serve

  # Keep serving when a rule fails
  rulehost serve --on-rule-error isolate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	return cmd
}

func runServe(cmd *cobra.Command) error {
	ctx := cmd.Context()
	cfg := config.GetConfig(ctx)
	logger := config.GetLogger(ctx)

	policy, err := host.ParsePolicy(cfg.Host.OnRuleError)
	if err != nil {
		return err
	}

	loader := &registry.Loader{
		BaseDir:     cfg.Host.BaseDir,
		Parallelism: cfg.Host.LoadParallelism,
		Logger:      logger,
	}
	srv := host.NewServer(cmd.InOrStdin(), cmd.OutOrStdout(), loader, host.Options{
		Policy:          policy,
		MaxMessageBytes: cfg.Host.MaxMessageBytes,
		MetricsFile:     cfg.Host.MetricsFile,
		Logger:          logger,
	})
	return srv.Run(ctx)
}
