package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// UpgradeConfig captures the options for the upgrade command.
type UpgradeConfig struct {
	Source     string
	OutputPath string
	Settings   config.Config
	Out        io.Writer
}

var upgradeRunner = runUpgrade

func newUpgradeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade <file|url>",
		Short: "Convert a Swagger 2.0 document to OpenAPI 3",
		Long: "Convert a Swagger 2.0 document to OpenAPI 3 and validate the result. " +
			"OpenAPI 3 input is written back unchanged.",
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			return upgradeRunner(cmd.Context(), &UpgradeConfig{
				Source:     args[0],
				OutputPath: out,
				Settings:   settings,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Output format (yaml|json); yaml when omitted")
	flags.String("out", "", "Write the document to this file instead of stdout")
	addFetchFlags(flags)

	return cmd
}

func runUpgrade(ctx context.Context, cfg *UpgradeConfig) error {
	f := document.YAML
	if cfg.Settings.Format != "" {
		var err error
		if f, err = formatFor(cfg.Settings.Format, ""); err != nil {
			return err
		}
	}
	raw, err := workspace.ReadSource(ctx, cfg.Source, fetchSettings(cfg.Settings))
	if err != nil {
		return friendlyError(err)
	}
	doc, err := document.Upgrade(ctx, raw)
	if err != nil {
		return friendlyError(err)
	}
	data, err := doc.Encode(f)
	if err != nil {
		return err
	}
	return writeOutput(cfg.Out, cfg.OutputPath, data)
}
