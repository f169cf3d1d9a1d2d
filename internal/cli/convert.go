package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// ConvertConfig captures the options for the convert command.
type ConvertConfig struct {
	Source     string
	To         string
	OutputPath string
	Settings   config.Config
	Out        io.Writer
}

var convertRunner = runConvert

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <file|url>",
		Short: "Convert a document between YAML and JSON, keeping key order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			to, err := cmd.Flags().GetString("to")
			if err != nil {
				return err
			}
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			return convertRunner(cmd.Context(), &ConvertConfig{
				Source:     args[0],
				To:         to,
				OutputPath: out,
				Settings:   settings,
				Out:        cmd.OutOrStdout(),
			})
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Input format (yaml|json); guessed from the file extension when omitted")
	flags.String("to", "", "Output format; the other format when omitted")
	flags.String("out", "", "Write the result to this file instead of stdout")
	addFetchFlags(flags)

	return cmd
}

func runConvert(ctx context.Context, cfg *ConvertConfig) error {
	from, err := formatFor(cfg.Settings.Format, cfg.Source)
	if err != nil {
		return err
	}
	if cfg.To != "" {
		to, err := formatFor(cfg.To, "")
		if err != nil {
			return err
		}
		if to == from {
			return newUsageError(fmt.Sprintf("convert: input is already %s", from))
		}
	}

	raw, err := workspace.ReadSource(ctx, cfg.Source, fetchSettings(cfg.Settings))
	if err != nil {
		return friendlyError(err)
	}
	out, err := document.Convert(string(raw), from == document.YAML)
	if err != nil {
		return friendlyError(err)
	}
	return writeOutput(cfg.Out, cfg.OutputPath, []byte(out))
}
