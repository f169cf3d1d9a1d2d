package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
)

// ExportConfig captures the options for the export command.
type ExportConfig struct {
	Dir      string
	Settings config.Config
	Out      io.Writer
	Logger   *slog.Logger
}

var exportRunner = runExport

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Print the workspace buffer, or save it as openapi.<ext> with --dir",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			dir, err := cmd.Flags().GetString("dir")
			if err != nil {
				return err
			}
			return exportRunner(cmd.Context(), &ExportConfig{
				Dir:      dir,
				Settings: settings,
				Out:      cmd.OutOrStdout(),
				Logger:   newLogger(cmd.ErrOrStderr(), slog.LevelWarn, settings.Verbose),
			})
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Buffer format (yaml|json); yaml when omitted")
	flags.String("dir", "", "Write the export into this directory")
	addStoreFlags(flags)

	return cmd
}

func runExport(ctx context.Context, cfg *ExportConfig) error {
	session, release, err := openSession(ctx, cfg.Settings, cfg.Logger)
	if err != nil {
		return err
	}
	defer release()

	if cfg.Dir == "" {
		_, err := io.WriteString(cfg.Out, session.Export().Content)
		return err
	}
	path, err := session.WriteExport(cfg.Dir)
	if err != nil {
		return newUsageError(err.Error())
	}
	fmt.Fprintf(cfg.Out, "Wrote %s\n", path)
	return nil
}
