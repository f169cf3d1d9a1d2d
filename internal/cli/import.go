package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// ImportConfig captures the options for the import command.
type ImportConfig struct {
	Source   string
	Settings config.Config
	Out      io.Writer
	Logger   *slog.Logger
}

var importRunner = runImport

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file|url>",
		Short: "Replace the workspace buffer with a file or URL",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			return importRunner(cmd.Context(), &ImportConfig{
				Source:   args[0],
				Settings: settings,
				Out:      cmd.OutOrStdout(),
				Logger:   newLogger(cmd.ErrOrStderr(), slog.LevelWarn, settings.Verbose),
			})
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Buffer format (yaml|json); yaml when omitted")
	addStoreFlags(flags)
	addFetchFlags(flags)

	return cmd
}

func runImport(ctx context.Context, cfg *ImportConfig) error {
	session, release, err := openSession(ctx, cfg.Settings, cfg.Logger)
	if err != nil {
		return err
	}
	defer release()

	snap, err := session.Import(ctx, cfg.Source)
	if err != nil {
		return friendlyError(err)
	}
	fmt.Fprintf(cfg.Out, "Imported %s (%d paths, %d schemas)\n", cfg.Source, snap.Endpoints.Len(), snap.Schemas.Len())
	return nil
}

// openSession opens the workspace session on the configured store.
func openSession(ctx context.Context, settings config.Config, logger *slog.Logger, opts ...document.Option) (*workspace.Session, func(), error) {
	store, release, err := openStore(ctx, settings)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	f := document.YAML
	if settings.Format != "" {
		if f, err = formatFor(settings.Format, ""); err != nil {
			release()
			return nil, nil, err
		}
	}
	modelOpts := append([]document.Option{
		document.WithFormat(f),
		document.WithLogger(logger),
		document.WithValidation(settings.Validation),
	}, opts...)
	session, err := workspace.Open(ctx, store,
		workspace.WithLogger(logger),
		workspace.WithFetchSettings(fetchSettings(settings)),
		workspace.WithModel(document.NewModel(modelOpts...)),
	)
	if err != nil {
		release()
		return nil, nil, err
	}
	return session, release, nil
}
