package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/mcptools"
)

// MCPConfig captures the options for the mcp command.
type MCPConfig struct {
	Settings config.Config
	Logger   *slog.Logger
}

var mcpRunner = runMCP

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the document tools over MCP on stdio",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs go to stderr.
			return mcpRunner(cmd.Context(), &MCPConfig{
				Settings: settings,
				Logger:   newLogger(cmd.ErrOrStderr(), slog.LevelWarn, settings.Verbose),
			})
		},
	}

	cmd.Flags().Bool("validate", false, "Report OpenAPI validation findings as warnings")

	return cmd
}

func runMCP(ctx context.Context, cfg *MCPConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := mcptools.NewServer("openspec", Version,
		mcptools.WithLogger(cfg.Logger),
		mcptools.WithValidation(cfg.Settings.Validation),
	)
	return mcptools.Run(ctx, srv)
}
