package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/metrics"
	"github.com/mark3labs/openspec-studio/internal/server"
)

// ServeConfig captures the options for the serve command.
type ServeConfig struct {
	Settings config.Config
	Logger   *slog.Logger
}

var serveRunner = runServe

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the editing backend over HTTP with live updates",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			return serveRunner(cmd.Context(), &ServeConfig{
				Settings: settings,
				Logger:   newLogger(cmd.ErrOrStderr(), slog.LevelInfo, settings.Verbose),
			})
		},
	}

	flags := cmd.Flags()
	flags.String("addr", "", "Listen address")
	flags.StringSlice("allow-origin", nil, "Browser origin allowed besides the server's own (repeatable)")
	flags.String("format", "", "Buffer format (yaml|json); yaml when omitted")
	flags.Bool("validate", false, "Report OpenAPI validation findings as warnings")
	addStoreFlags(flags)
	addFetchFlags(flags)

	return cmd
}

func runServe(ctx context.Context, cfg *ServeConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := metrics.New()
	if err != nil {
		return fmt.Errorf("serve: metrics: %w", err)
	}
	session, release, err := openSession(ctx, cfg.Settings, cfg.Logger, document.WithObserver(rec))
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer release()

	cfg.Logger.Info("serving", "addr", cfg.Settings.Addr, "store", cfg.Settings.Store)
	srv := server.New(session,
		server.WithLogger(cfg.Logger),
		server.WithMetrics(rec),
		server.WithAllowedOrigins(cfg.Settings.AllowedOrigins...),
	)
	return srv.ListenAndServe(ctx, cfg.Settings.Addr)
}
