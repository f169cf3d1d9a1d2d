package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/graph"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// CompileConfig captures the options for the compile command.
type CompileConfig struct {
	Source     string
	OutputPath string
	Apply      bool
	Settings   config.Config
	Out        io.Writer
	Logger     *slog.Logger
}

var compileRunner = runCompile

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <graph.yaml>",
		Short: "Compile a graph snapshot into an OpenAPI document",
		Long: "Compile a visual-editor graph snapshot (YAML or JSON) into an OpenAPI 3 skeleton. " +
			"With --apply the result replaces the workspace buffer unless it is unchanged.",
		Example: strings.TrimSpace(`  openspec compile graph.yaml --format json
  openspec compile graph.yaml --apply --store memory`),
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
			apply, err := cmd.Flags().GetBool("apply")
			if err != nil {
				return err
			}
			if apply && out != "" {
				return newUsageError("compile: --apply and --out are mutually exclusive")
			}
			return compileRunner(cmd.Context(), &CompileConfig{
				Source:     args[0],
				OutputPath: out,
				Apply:      apply,
				Settings:   settings,
				Out:        cmd.OutOrStdout(),
				Logger:     newLogger(cmd.ErrOrStderr(), slog.LevelWarn, settings.Verbose),
			})
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Output format (yaml|json); yaml when omitted")
	flags.String("out", "", "Write the document to this file instead of stdout")
	flags.Bool("apply", false, "Apply the document to the workspace buffer")
	addStoreFlags(flags)
	addFetchFlags(flags)

	return cmd
}

func runCompile(ctx context.Context, cfg *CompileConfig) error {
	raw, err := workspace.ReadSource(ctx, cfg.Source, fetchSettings(cfg.Settings))
	if err != nil {
		return friendlyError(err)
	}
	g, err := graph.LoadSnapshot(raw)
	if err != nil {
		return newUsageError(err.Error())
	}
	doc, err := g.Compile()
	if err != nil {
		return friendlyError(err)
	}

	if cfg.Apply {
		return applyToWorkspace(ctx, cfg, doc)
	}

	f := document.YAML
	if cfg.Settings.Format != "" {
		if f, err = formatFor(cfg.Settings.Format, ""); err != nil {
			return err
		}
	}
	data, err := doc.Encode(f)
	if err != nil {
		return err
	}
	return writeOutput(cfg.Out, cfg.OutputPath, data)
}

func applyToWorkspace(ctx context.Context, cfg *CompileConfig, doc *document.Document) error {
	session, release, err := openSession(ctx, cfg.Settings, cfg.Logger)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}
	defer release()

	changed, err := session.ApplyDocument(ctx, doc)
	if err != nil {
		return friendlyError(err)
	}
	if !changed {
		fmt.Fprintln(cfg.Out, "Workspace unchanged")
		return nil
	}
	fmt.Fprintf(cfg.Out, "Workspace updated (%d paths)\n", session.Snapshot().Endpoints.Len())
	return nil
}
