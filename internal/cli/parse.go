package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// ParseConfig captures the options for the parse command.
type ParseConfig struct {
	Source   string
	Query    string
	JSON     bool
	Settings config.Config
	Out      io.Writer
	Logger   *slog.Logger
}

var parseRunner = runParse

func newParseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse <file|url>",
		Short: "Parse a document and list its endpoints, schemas and diagnostics",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := resolveSettings(cmd)
			if err != nil {
				return err
			}
			query, err := cmd.Flags().GetString("query")
			if err != nil {
				return err
			}
			asJSON, err := cmd.Flags().GetBool("json")
			if err != nil {
				return err
			}
			return parseRunner(cmd.Context(), &ParseConfig{
				Source:   args[0],
				Query:    query,
				JSON:     asJSON,
				Settings: settings,
				Out:      cmd.OutOrStdout(),
				Logger:   newLogger(cmd.ErrOrStderr(), slog.LevelWarn, settings.Verbose),
			})
		},
	}

	flags := cmd.Flags()
	flags.String("format", "", "Document format (yaml|json); guessed from the file extension when omitted")
	flags.String("query", "", "Only list paths and schemas containing this text")
	flags.Bool("json", false, "Print the report as JSON")
	flags.Bool("validate", false, "Report OpenAPI validation findings as warnings")
	addFetchFlags(flags)

	return cmd
}

type parseReport struct {
	Endpoints   []document.PathEndpoints `json:"endpoints"`
	Schemas     []string                 `json:"schemas"`
	Diagnostics []document.Diagnostic    `json:"diagnostics"`
}

func runParse(ctx context.Context, cfg *ParseConfig) error {
	raw, err := workspace.ReadSource(ctx, cfg.Source, fetchSettings(cfg.Settings))
	if err != nil {
		return friendlyError(err)
	}
	f, err := formatFor(cfg.Settings.Format, cfg.Source)
	if err != nil {
		return err
	}

	m := document.NewModel(
		document.WithFormat(f),
		document.WithLogger(cfg.Logger),
		document.WithValidation(cfg.Settings.Validation),
	)
	snap, parseErr := m.Parse(string(raw))

	report := parseReport{
		Endpoints:   snap.Endpoints.Filter(cfg.Query).Entries(),
		Schemas:     snap.Schemas.Filter(cfg.Query).Names(),
		Diagnostics: m.Diagnostics(),
	}
	if cfg.JSON {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(cfg.Out, "%s\n", data)
	} else {
		printReport(cfg.Out, report)
	}
	return friendlyError(parseErr)
}

func printReport(w io.Writer, r parseReport) {
	fmt.Fprintf(w, "Endpoints (%d paths):\n", len(r.Endpoints))
	for _, pe := range r.Endpoints {
		fmt.Fprintf(w, "  %s\n", pe.Path)
		for _, e := range pe.Endpoints {
			fmt.Fprintf(w, "    %-7s %s\n", e.Method, e.Summary)
		}
	}
	fmt.Fprintf(w, "Schemas (%d):\n", len(r.Schemas))
	for _, name := range r.Schemas {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "Diagnostics:\n")
	for _, d := range r.Diagnostics {
		if d.Line > 0 {
			fmt.Fprintf(w, "  %-7s line %d: %s\n", d.Kind, d.Line, d.Message)
			continue
		}
		fmt.Fprintf(w, "  %-7s %s\n", d.Kind, d.Message)
	}
}
