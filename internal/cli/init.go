package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Format     string
	ConfigPath string
	Force      bool
	Out        io.Writer
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a new OpenAPI document from the default template",
		Long: "Scaffold a new OpenAPI document from the built-in template, and optionally a commented " +
			"openspec configuration file that documents available options.",
		Example: strings.TrimSpace(`  openspec init
  openspec init --out api/openapi.json --with-config openspec.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			withConfig, err := cmd.Flags().GetString("with-config")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			cfg := &InitConfig{
				OutputPath: out,
				Format:     format,
				ConfigPath: withConfig,
				Force:      force,
				Out:        cmd.OutOrStdout(),
			}
			return initRunner(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("out", "openapi.yaml", "Where to write the new document")
	cmd.Flags().String("format", "", "Document format (yaml|json); guessed from --out when omitted")
	cmd.Flags().String("with-config", "", "Also write a sample config file to this path")
	cmd.Flags().Bool("force", false, "Overwrite target files if they already exist")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = workspace.ExportBaseName + ".yaml"
	}
	f, err := formatFor(cfg.Format, out)
	if err != nil {
		return err
	}
	content := workspace.DefaultTemplate()
	if f == document.JSON {
		content, err = document.Convert(content, true)
		if err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	if err := scaffold(cfg.Out, out, content, cfg.Force); err != nil {
		return err
	}

	if path := strings.TrimSpace(cfg.ConfigPath); path != "" {
		return scaffold(cfg.Out, path, strings.TrimSpace(sampleConfigYAML)+"\n", cfg.Force)
	}
	return nil
}

func scaffold(w io.Writer, path, content string, force bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}
	if st, err := os.Stat(absPath); err == nil && !force {
		if st.Mode().IsRegular() {
			return newUsageError(fmt.Sprintf("init: %q already exists (use --force to overwrite)", absPath))
		}
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot create parent directory: %v", err))
	}
	if err := workspace.WriteFileAtomic(absPath, []byte(content)); err != nil {
		return newUsageError(fmt.Sprintf("init: cannot place file at %s: %v", absPath, err))
	}
	fmt.Fprintf(w, "Wrote %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# openspec configuration (YAML)
# All fields are optional. OPENSPEC_* environment variables override these
# values, and command-line flags override both.

# Document format (yaml|json). Guessed from the file name when omitted.
# format: yaml

# Workspace store used by serve, import and export (file|memory|nats).
# store: file
# storePath: ~/.config/openspec/store.json

# NATS JetStream key-value store.
# natsUrl: nats://127.0.0.1:4222
# natsBucket: openspec

# Listen address for serve, and browser origins it accepts besides its own.
# addr: 127.0.0.1:8080
# allowedOrigins: [http://localhost:5173]

# Report OpenAPI validation findings as warnings after each parse.
# validate: false

# Remote document reads.
# httpTimeout: 10s
# maxRetries: 3

# Enable verbose logging.
# verbose: false
`
