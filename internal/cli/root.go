package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is reported by the mcp server and --version.
var Version = "dev"

// Execute runs the openspec CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "openspec",
		Short: "Edit, convert and compile OpenAPI documents",
		Long: "openspec parses and converts OpenAPI documents, compiles visual-editor graphs into " +
			"OpenAPI skeletons, and serves a live editing backend over HTTP or MCP.",
		Version:       Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	cmd.AddCommand(
		newInitCmd(),
		newParseCmd(),
		newConvertCmd(),
		newCompileCmd(),
		newUpgradeCmd(),
		newImportCmd(),
		newExportCmd(),
		newServeCmd(),
		newMCPCmd(),
	)

	// Convert Cobra flag errors (like unknown flags) into friendly usage errors
	// that also show the command's help text.
	flagErr := func(c *cobra.Command, err error) error {
		return newUsageError(fmt.Sprintf("%v\n\n%s", err, c.UsageString()))
	}
	cmd.SetFlagErrorFunc(flagErr)
	for _, sub := range cmd.Commands() {
		sub.SetFlagErrorFunc(flagErr)
	}

	return cmd
}

// exactArgs is cobra.ExactArgs returning a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return newUsageError(fmt.Sprintf("%s: expected %d argument(s), got %d\n\n%s", cmd.Name(), n, len(args), cmd.UsageString()))
		}
		return nil
	}
}
