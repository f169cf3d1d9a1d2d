package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mark3labs/openspec-studio/internal/config"
	"github.com/mark3labs/openspec-studio/internal/document"
	"github.com/mark3labs/openspec-studio/internal/workspace"
)

// resolveSettings merges defaults, the --config file, OPENSPEC_* variables and
// the command's flags, in that order.
func resolveSettings(cmd *cobra.Command) (config.Config, error) {
	cfg := config.Default()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return cfg, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		if err := cfg.ApplyFile(configPath); err != nil {
			return cfg, newUsageError(err.Error())
		}
	}
	if err := cfg.ApplyEnv(nil); err != nil {
		return cfg, newUsageError(err.Error())
	}
	if err := applySettingsFlags(cmd.Flags(), &cfg); err != nil {
		return cfg, err
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, newUsageError(fmt.Sprintf("%s: %v", cmd.Name(), err))
	}
	return cfg, nil
}

// applySettingsFlags copies the flags the user set. Flags a command does not
// define are never Changed.
func applySettingsFlags(flags *pflag.FlagSet, cfg *config.Config) error {
	strs := []struct {
		name string
		dst  *string
	}{
		{"format", &cfg.Format},
		{"store", &cfg.Store},
		{"store-path", &cfg.StorePath},
		{"nats-url", &cfg.NATSURL},
		{"nats-bucket", &cfg.NATSBucket},
		{"addr", &cfg.Addr},
	}
	for _, s := range strs {
		if !flags.Changed(s.name) {
			continue
		}
		value, err := flags.GetString(s.name)
		if err != nil {
			return err
		}
		*s.dst = strings.TrimSpace(value)
	}
	if flags.Changed("validate") {
		value, err := flags.GetBool("validate")
		if err != nil {
			return err
		}
		cfg.Validation = value
	}
	if flags.Changed("verbose") {
		value, err := flags.GetBool("verbose")
		if err != nil {
			return err
		}
		cfg.Verbose = value
	}
	if flags.Changed("http-timeout") {
		value, err := flags.GetDuration("http-timeout")
		if err != nil {
			return err
		}
		cfg.HTTPTimeout = value
	}
	if flags.Changed("allow-origin") {
		value, err := flags.GetStringSlice("allow-origin")
		if err != nil {
			return err
		}
		cfg.AllowedOrigins = value
	}
	if flags.Changed("max-retries") {
		value, err := flags.GetInt("max-retries")
		if err != nil {
			return err
		}
		cfg.MaxRetries = value
	}
	return nil
}

func addFetchFlags(flags *pflag.FlagSet) {
	flags.Duration("http-timeout", 0, "Timeout for each HTTP request when reading a URL")
	flags.Int("max-retries", 0, "Retries for transient HTTP failures when reading a URL")
}

func addStoreFlags(flags *pflag.FlagSet) {
	flags.String("store", "", "Workspace store backend (file|memory|nats)")
	flags.String("store-path", "", "File store location")
	flags.String("nats-url", "", "NATS server URL for the nats store")
	flags.String("nats-bucket", "", "JetStream key-value bucket for the nats store")
}

func fetchSettings(cfg config.Config) workspace.FetchSettings {
	fs := workspace.DefaultFetchSettings()
	if cfg.HTTPTimeout > 0 {
		fs.HTTPTimeout = cfg.HTTPTimeout
	}
	fs.MaxRetries = cfg.MaxRetries
	return fs
}

// formatFor returns the configured format, or guesses it from name.
func formatFor(setting, name string) (document.Format, error) {
	if setting == "" {
		return document.FormatForPath(name), nil
	}
	f, err := document.ParseFormat(setting)
	if err != nil {
		return f, newUsageError(err.Error())
	}
	return f, nil
}

// newLogger writes text logs to w. Verbose lowers the level to debug.
func newLogger(w io.Writer, base slog.Level, verbose bool) *slog.Logger {
	level := base
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openStore returns the configured workspace store and a release func.
func openStore(ctx context.Context, cfg config.Config) (workspace.Store, func(), error) {
	switch cfg.Store {
	case config.StoreMemory:
		return workspace.NewMemoryStore(), func() {}, nil
	case config.StoreNATS:
		s, closeFn, err := workspace.DialNATSStore(ctx, cfg.NATSURL, cfg.NATSBucket)
		if err != nil {
			return nil, nil, err
		}
		return s, closeFn, nil
	default:
		return workspace.NewFileStore(cfg.StorePath), func() {}, nil
	}
}

// writeOutput writes data to path atomically, or to w when path is empty or "-".
func writeOutput(w io.Writer, path string, data []byte) error {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		_, err := w.Write(data)
		return err
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return newUsageError(fmt.Sprintf("cannot create parent directory: %v", err))
	}
	if err := workspace.WriteFileAtomic(absPath, data); err != nil {
		return newUsageError(fmt.Sprintf("cannot write %s: %v\nHint: choose a different --out or check directory permissions.", absPath, err))
	}
	fmt.Fprintf(w, "Wrote %s\n", absPath)
	return nil
}
