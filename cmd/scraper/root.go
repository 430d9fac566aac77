package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aluiziolira/go-scrape-perfumes/config"
)

var rootFlags struct {
	envFile  string
	verbose  bool
	baseURL  string
	output   string
	format   string
	imageDir string
}

var rootCmd = &cobra.Command{
	Use:           "scraper",
	Short:         "scraper collects Fragrantica perfume records and serves the resulting dataset.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	defaults := config.DefaultConfig()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&rootFlags.envFile, "env-file", ".env", "Dotenv file with SCRAPER_* settings (ignored when missing)")
	flags.BoolVarP(&rootFlags.verbose, "verbose", "v", false, "Enable verbose logging")
	flags.StringVar(&rootFlags.baseURL, "base-url", defaults.BaseURL, "Site root to scrape")
	flags.StringVarP(&rootFlags.output, "output", "o", defaults.OutputFile, "Dataset file path")
	flags.StringVar(&rootFlags.format, "format", defaults.OutputFormat, "Output format: json or dual (json plus a CSV sibling)")
	flags.StringVar(&rootFlags.imageDir, "image-dir", defaults.ImageDir, "Directory for downloaded product images")
}

// ExecuteContext runs the command tree and returns the process exit code.
func ExecuteContext(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// loadConfig layers the configuration: defaults, then the dotenv file and SCRAPER_*
// variables, then any flag set explicitly on the command line.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(rootFlags.envFile); err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("verbose") {
		cfg.Verbose = rootFlags.verbose
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = rootFlags.baseURL
	}
	if flags.Changed("output") {
		cfg.OutputFile = rootFlags.output
	}
	if flags.Changed("format") {
		cfg.OutputFormat = strings.ToLower(rootFlags.format)
	}
	if flags.Changed("image-dir") {
		cfg.ImageDir = rootFlags.imageDir
	}
	return cfg, nil
}

// setup validates cfg and installs the process logger.
func setup(cfg *config.Config) (*slog.Logger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())
	return logger, nil
}
