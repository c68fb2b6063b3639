// Command conceptgraph builds concept graphs from definition files and
// queries the saved builds.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/brunobiangulo/conceptgraph"
	"github.com/brunobiangulo/conceptgraph/concept"
)

var version = "0.1.0-dev"

type globalOptions struct {
	configPath string
	dbPath     string
	weights    string
	logFormat  string
	logLevel   string
	jsonOutput bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "conceptgraph",
		Short: "Build and query weighted concept graphs",
		Long: `conceptgraph reads concept definition files (XML or YAML), scores how
near every concept is to every other one, infers references from names
mentioned in tags and texts, and keeps each build in SQLite.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(opts.logFormat, opts.logLevel)
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to config file (YAML)")
	pf.StringVar(&opts.dbPath, "db", "", "Database path (overrides config)")
	pf.StringVar(&opts.weights, "weights", "", `Formula weights "context,tag,table" (overrides config)`)
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text|json")
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug|info|warn|error")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Print machine-readable output")

	rootCmd.AddCommand(
		newBuildCmd(opts),
		newNeighborsCmd(opts),
		newRefsCmd(opts),
		newConceptsCmd(opts),
		newBuildsCmd(opts),
		newImagesCmd(opts),
		newTraceCmd(opts),
		newEdgesCmd(opts),
	)
	return rootCmd
}

func setupLogging(format, level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q", level)
	}
	hopts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	switch strings.ToLower(format) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, hopts)
	case "text", "":
		handler = slog.NewTextHandler(os.Stderr, hopts)
	default:
		return fmt.Errorf("invalid --log-format %q (want text or json)", format)
	}
	slog.SetDefault(slog.New(handler))
	return nil
}

// loadConfig reads the config file and applies the global flag overrides.
func loadConfig(opts *globalOptions) (conceptgraph.Config, error) {
	cfg, err := conceptgraph.LoadConfig(opts.configPath)
	if err != nil {
		return cfg, err
	}
	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if opts.weights != "" {
		w, err := concept.ParseWeights(opts.weights)
		if err != nil {
			return cfg, err
		}
		cfg.FormulaWeights = []float64{w.Context, w.Tag, w.Table}
	}
	return cfg, nil
}

func openEngine(opts *globalOptions) (conceptgraph.Engine, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	return conceptgraph.New(cfg)
}
