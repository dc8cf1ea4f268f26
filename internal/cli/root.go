// Package cli provides the command-line interface for fairprobe.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/raphaelgruber/fairprobe/internal/config"
	"github.com/raphaelgruber/fairprobe/internal/db"
	"github.com/raphaelgruber/fairprobe/internal/metrics"
	"github.com/raphaelgruber/fairprobe/internal/service"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, db client, and collector
	cfg        config.Config
	dbClient   *db.Client
	collector  *metrics.Collector
	logCleanup func() error

	// Lazy-initialized orchestrator
	svc *service.AnalysisService
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fairprobe",
	Short: "Bias analysis for prediction endpoints",
	Long: `Fairprobe probes a prediction HTTP endpoint with a synthetic population
and reports fairness metrics: demographic parity gaps and score gaps
across protected groups, plus feature influence rankings.

Analyses run as persisted background jobs. Start one against an
endpoint, watch its progress, and export the report once it completes.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip DB connection for commands that work offline
		switch cmd.Name() {
		case "version", "help", "schema":
			return nil
		}

		// Load config
		cfg = config.Load()

		// Verbose raises the stderr level; the log file always gets Debug
		stderrLevel := cfg.LogLevel
		if verbose {
			stderrLevel = slog.LevelDebug
		}
		logger, cleanup := config.SetupLogger(cfg.LogFile, stderrLevel, slog.LevelDebug)
		slog.SetDefault(logger)
		logCleanup = cleanup

		// Connect to database
		ctx := context.Background()
		dbCfg := db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}

		var err error
		dbClient, err = db.NewClient(ctx, dbCfg, nil)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}

		// Initialize schema
		if err := dbClient.InitSchema(ctx); err != nil {
			return fmt.Errorf("initialize schema: %w", err)
		}

		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		// Close database connection
		if dbClient != nil {
			if err := dbClient.Close(context.Background()); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
			}
		}
		if logCleanup != nil {
			_ = logCleanup()
		}
	},
}

// getService builds the orchestrator on first use so command flags can
// override config (schema file, concurrency) before construction.
func getService() (*service.AnalysisService, error) {
	if svc != nil {
		return svc, nil
	}

	var err error
	svc, err = service.NewAnalysisService(dbClient, cfg, collector)
	if err != nil {
		return nil, fmt.Errorf("init analysis service: %w", err)
	}
	return svc, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(sweepCmd)
}
