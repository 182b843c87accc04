// Package cmd provides CLI commands for bean-import.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/config"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/db"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/pathutil"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bean-import",
	Short: "Import bank and broker statements into Beancount",
	Long: `bean-import converts bank and broker statements into balanced
Beancount transactions and appends them to monthly ledger files.

It supports:
- Delimited, sectioned, camt.053, OFX and JSON statements
- Fee, foreign exchange and security trade postings
- Skipping records already present in the ledger
- Dry-run mode for review

Example:
  bean-import import --format checking statements/bcge_2024-06.csv
  bean-import formats
  bean-import stats`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Setup logging
		logLevel := slog.LevelInfo
		if debug || os.Getenv("DEBUG") == "true" {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(formatsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(forgetCmd)
}

// loadConfig loads and validates the configuration shared by all commands.
func loadConfig() (*config.Config, *pathutil.PathResolver) {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	if err := cfg.Validate([]string{"ledger", "root"}); err != nil {
		exitOnError(err, "invalid configuration")
	}

	paths := pathutil.New(pathutil.Config{
		LedgerRoot:   cfg.Ledger.Root,
		DatabasePath: cfg.Ledger.DBPath,
	})
	slog.Debug("Ledger", "root", paths.GetLedgerRoot(), "database", paths.GetDatabasePath())
	return cfg, paths
}

// openHistory opens the import history database.
func openHistory(paths *pathutil.PathResolver) (*db.Connection, *db.ImportHistory) {
	dbPath := paths.GetDatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	return conn, db.NewImportHistory(conn)
}

// Helper function to handle errors and exit.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
