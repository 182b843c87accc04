package cmd

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/db"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display import statistics",
	Long: `Display statistics about imported ledger entries.

Shows:
- Total number of imported entries
- Imported entries per format
- Number of import batches
- Last import timestamp

Example:
  bean-import stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	_, paths := loadConfig()

	conn, history := openHistory(paths)
	defer conn.Close()

	printStats(history)

	slog.Info("Statistics displayed successfully")
}

// printStats prints the import history statistics.
func printStats(history *db.ImportHistory) {
	stats, err := history.GetStats()
	if err != nil {
		slog.Error("Failed to get statistics", "error", err)
		return
	}

	fmt.Println("\n=== Import Statistics ===")
	fmt.Printf("Total imported entries: %d\n", stats.TotalEntries)
	fmt.Printf("Import batches:         %d\n", stats.Batches)

	formats := make([]string, 0, len(stats.ByFormat))
	for name := range stats.ByFormat {
		formats = append(formats, name)
	}
	slices.Sort(formats)
	for _, name := range formats {
		fmt.Printf("  %-20s %d\n", name+":", stats.ByFormat[name])
	}

	if stats.LastImport.Valid {
		fmt.Printf("Last import:            %s\n", stats.LastImport.String)
	} else {
		fmt.Printf("Last import:            (never)\n")
	}
	if batch, err := history.GetMetadata("last_batch"); err == nil && batch != "" {
		fmt.Printf("Last batch:             %s\n", batch)
	}

	fmt.Println()
}
