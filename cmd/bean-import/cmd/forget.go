package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

// forgetCmd represents the forget command.
var forgetCmd = &cobra.Command{
	Use:   "forget KEY...",
	Short: "Remove identity keys from the import history",
	Long: `Remove identity keys from the import history so the records can be imported again.

The ledger files are also scanned for identity metadata on every import.
Delete the entry from its monthly file too, or it will still be skipped.

Example:
  bean-import forget REF123
  bean-import forget SALA-2024-06-15 SALA-2024-07-15`,
	Args: cobra.MinimumNArgs(1),
	Run:  runForget,
}

func runForget(cmd *cobra.Command, args []string) {
	_, paths := loadConfig()

	conn, history := openHistory(paths)
	defer conn.Close()

	var total int64
	for _, key := range args {
		records, err := history.FindImports(key)
		exitOnError(err, "failed to look up identity key")
		for _, r := range records {
			fmt.Printf("%s (%s) was written to %s from %s\n", key, r.MetaKey, r.LedgerFile, r.SourceFile)
		}

		n, err := history.Forget(key)
		exitOnError(err, "failed to forget identity key")
		if n == 0 {
			slog.Warn("Identity key not in import history", "key", key)
			continue
		}
		slog.Info("Forgot identity key", "key", key, "records", n)
		total += n
	}

	fmt.Printf("Removed %d import record(s)\n", total)
}
