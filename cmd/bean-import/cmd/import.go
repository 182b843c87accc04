package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/beancount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/converter"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/db"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/format"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/inventory"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/ledger"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/pathutil"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/pipeline"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/reconcile"
)

var (
	formatName string
	account    string
	dryRun     bool
	workers    int
)

// importCmd represents the import command.
var importCmd = &cobra.Command{
	Use:   "import FILE...",
	Short: "Import statement files into the ledger",
	Long: `Import statement files into monthly Beancount files.

This command:
1. Parses every file with its format instance
2. Classifies records and builds balanced transactions
3. Filters out records already in the ledger or the import history
4. Appends the new entries to monthly Beancount files
5. Records the imported identity keys in SQLite

Files run in parallel; nothing is written until every file finished.
A file that fails contributes no entries.

Example:
  bean-import import --format checking bcge_2024-06.csv
  bean-import import activity_2024.csv camt_*.xml --dry-run
  bean-import import --format ib --account Assets:IB:Cash activity.csv
  bean-import import --format viseca --account Liabilities:Viseca - < card.json

A FILE of "-" reads the statement from standard input and requires --format.`,
	Args: cobra.MinimumNArgs(1),
	Run:  runImport,
}

func init() {
	// Flags
	importCmd.Flags().StringVar(&formatName, "format", "", "format instance or built-in format (default: match file names)")
	importCmd.Flags().StringVar(&account, "account", "", "ledger account, required with a built-in format")
	importCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Dry run mode (no file writes)")
	importCmd.Flags().IntVar(&workers, "workers", 0, "files imported in parallel (default IMPORT_WORKERS)")
}

func runImport(cmd *cobra.Command, args []string) {
	cfg, paths := loadConfig()
	slog.Info("Starting import", "files", len(args), "dry_run", dryRun)

	instances := loadInstances(cfg.Import.FormatsFile)

	// Initialize account mapper
	mapper := loadMapper(cfg.Import.AccountMappingFile)

	method, err := inventory.ParseCostBasisMethod(cfg.Import.CostBasisMethod)
	exitOnError(err, "invalid cost basis method")

	// One pipeline per format instance
	pipelines := map[string]*pipeline.Pipeline{}
	var jobs []pipeline.Job
	for _, file := range args {
		inst, err := resolveInstance(instances, file)
		exitOnError(err, "cannot select format")
		if inst.ManualFixes > 0 {
			slog.Info("Instance has manual fixes in the ledger", "instance", inst.Name, "manual_fixes", inst.ManualFixes)
		}

		p, ok := pipelines[inst.Name]
		if !ok {
			d, err := inst.Descriptor()
			exitOnError(err, "invalid format instance")
			p = pipeline.New(pipeline.Config{
				Format:    d,
				Account:   inst.Account,
				Mapper:    mapper,
				CostBasis: method,
				Logger:    slog.Default().With("instance", inst.Name),
			})
			pipelines[inst.Name] = p
		}
		jobs = append(jobs, pipeline.Job{Pipeline: p, Source: source(file)})
	}

	repo := beancount.NewFileSystemRepository(paths)
	var history *db.ImportHistory
	if !dryRun {
		conn, h := openHistory(paths)
		defer conn.Close()
		history = h
	}

	existing := existingKeys(pipelines, repo, history)

	if workers <= 0 {
		workers = cfg.Import.Workers
	}
	batch := pipeline.Batch(jobs, existing, workers, slog.Default())

	for _, f := range batch.Failed() {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", f.Source, f.Err)
	}
	if len(batch.Pending) == 0 {
		fmt.Println("No new entries to import")
		exitIfFailed(batch)
		return
	}

	if dryRun {
		for _, r := range batch.Pending {
			month := pathutil.MonthKey(r.Date)
			fmt.Printf("[DRY RUN] Would append to %s (from %s)\n", month, r.Info.Filename)
			fmt.Println(ledger.Format(r.Entry))
		}
		exitIfFailed(batch)
		return
	}

	records := make([]db.ImportRecord, 0, len(batch.Pending))
	filesWritten := map[string]bool{}
	newFiles := 0
	for _, r := range batch.Pending {
		month := pathutil.MonthKey(r.Date)
		filePath, err := paths.GetMonthFilePath(month)
		exitOnError(err, "failed to get month file path")
		if !repo.MonthFileExists(month) {
			slog.Info("Creating monthly file", "month", month, "path", filePath)
			newFiles++
		}

		if err := repo.AppendEntry(r.Entry, fmt.Sprintf("%s: %s", r.Info.Format, r.Info.Filename)); err != nil {
			slog.Error("Failed to append entry", "key", r.Key, "error", err)
			continue
		}
		filesWritten[filePath] = true
		records = append(records, db.ImportRecord{
			MetaKey:     r.Info.MetaKey,
			IdentityKey: r.Key,
			Format:      r.Info.Format,
			SourceFile:  r.Info.Filename,
			EntryDate:   r.Date.Format("2006-01-02"),
			LedgerFile:  filePath,
			BatchID:     batch.ID,
		})
	}

	// Record import history
	if err := history.RecordImports(records); err != nil {
		slog.Error("Failed to record import history", "error", err)
	}
	if err := history.SetMetadata("last_batch", batch.ID); err != nil {
		slog.Error("Failed to record last batch", "error", err)
	}

	printStats(history)

	slog.Info("Import completed",
		"batch", batch.ID,
		"new_entries", len(records),
		"files_written", len(filesWritten),
		"new_files", newFiles,
		"failed_files", len(batch.Failed()),
	)
	exitIfFailed(batch)
}

// loadMapper loads the account mapping file, or the default accounts when none is configured.
func loadMapper(path string) *converter.Mapper {
	if path == "" {
		return converter.DefaultMapper()
	}
	mapper, err := converter.NewMapper(path)
	exitOnError(err, "failed to load account mapping")
	return mapper
}

// loadInstances reads the formats file; a missing file means only built-in formats are usable.
func loadInstances(path string) []format.Instance {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Debug("No formats file", "path", path)
		return nil
	}
	instances, err := format.LoadInstances(path)
	exitOnError(err, "failed to load formats file")
	return instances
}

// resolveInstance picks the instance of file: the --format flag, else the first matching glob.
func resolveInstance(instances []format.Instance, file string) (format.Instance, error) {
	if formatName == "" {
		if file == "-" {
			return format.Instance{}, fmt.Errorf("standard input needs --format")
		}
		inst, ok := format.MatchFile(instances, file)
		if !ok {
			return format.Instance{}, fmt.Errorf("no format instance matches %s, use --format", filepath.Base(file))
		}
		return withAccount(inst)
	}
	if inst, ok := format.FindInstance(instances, formatName); ok {
		return withAccount(inst)
	}
	if _, ok := format.Lookup(formatName); !ok {
		return format.Instance{}, fmt.Errorf("unknown format %q (built-in: %v)", formatName, format.Names())
	}
	return withAccount(format.Instance{Name: formatName, Format: formatName})
}

// source opens file, or standard input for "-".
func source(file string) pipeline.Source {
	if file != "-" {
		return pipeline.FileSource(file)
	}
	data, err := io.ReadAll(os.Stdin)
	exitOnError(err, "failed to read standard input")
	return pipeline.BytesSource("stdin", data)
}

func withAccount(inst format.Instance) (format.Instance, error) {
	if account != "" {
		inst.Account = account
	}
	return inst, inst.Validate()
}

// existingKeys collects the identity keys of the ledger files and the import history for
// every metadata key used by the batch.
func existingKeys(pipelines map[string]*pipeline.Pipeline, repo *beancount.FileSystemRepository, history *db.ImportHistory) reconcile.KeySet {
	var metaKeys []string
	for _, p := range pipelines {
		if key := p.Format().Identity.Key(); !slices.Contains(metaKeys, key) {
			metaKeys = append(metaKeys, key)
		}
	}

	existing := reconcile.NewKeySet()
	for _, metaKey := range metaKeys {
		keys, err := repo.IdentityKeys(metaKey)
		exitOnError(err, "failed to read ledger identity keys")
		existing = existing.Union(keys)

		if history != nil {
			keys, err := history.IdentityKeys(metaKey)
			exitOnError(err, "failed to read import history")
			existing = existing.Union(keys)
		}
	}
	slog.Debug("Known identity keys", "count", existing.Len(), "meta_keys", metaKeys)
	return existing
}

func exitIfFailed(batch pipeline.BatchResult) {
	if failed := batch.Failed(); len(failed) > 0 {
		slog.Error("Some files were not imported", "failed", len(failed))
		os.Exit(1)
	}
}
