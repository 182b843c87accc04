package cmd

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/format"
)

// formatsCmd represents the formats command.
var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List statement formats",
	Long: `List the built-in statement formats, the format instances of the formats file
and the category accounts of the account mapping.

Example:
  bean-import formats
  FORMATS_FILE=config/formats.yaml bean-import formats`,
	Run: runFormats,
}

func runFormats(cmd *cobra.Command, args []string) {
	cfg, _ := loadConfig()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "=== Built-in Formats ===")
	fmt.Fprintln(w, "NAME\tKIND\tCURRENCY\tDESCRIPTION")
	for _, name := range format.Names() {
		d, _ := format.Lookup(name)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", d.Name, d.Kind, d.Currency, d.Description)
	}

	instances := loadInstances(cfg.Import.FormatsFile)
	fmt.Fprintf(w, "\n=== Instances (%s) ===\n", cfg.Import.FormatsFile)
	if len(instances) == 0 {
		fmt.Fprintln(w, "(none)")
	} else {
		fmt.Fprintln(w, "NAME\tFORMAT\tACCOUNT\tMATCH\tMANUAL FIXES")
		for _, inst := range instances {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", inst.Name, inst.Format, inst.Account, inst.Match, inst.ManualFixes)
		}
	}

	mapper := loadMapper(cfg.Import.AccountMappingFile)
	mappings := mapper.GetAllMappings()
	categories := slices.Sorted(maps.Keys(mappings))
	fmt.Fprintln(w, "\n=== Category Accounts ===")
	for _, category := range categories {
		fmt.Fprintf(w, "%s\t%s\n", category, mappings[category])
	}
	fmt.Fprintf(w, "(placeholders)\t%s / %s\n", mapper.ExpensePlaceholder(), mapper.IncomePlaceholder())

	w.Flush()
}
