package beancount

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/ledger"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/pathutil"
)

func entry(date time.Time, key string) *ledger.Transaction {
	chf := amount.New(decimal.RequireFromString("-12.50"), "CHF")
	return &ledger.Transaction{
		Date:      date,
		Flag:      ledger.FlagOK,
		Narration: `Coffee "to go"`,
		Metadata:  ledger.Metadata{"import_id": key},
		Postings: []ledger.Posting{
			ledger.NewPosting("Assets:Bank", chf),
			ledger.NewPosting("Expenses:TBD", chf.Neg()),
		},
	}
}

func TestAppendEntryAndIdentityKeys(t *testing.T) {
	root := t.TempDir()
	repo := NewFileSystemRepository(pathutil.New(pathutil.Config{LedgerRoot: root}))

	june := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	july := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.AppendEntry(entry(june, "REF1"), "bank.csv"); err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}
	if err := repo.AppendEntry(entry(july, `odd "key"`)); err != nil {
		t.Fatalf("AppendEntry() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "2024", "2024-06.beancount"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "; bank.csv\n2024-06-03 * ") {
		t.Errorf("June file missing comment and entry:\n%s", content)
	}
	if !repo.MonthFileExists("2024-07") || repo.MonthFileExists("2024-08") {
		t.Error("MonthFileExists() disagrees with appended months")
	}

	// A hand-written file in another year and a non-monthly file.
	manual := "2023-12-31 * \"Rent\"\n  import_id: \"MANUAL-7\"\n  Assets:Bank  -1 CHF\n  Expenses:Rent\n"
	if err := os.MkdirAll(filepath.Join(root, "2023"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "2023", "2023-12.beancount"), []byte(manual), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "2023", "main.beancount"), []byte("  import_id: \"IGNORED\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	keys, err := repo.IdentityKeys("import_id")
	if err != nil {
		t.Fatalf("IdentityKeys() error = %v", err)
	}
	for _, want := range []string{"REF1", `odd "key"`, "MANUAL-7"} {
		if !keys.Has(want) {
			t.Errorf("IdentityKeys() missing %q (got %v)", want, keys.Keys())
		}
	}
	if keys.Has("IGNORED") || keys.Len() != 3 {
		t.Errorf("IdentityKeys() = %v", keys.Keys())
	}

	other, err := repo.IdentityKeys("txn_id_ib")
	if err != nil || other.Len() != 0 {
		t.Errorf("IdentityKeys(txn_id_ib) = %v, %v", other.Keys(), err)
	}
}
