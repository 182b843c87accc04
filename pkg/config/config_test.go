package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFromEnvFile(t *testing.T) {
	for _, key := range []string{"LEDGER_ROOT", "IMPORT_DB_PATH", "FORMATS_FILE", "ACCOUNT_MAPPING_FILE", "COST_BASIS_METHOD", "IMPORT_WORKERS", "DEBUG"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	path := filepath.Join(t.TempDir(), ".env")
	content := "LEDGER_ROOT=/data/ledger\nIMPORT_WORKERS=8\nCOST_BASIS_METHOD=average\nDEBUG=true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Ledger.Root != "/data/ledger" {
		t.Errorf("Ledger.Root = %q", cfg.Ledger.Root)
	}
	if cfg.Import.Workers != 8 || cfg.Import.CostBasisMethod != "average" || !cfg.Debug {
		t.Errorf("Import = %+v, Debug = %v", cfg.Import, cfg.Debug)
	}
	if cfg.Import.FormatsFile != "config/formats.yaml" {
		t.Errorf("FormatsFile default = %q", cfg.Import.FormatsFile)
	}

	if err := cfg.Validate([]string{"ledger", "root"}); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	err = cfg.Validate([]string{"ledger", "dbPath"}, []string{"import", "accountMappingFile"})
	if err == nil || !strings.Contains(err.Error(), "ledger.dbPath") || !strings.Contains(err.Error(), "import.accountMappingFile") {
		t.Errorf("Validate() error = %v, want both missing keys", err)
	}
}

func TestLoadInvalidWorkers(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"not a number", "many"},
		{"zero", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("IMPORT_WORKERS", tt.value)
			if _, err := Load(); err == nil {
				t.Error("Load() error = nil, want invalid IMPORT_WORKERS")
			}
		})
	}
}
