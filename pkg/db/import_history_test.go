package db

import (
	"path/filepath"
	"testing"
)

func openHistory(t *testing.T) *ImportHistory {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewImportHistory(conn)
}

func TestRecordAndQueryImports(t *testing.T) {
	h := openHistory(t)

	records := []ImportRecord{
		{MetaKey: "import_id", IdentityKey: "REF123", Format: "camt053", SourceFile: "june.xml", EntryDate: "2024-06-05", LedgerFile: "2024/2024-06.beancount", BatchID: "b1"},
		{MetaKey: "import_id", IdentityKey: "SALA-2024-06-15", Format: "camt053", SourceFile: "june.xml", EntryDate: "2024-06-15", LedgerFile: "2024/2024-06.beancount", BatchID: "b1"},
		{MetaKey: "txn_id_ib", IdentityKey: "c0ffee", Format: "ib", SourceFile: "activity.csv", EntryDate: "2024-06-04", LedgerFile: "2024/2024-06.beancount", BatchID: "b2"},
	}
	if err := h.RecordImports(records); err != nil {
		t.Fatalf("RecordImports() error = %v", err)
	}
	// Re-recording the same key updates in place.
	again := records[0]
	again.SourceFile = "june-corrected.xml"
	if err := h.RecordImports([]ImportRecord{again}); err != nil {
		t.Fatalf("RecordImports() error = %v", err)
	}

	tests := []struct {
		name       string
		key        string
		wantFormat string
	}{
		{"reference", "REF123", "camt053"},
		{"synthesized", "SALA-2024-06-15", "camt053"},
		{"other meta key", "c0ffee", "ib"},
		{"unknown", "REF999", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.FindImports(tt.key)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantFormat == "" {
				if len(got) != 0 {
					t.Errorf("FindImports(%s) = %+v, want none", tt.key, got)
				}
				return
			}
			if len(got) != 1 || got[0].Format != tt.wantFormat {
				t.Errorf("FindImports(%s) = %+v, want one %s record", tt.key, got, tt.wantFormat)
			}
		})
	}

	recs, err := h.FindImports("REF123")
	if err != nil || len(recs) != 1 {
		t.Fatalf("FindImports() = %v, %v", recs, err)
	}
	if recs[0].SourceFile != "june-corrected.xml" || recs[0].LedgerFile != "2024/2024-06.beancount" {
		t.Errorf("record = %+v, want the updated source file", recs[0])
	}

	keys, err := h.IdentityKeys("import_id")
	if err != nil {
		t.Fatal(err)
	}
	if keys.Len() != 2 || !keys.Has("REF123") {
		t.Errorf("IdentityKeys() = %v", keys.Keys())
	}

	stats, err := h.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalEntries != 3 || stats.Batches != 2 || stats.ByFormat["camt053"] != 2 || !stats.LastImport.Valid {
		t.Errorf("GetStats() = %+v", stats)
	}

	n, err := h.Forget("REF123")
	if err != nil || n != 1 {
		t.Errorf("Forget() = %d, %v", n, err)
	}
	if recs, _ := h.FindImports("REF123"); len(recs) != 0 {
		t.Error("REF123 still imported after Forget()")
	}
}

func TestMetadata(t *testing.T) {
	h := openHistory(t)

	if v, err := h.GetMetadata("last_batch"); err != nil || v != "" {
		t.Errorf("GetMetadata() on empty store = %q, %v", v, err)
	}
	for _, v := range []string{"b1", "b2"} {
		if err := h.SetMetadata("last_batch", v); err != nil {
			t.Fatal(err)
		}
	}
	if v, _ := h.GetMetadata("last_batch"); v != "b2" {
		t.Errorf("GetMetadata() = %q, want b2", v)
	}
}
