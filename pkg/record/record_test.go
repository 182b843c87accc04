package record

import (
	"errors"
	"fmt"
	"testing"
)

func TestRecordFirst(t *testing.T) {
	r := Record{Fields: map[string]string{"Note": "", "Payee": "Migros", "Executor": "Jan"}}

	if got := r.First("Note", "Payee", "Executor"); got != "Migros" {
		t.Errorf("First() = %q, expected %q", got, "Migros")
	}
	if got := r.First("Missing"); got != "" {
		t.Errorf("First() = %q, expected empty", got)
	}
	if _, ok := r.Lookup("Note"); !ok {
		t.Error("Lookup(Note) should report an existing empty column")
	}
}

func TestErrorKinds(t *testing.T) {
	loc := Location{File: "stmt.csv", Row: 7}
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"malformed", &MalformedRowError{Location: loc, Field: "Date", Value: "x", Err: errors.New("bad")}, ErrMalformedRow},
		{"incomplete", &IncompleteRowError{Location: loc, Got: 2, Want: 5}, ErrIncompleteRow},
		{"missing reference", &MissingReferenceError{Location: loc, Date: "2024-06-15"}, ErrMissingReference},
		{"asset category", &UnsupportedAssetCategoryError{Location: loc, Category: "Bonds"}, ErrUnsupportedAssetCategory},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("file failed: %w", tt.err)
			if !errors.Is(wrapped, tt.target) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.target)
			}
		})
	}

	var incomplete *IncompleteRowError
	if !errors.As(fmt.Errorf("x: %w", tests[1].err), &incomplete) || incomplete.Location.Row != 7 {
		t.Error("errors.As should recover the row of an IncompleteRowError")
	}
}
