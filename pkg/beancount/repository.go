// Package beancount stores ledger entries in monthly Beancount files.
package beancount

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/ledger"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/pathutil"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/reconcile"
)

// Repository defines the interface for Beancount file operations.
type Repository interface {
	// AppendEntry appends an entry to the file of its month
	AppendEntry(entry ledger.Entry, comment ...string) error

	// AppendTransaction appends rendered text to a monthly file
	AppendTransaction(yearMonth, transaction string, comment ...string) error

	// MonthFileExists checks if a monthly file exists
	MonthFileExists(yearMonth string) bool

	// GetMonthFilesInYear gets all monthly files in a year
	GetMonthFilesInYear(year string) ([]string, error)

	// EnsureMonthFile ensures a monthly file exists with header
	EnsureMonthFile(yearMonth string) error

	// IdentityKeys collects the identity keys stored under metaKey in all monthly files
	IdentityKeys(metaKey string) (reconcile.KeySet, error)
}

// FileSystemRepository is a file system implementation of Repository.
type FileSystemRepository struct {
	pathResolver *pathutil.PathResolver
}

// NewFileSystemRepository creates a new FileSystemRepository.
func NewFileSystemRepository(pathResolver *pathutil.PathResolver) *FileSystemRepository {
	return &FileSystemRepository{
		pathResolver: pathResolver,
	}
}

// AppendEntry renders entry and appends it to the file of its month.
func (r *FileSystemRepository) AppendEntry(entry ledger.Entry, comment ...string) error {
	return r.AppendTransaction(pathutil.MonthKey(entry.EntryDate()), ledger.Format(entry), comment...)
}

// AppendTransaction appends a transaction to a monthly file.
// It creates the file if it doesn't exist.
func (r *FileSystemRepository) AppendTransaction(yearMonth, transaction string, comment ...string) error {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return fmt.Errorf("failed to get month file path: %w", err)
	}

	// Ensure file exists with header
	if err := r.EnsureMonthFile(yearMonth); err != nil {
		return fmt.Errorf("failed to ensure month file: %w", err)
	}

	// Prepare content to append
	var content string
	if len(comment) > 0 && comment[0] != "" {
		content += fmt.Sprintf("; %s\n", comment[0])
	}
	content += transaction
	if len(transaction) > 0 && transaction[len(transaction)-1] != '\n' {
		content += "\n"
	}
	content += "\n" // Add blank line after transaction

	// Append to file
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file for appending: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return fmt.Errorf("failed to write to file: %w", err)
	}

	return nil
}

// MonthFileExists checks if a monthly file exists.
func (r *FileSystemRepository) MonthFileExists(yearMonth string) bool {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return false
	}

	return r.pathResolver.FileExists(filePath)
}

// GetMonthFilesInYear gets all monthly files in a year.
// Returns a slice of year-month strings (e.g., ["2024-01", "2024-02"]).
func (r *FileSystemRepository) GetMonthFilesInYear(year string) ([]string, error) {
	yearDir := r.pathResolver.GetYearDir(year)
	if !r.pathResolver.FileExists(yearDir) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(yearDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read year directory: %w", err)
	}

	var monthFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if filepath.Ext(name) == ".beancount" {
			// Remove .beancount extension to get YYYY-MM
			monthKey := name[:len(name)-len(".beancount")]
			monthFiles = append(monthFiles, monthKey)
		}
	}

	return monthFiles, nil
}

// EnsureMonthFile ensures a monthly file exists with header.
// If the file already exists, this is a no-op.
func (r *FileSystemRepository) EnsureMonthFile(yearMonth string) error {
	filePath, err := r.pathResolver.GetMonthFilePath(yearMonth)
	if err != nil {
		return fmt.Errorf("failed to get month file path: %w", err)
	}

	if r.pathResolver.FileExists(filePath) {
		return nil
	}

	// Ensure parent directory exists
	if err := r.pathResolver.EnsureParentDir(filePath); err != nil {
		return fmt.Errorf("failed to ensure parent directory: %w", err)
	}

	// Create file with header
	header := r.generateFileHeader(yearMonth)
	if err := os.WriteFile(filePath, []byte(header), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// generateFileHeader generates a header comment for a monthly file.
func (r *FileSystemRepository) generateFileHeader(yearMonth string) string {
	now := time.Now().Format(time.RFC3339)
	return fmt.Sprintf("; Beancount file for %s\n; Generated at %s\n\n", yearMonth, now)
}

// IdentityKeys scans every monthly file for `metaKey: "value"` metadata lines, so entries
// written by hand or by other importers are honored as well.
func (r *FileSystemRepository) IdentityKeys(metaKey string) (reconcile.KeySet, error) {
	pattern := regexp.MustCompile(`^\s+` + regexp.QuoteMeta(metaKey) + `:\s*"((?:[^"\\]|\\.)*)"`)
	keys := reconcile.NewKeySet()

	years, err := r.pathResolver.GetYears()
	if err != nil {
		return nil, err
	}
	for _, year := range years {
		months, err := r.GetMonthFilesInYear(year)
		if err != nil {
			return nil, err
		}
		for _, month := range months {
			filePath, err := r.pathResolver.GetMonthFilePath(month)
			if err != nil {
				// Not one of ours.
				continue
			}
			if err := scanKeys(filePath, pattern, keys); err != nil {
				return nil, err
			}
		}
	}
	return keys, nil
}

func scanKeys(filePath string, pattern *regexp.Regexp, keys reconcile.KeySet) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filePath, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if m := pattern.FindStringSubmatch(scanner.Text()); m != nil {
			keys.Add(unquote(m[1]))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return nil
}

func unquote(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		out = append(out, s[i])
	}
	return string(out)
}
