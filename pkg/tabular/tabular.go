// Package tabular parses delimited statement files into records.
//
// Two layouts are supported. Preamble files start with a fixed number of metadata lines, followed by one
// header row and data rows up to a blank row. Sectioned files (Interactive Brokers activity statements)
// carry the section name in the first column, and a row whose second column is the header sentinel
// redefines the schema for the rows that follow.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

// Mode selects how the schema of a file is discovered.
type Mode int

const (
	ModePreamble Mode = iota
	ModeSectioned
)

// DefaultHeaderSentinel marks schema rows in sectioned files.
const DefaultHeaderSentinel = "Header"

// Layout describes the physical shape of a delimited statement.
type Layout struct {
	Mode      Mode
	Delimiter rune
	// SkipLines is the number of physical lines before the header row (preamble mode).
	SkipLines int
	// Columns names the fields by position for legacy exports whose header is unusable.
	// When set, no header row is read after SkipLines.
	Columns []string
	// HeaderSentinel is the second-column value of schema rows (sectioned mode).
	HeaderSentinel   string
	TrimLeadingSpace bool
}

// Parser turns a delimited stream into records.
type Parser struct {
	layout Layout
	logger *slog.Logger
}

// New creates a Parser. A nil logger uses slog.Default().
func New(layout Layout, logger *slog.Logger) *Parser {
	if layout.Delimiter == 0 {
		layout.Delimiter = ','
	}
	if layout.HeaderSentinel == "" {
		layout.HeaderSentinel = DefaultHeaderSentinel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{layout: layout, logger: logger}
}

// Records returns a lazy sequence of records read from r.
// The sequence stops after the first error; it cannot be restarted since r is consumed.
func (p *Parser) Records(r io.Reader, file string) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		s := p.newScanner(r, file)
		switch p.layout.Mode {
		case ModeSectioned:
			p.sectioned(s, yield)
		default:
			p.preamble(s, yield)
		}
	}
}

// scanner reads CSV records and tracks physical line numbers so that blank lines,
// which encoding/csv skips silently, can still end a statement.
type scanner struct {
	reader   *csv.Reader
	file     string
	line     int // first line of the current record
	lastLine int // last line of the previous record
}

func (p *Parser) newScanner(r io.Reader, file string) *scanner {
	reader := csv.NewReader(r)
	reader.Comma = p.layout.Delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = p.layout.TrimLeadingSpace
	reader.ReuseRecord = false
	return &scanner{reader: reader, file: file}
}

// next returns the next record and whether a blank line preceded it.
func (s *scanner) next() (row []string, afterBlank bool, err error) {
	row, err = s.reader.Read()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			return nil, false, &record.MalformedRowError{
				Location: record.Location{File: s.file, Row: parseErr.Line},
				Err:      parseErr.Err,
			}
		}
		return nil, false, err
	}
	first, _ := s.reader.FieldPos(0)
	last, _ := s.reader.FieldPos(len(row) - 1)
	afterBlank = s.lastLine > 0 && first > s.lastLine+1
	s.line, s.lastLine = first, last
	return row, afterBlank, nil
}

func (s *scanner) location() record.Location {
	return record.Location{File: s.file, Row: s.line}
}

func (p *Parser) preamble(s *scanner, yield func(record.Record, error) bool) {
	var header []string
	for header == nil {
		row, _, err := s.next()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(record.Record{}, fmt.Errorf("reading header: %w", err))
			return
		}
		if s.line <= p.layout.SkipLines {
			continue
		}
		if len(p.layout.Columns) > 0 {
			// The row just read is the first data row.
			header = p.layout.Columns
			if !p.emit(s, header, "", row, yield) {
				return
			}
			break
		}
		header = cleanHeader(row)
	}

	for {
		row, afterBlank, err := s.next()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(record.Record{}, err)
			return
		}
		if afterBlank || isBlank(row) || len(row) == 1 {
			p.logger.Debug("End of statement", "file", s.file, "row", s.line)
			return
		}
		if !p.emit(s, header, "", row, yield) {
			return
		}
	}
}

func (p *Parser) sectioned(s *scanner, yield func(record.Record, error) bool) {
	var (
		section string
		header  []string
	)
	for {
		row, afterBlank, err := s.next()
		if err == io.EOF {
			return
		}
		if err != nil {
			yield(record.Record{}, err)
			return
		}
		if afterBlank || isBlank(row) {
			p.logger.Debug("End of statement", "file", s.file, "row", s.line)
			return
		}
		if len(row) < 2 {
			p.logger.Debug("Skipping short row", "file", s.file, "row", s.line)
			continue
		}
		if strings.TrimSpace(row[1]) == p.layout.HeaderSentinel {
			section = strings.TrimSpace(row[0])
			header = cleanHeader(row[1:])
			continue
		}
		if header == nil {
			p.logger.Debug("Skipping row before first header", "file", s.file, "row", s.line)
			continue
		}
		if strings.TrimSpace(row[0]) != section {
			// A data row for another section without its own header row.
			p.logger.Debug("Skipping row outside current section", "file", s.file, "row", s.line, "section", row[0])
			continue
		}
		if !p.emitSectioned(s, section, header, row, yield) {
			return
		}
	}
}

func (p *Parser) emitSectioned(s *scanner, section string, header, row []string, yield func(record.Record, error) bool) bool {
	values := row[1:]
	if len(values) < len(header) {
		yield(record.Record{}, &record.IncompleteRowError{
			Location: s.location(), Section: section, Got: len(values), Want: len(header),
		})
		return false
	}
	return yield(newRecord(s, section, header, values, row), nil)
}

func (p *Parser) emit(s *scanner, header []string, section string, row []string, yield func(record.Record, error) bool) bool {
	if len(row) < len(header) {
		yield(record.Record{}, &record.IncompleteRowError{
			Location: s.location(), Got: len(row), Want: len(header),
		})
		return false
	}
	return yield(newRecord(s, section, header, row, row), nil)
}

func newRecord(s *scanner, section string, header, values, raw []string) record.Record {
	fields := make(map[string]string, len(header))
	for i, name := range header {
		fields[name] = collapse(values[i])
	}
	return record.Record{
		Kind:     record.KindTransaction,
		Section:  section,
		Fields:   fields,
		Columns:  header,
		Raw:      append([]string(nil), raw...),
		Location: s.location(),
	}
}

func cleanHeader(row []string) []string {
	header := make([]string, len(row))
	for i, name := range row {
		header[i] = strings.TrimSpace(name)
	}
	return header
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// collapse trims a value and reduces internal whitespace runs to one space.
func collapse(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
