// Package markup parses hierarchical statement documents (ISO 20022 camt.053 XML and OFX) into records.
//
// Every transaction node becomes a record of kind transaction with the credit/debit indicator folded into a
// signed amount; every balance node becomes a record of kind balance. Field names are the canonical ones
// from package record.
package markup

import (
	"io"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

// Dialect selects the document grammar.
type Dialect string

const (
	DialectCamt Dialect = "camt"
	DialectOFX  Dialect = "ofx"
)

// Options tune reference handling.
type Options struct {
	// PayrollCodes are bank transaction codes of payroll records; a payroll record without
	// reference gets the synthetic reference "SALA-<date>".
	PayrollCodes []string
	// MissingSentinels are reference values meaning "no reference".
	MissingSentinels []string
}

// DefaultMissingSentinels lists the placeholders banks put in empty reference elements.
var DefaultMissingSentinels = []string{"NOTPROVIDED", "NONREF"}

// Parser turns a markup document into records.
type Parser struct {
	dialect Dialect
	opts    Options
	logger  *slog.Logger
}

// New creates a Parser for the dialect. A nil logger uses slog.Default().
func New(dialect Dialect, opts Options, logger *slog.Logger) *Parser {
	if opts.MissingSentinels == nil {
		opts.MissingSentinels = DefaultMissingSentinels
	}
	if opts.PayrollCodes == nil {
		switch dialect {
		case DialectOFX:
			opts.PayrollCodes = []string{"DIRECTDEP"}
		default:
			opts.PayrollCodes = []string{"SALA"}
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{dialect: dialect, opts: opts, logger: logger}
}

// Records returns the records of the document read from r.
func (p *Parser) Records(r io.Reader, file string) iter.Seq2[record.Record, error] {
	switch p.dialect {
	case DialectOFX:
		return p.ofxRecords(r, file)
	default:
		return p.camtRecords(r, file)
	}
}

// cursor is the explicit row accumulator threaded through record construction.
type cursor struct {
	file  string
	index int
}

// emit builds the record at the cursor position and returns the advanced cursor.
func (c cursor) emit(kind record.Kind, columns []string, fields map[string]string) (record.Record, cursor) {
	raw := make([]string, len(columns))
	for i, name := range columns {
		raw[i] = fields[name]
	}
	rec := record.Record{
		Kind:     kind,
		Fields:   fields,
		Columns:  columns,
		Raw:      raw,
		Location: record.Location{File: c.file, Row: c.index},
	}
	return rec, cursor{file: c.file, index: c.index + 1}
}

var (
	transactionColumns = []string{
		record.FieldDate, record.FieldAmount, record.FieldCurrency, record.FieldReference,
		record.FieldCode, record.FieldCounterparty, record.FieldNarration, record.FieldFee, record.FieldFeeCurrency,
	}
	balanceColumns = []string{
		record.FieldDate, record.FieldAmount, record.FieldCurrency, record.FieldBalanceType,
	}
)

// resolveReference applies the reference rules: an explicit reference wins, payroll records
// synthesize one from their date, anything else is an error.
func (p *Parser) resolveReference(loc record.Location, fields map[string]string) error {
	ref := strings.TrimSpace(fields[record.FieldReference])
	if ref != "" && !slices.Contains(p.opts.MissingSentinels, strings.ToUpper(ref)) {
		fields[record.FieldReference] = ref
		return nil
	}
	if slices.Contains(p.opts.PayrollCodes, fields[record.FieldCode]) {
		fields[record.FieldReference] = "SALA-" + fields[record.FieldDate]
		return nil
	}
	return &record.MissingReferenceError{Location: loc, Date: fields[record.FieldDate]}
}

func collapse(v string) string {
	return strings.Join(strings.Fields(v), " ")
}
