// Package jsonstmt reads statements exported as JSON documents into records.
package jsonstmt

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

var numericToken = regexp.MustCompile(`^\d+$`)

// Field maps one record field to candidate JSON paths, evaluated against each item.
type Field struct {
	Name string
	// Paths are tried in order; the first one yielding a non-empty value wins.
	Paths []string
	// MinItems treats arrays with fewer elements as absent.
	MinItems int
	// Sum adds the numbers of an array value instead of joining them.
	Sum bool
	// DropNumericTokens removes purely numeric words from the value.
	DropNumericTokens bool
	// Skip rejects candidate values matching the pattern.
	Skip *regexp.Regexp
}

// Direction folds a credit/debit indicator into the sign of the amount field.
type Direction struct {
	Path   string
	Credit string
}

// Schema describes where the items of a document live and how to read them.
type Schema struct {
	Items     string
	Fields    []Field
	Amount    string
	Direction *Direction
}

// Parser reads documents described by a Schema.
type Parser struct {
	schema  Schema
	columns []string
	logger  *slog.Logger
}

// New creates a Parser. A nil logger uses slog.Default().
func New(schema Schema, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	columns := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		columns[i] = f.Name
	}
	return &Parser{schema: schema, columns: columns, logger: logger}
}

// Records returns one record per item of the document read from r.
func (p *Parser) Records(r io.Reader, file string) iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		dec := json.NewDecoder(r)
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			yield(record.Record{}, &record.MalformedRowError{
				Location: record.Location{File: file},
				Err:      fmt.Errorf("decode json: %w", err),
			})
			return
		}

		items, err := p.items(doc)
		if err != nil {
			yield(record.Record{}, &record.MalformedRowError{
				Location: record.Location{File: file},
				Field:    p.schema.Items,
				Err:      err,
			})
			return
		}

		for i, item := range items {
			rec, err := p.record(item, record.Location{File: file, Row: i + 1})
			if !yield(rec, err) {
				return
			}
		}
	}
}

// items resolves the item array. A path ending in [*] must name an existing array, so a
// document without the container is malformed rather than empty.
func (p *Parser) items(doc any) ([]any, error) {
	path := p.schema.Items
	if container, ok := strings.CutSuffix(path, "[*]"); ok {
		path = container
	}
	found, err := jsonpath.Get(path, doc)
	if err != nil {
		return nil, fmt.Errorf("locate items: %w", err)
	}
	items, ok := found.([]any)
	if !ok {
		return nil, fmt.Errorf("items are %T, not an array", found)
	}
	return items, nil
}

func (p *Parser) record(item any, loc record.Location) (record.Record, error) {
	fields := make(map[string]string, len(p.schema.Fields))
	raw := make([]string, len(p.schema.Fields))
	for i, f := range p.schema.Fields {
		v, err := p.value(f, item)
		if err != nil {
			return record.Record{}, &record.MalformedRowError{Location: loc, Field: f.Name, Err: err}
		}
		fields[f.Name] = v
		raw[i] = v
	}
	rec := record.Record{
		Kind:     record.KindTransaction,
		Fields:   fields,
		Columns:  p.columns,
		Raw:      raw,
		Location: loc,
	}
	if p.schema.Amount == "" || p.schema.Direction == nil {
		return rec, nil
	}

	value := fields[p.schema.Amount]
	d, err := amount.ParseNumber(value, amount.Plain)
	if err != nil {
		return rec, &record.MalformedRowError{Location: loc, Field: p.schema.Amount, Value: value, Err: err}
	}
	indicator, _ := lookup(p.schema.Direction.Path, item)
	d = d.Abs()
	if !strings.EqualFold(indicator, p.schema.Direction.Credit) {
		d = d.Neg()
	}
	fields[p.schema.Amount] = amount.Canonical(d)
	return rec, nil
}

func (p *Parser) value(f Field, item any) (string, error) {
	for _, path := range f.Paths {
		found, err := jsonpath.Get(path, item)
		if err != nil {
			continue
		}
		if list, ok := found.([]any); ok && (len(list) == 0 || len(list) < f.MinItems) {
			continue
		}
		var s string
		if f.Sum {
			sum, err := sumValues(found)
			if err != nil {
				return "", fmt.Errorf("sum %s: %w", path, err)
			}
			s = amount.Canonical(sum)
		} else {
			s = stringify(found)
		}
		if f.DropNumericTokens {
			s = dropNumericTokens(s)
		}
		if s == "" || (f.Skip != nil && f.Skip.MatchString(s)) {
			continue
		}
		return s, nil
	}
	return "", nil
}

func lookup(path string, item any) (string, bool) {
	found, err := jsonpath.Get(path, item)
	if err != nil {
		return "", false
	}
	return stringify(found), true
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.Join(strings.Fields(x), " ")
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			if s := stringify(e); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}

func sumValues(v any) (decimal.Decimal, error) {
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	sum := decimal.Zero
	for _, e := range list {
		s := stringify(e)
		if s == "" {
			continue
		}
		d, err := amount.ParseNumber(s, amount.Plain)
		if err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(d)
	}
	return sum, nil
}

func dropNumericTokens(s string) string {
	words := strings.Fields(s)
	kept := words[:0]
	for _, w := range words {
		if numericToken.MatchString(w) {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}
