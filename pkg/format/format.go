// Package format describes the statement formats the importer understands.
//
// A Descriptor bundles everything that differs between banks: which parser reads the file and how,
// the classification table, the rows to exclude, and how identity keys are derived. All formats share
// one pipeline; adding a bank means adding a Descriptor, not a new code path.
package format

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/classifier"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/jsonstmt"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/markup"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/reconcile"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/tabular"
)

// Kind selects the parser family of a format.
type Kind string

const (
	KindTabular Kind = "tabular"
	KindMarkup  Kind = "markup"
	KindJSON    Kind = "json"
)

// Parser produces the records of one statement file.
type Parser interface {
	Records(r io.Reader, file string) iter.Seq2[record.Record, error]
}

// ExcludeRule drops records that are not events, such as subtotal or pending rows.
// Every condition that is set must hold for the rule to match.
type ExcludeRule struct {
	Name string
	// Section restricts the rule to records of one section.
	Section string
	Field   string
	// Prefix matches values starting with it.
	Prefix string
	// Contains matches values containing it, ignoring case.
	Contains string
	// NotEquals matches values different from it.
	NotEquals string
	// NotPattern matches values the pattern does not match.
	NotPattern *regexp.Regexp
}

// Matches reports whether rec should be excluded.
func (e ExcludeRule) Matches(rec record.Record) bool {
	if e.Section != "" && rec.Section != e.Section {
		return false
	}
	v := rec.Get(e.Field)
	if e.Prefix != "" && !strings.HasPrefix(v, e.Prefix) {
		return false
	}
	if e.Contains != "" && !strings.Contains(strings.ToLower(v), strings.ToLower(e.Contains)) {
		return false
	}
	if e.NotEquals != "" && v == e.NotEquals {
		return false
	}
	if e.NotPattern != nil && e.NotPattern.MatchString(v) {
		return false
	}
	return true
}

// Descriptor is the complete description of one statement format.
type Descriptor struct {
	Name        string
	Description string
	Kind        Kind
	// Encoding is the default text encoding of the files.
	Encoding string
	// Currency is the default currency when rows carry none.
	Currency string

	Layout  tabular.Layout
	Dialect markup.Dialect
	Markup  markup.Options
	Schema  jsonstmt.Schema

	Classifier classifier.Config
	Exclude    []ExcludeRule
	// KnownSectionsOnly drops records of sections the classifier has no entry for.
	KnownSectionsOnly bool
	Identity          reconcile.Options

	// IncomeSuspense routes unresolved inflows to the income placeholder.
	IncomeSuspense     bool
	SecurityCategories []string
}

// NewParser builds the parser of the descriptor.
func (d Descriptor) NewParser(logger *slog.Logger) (Parser, error) {
	switch d.Kind {
	case KindTabular:
		return tabular.New(d.Layout, logger), nil
	case KindMarkup:
		return markup.New(d.Dialect, d.Markup, logger), nil
	case KindJSON:
		return jsonstmt.New(d.Schema, logger), nil
	default:
		return nil, fmt.Errorf("format %s: unknown parser kind %q", d.Name, d.Kind)
	}
}

// Excluded returns the name of the first exclude rule matching rec.
func (d Descriptor) Excluded(rec record.Record) (string, bool) {
	for _, e := range d.Exclude {
		if e.Matches(rec) {
			return e.Name, true
		}
	}
	return "", false
}

// KnownSection reports whether the classifier has an entry for the record's section.
func (d Descriptor) KnownSection(rec record.Record) bool {
	if !d.KnownSectionsOnly {
		return true
	}
	_, ok := d.Classifier.Sections[rec.Section]
	return ok
}

var builtins = map[string]Descriptor{}

func register(d Descriptor) {
	if _, dup := builtins[d.Name]; dup {
		panic("format: duplicate descriptor " + d.Name)
	}
	builtins[d.Name] = d
}

// Lookup returns the built-in descriptor named name.
func Lookup(name string) (Descriptor, bool) {
	d, ok := builtins[name]
	return d, ok
}

// Names lists the built-in formats in sorted order.
func Names() []string {
	return slices.Sorted(maps.Keys(builtins))
}
