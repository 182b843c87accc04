// Package record defines the normalized statement record shared by every parser.
package record

import "fmt"

// Kind distinguishes transactional records from point-in-time balance records.
type Kind int

const (
	KindTransaction Kind = iota
	KindBalance
)

func (k Kind) String() string {
	switch k {
	case KindTransaction:
		return "transaction"
	case KindBalance:
		return "balance"
	default:
		return "unknown"
	}
}

// Location points at the source of a record.
type Location struct {
	File string
	Row  int
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Row)
}

// Record is one data row or node of a statement.
// Records are created once by a parser and never modified afterwards.
type Record struct {
	Kind    Kind
	Section string
	// Fields maps a column name to its value with whitespace collapsed.
	Fields map[string]string
	// Columns is the active schema, in source order.
	Columns []string
	// Raw is the literal row as read, used for content hashing.
	Raw      []string
	Location Location
}

// Get returns the value of a field, or "" if absent.
func (r Record) Get(name string) string {
	return r.Fields[name]
}

// Lookup returns the value of a field and whether the column exists.
func (r Record) Lookup(name string) (string, bool) {
	v, ok := r.Fields[name]
	return v, ok
}

// First returns the first non-empty value among the given fields.
func (r Record) First(names ...string) string {
	for _, name := range names {
		if v := r.Fields[name]; v != "" {
			return v
		}
	}
	return ""
}
