// Package reconcile derives stable identity keys for statement records and filters out
// records already present in the ledger.
package reconcile

import (
	"crypto/md5"
	"encoding/hex"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/classifier"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/ledger"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

// DefaultMetaKey is the metadata key carrying the identity key of an imported entry.
const DefaultMetaKey = "import_id"

// DefaultSynthesized maps the categories that occur at most once per day to their key prefix.
var DefaultSynthesized = map[classifier.Category]string{
	classifier.CategorySalary: "SALA",
}

// Options control identity derivation for one format.
type Options struct {
	MetaKey string `yaml:"meta_key"`
	// ReferenceFields hold an explicit bank reference, tried in order.
	ReferenceFields []string `yaml:"reference_fields"`
	// Sentinels are reference values meaning "missing".
	Sentinels []string `yaml:"sentinels"`
	// Synthesized overrides DefaultSynthesized.
	Synthesized map[classifier.Category]string `yaml:"-"`
}

// Key returns the metadata key, defaulting to DefaultMetaKey.
func (o Options) Key() string {
	if o.MetaKey == "" {
		return DefaultMetaKey
	}
	return o.MetaKey
}

// Identify returns the identity key of a record: its explicit reference, else the md5 of
// the literal row joined by commas, else a category+date key for recurring categories.
// It returns "" when none applies.
func Identify(rec record.Record, category classifier.Category, date time.Time, opts Options) string {
	sentinels := opts.Sentinels
	if sentinels == nil {
		sentinels = classifier.DefaultSentinels
	}
	for _, field := range opts.ReferenceFields {
		v := strings.TrimSpace(rec.Get(field))
		if v != "" && !slices.Contains(sentinels, strings.ToUpper(v)) {
			return v
		}
	}
	if len(rec.Raw) > 0 {
		return HashRow(rec.Raw)
	}
	synthesized := opts.Synthesized
	if synthesized == nil {
		synthesized = DefaultSynthesized
	}
	if prefix, ok := synthesized[category]; ok && !date.IsZero() {
		return prefix + "-" + date.Format(record.DateLayout)
	}
	return ""
}

// HashRow returns the hex md5 digest of the fields joined by commas.
func HashRow(fields []string) string {
	sum := md5.Sum([]byte(strings.Join(fields, ",")))
	return hex.EncodeToString(sum[:])
}

// KeySet is a set of identity keys. It is safe for concurrent reads.
type KeySet map[string]struct{}

// NewKeySet creates a KeySet holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

func (s KeySet) Add(key string) {
	if key != "" {
		s[key] = struct{}{}
	}
}

func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

func (s KeySet) Len() int { return len(s) }

// Keys returns the keys in sorted order.
func (s KeySet) Keys() []string {
	return slices.Sorted(maps.Keys(s))
}

// Union returns a new set with the keys of s and other.
func (s KeySet) Union(other KeySet) KeySet {
	out := maps.Clone(s)
	if out == nil {
		out = KeySet{}
	}
	maps.Copy(out, other)
	return out
}

// Candidate is a generated entry waiting for reconciliation.
type Candidate struct {
	Key    string
	Entry  ledger.Entry
	Source record.Location
}

// Reconcile returns the candidates whose key is neither in existing nor repeated earlier
// in candidates, in their original order.
func Reconcile(candidates []Candidate, existing KeySet) []Candidate {
	seen := KeySet{}
	var pending []Candidate
	for _, c := range candidates {
		if existing.Has(c.Key) || seen.Has(c.Key) {
			continue
		}
		seen.Add(c.Key)
		pending = append(pending, c)
	}
	return pending
}

// Merge combines the pending sets of several files; the first file holding a key wins.
func Merge(sets ...[]Candidate) []Candidate {
	var all []Candidate
	for _, set := range sets {
		all = append(all, set...)
	}
	return Reconcile(all, nil)
}

// Summary logs the outcome of a reconciliation.
func Summary(logger *slog.Logger, file string, generated, pending int) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("reconciled", "file", file, "generated", generated, "pending", pending, "known", generated-pending)
}
