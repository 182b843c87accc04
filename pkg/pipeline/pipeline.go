// Package pipeline runs statement files through parsing, classification, entry generation
// and reconciliation.
package pipeline

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/classifier"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/converter"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/format"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/inventory"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/ledger"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/reconcile"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/textenc"
)

// Source is one statement file.
type Source struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// FileSource reads the file at path.
func FileSource(path string) Source {
	return Source{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesSource serves data under name.
func BytesSource(name string, data []byte) Source {
	return Source{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Info is the provenance of an import result.
type Info struct {
	Format   string
	Filename string
	// MetaKey is the metadata key holding the identity key.
	MetaKey string
}

// ImportResult is a pending ledger entry.
type ImportResult struct {
	Date   time.Time
	Entry  ledger.Entry
	Info   Info
	Key    string
	Source record.Location
}

// Config configures a Pipeline.
type Config struct {
	Format format.Descriptor
	// Account is the statement's own ledger account.
	Account   string
	Mapper    *converter.Mapper
	CostBasis inventory.CostBasisMethod
	Logger    *slog.Logger
}

// Pipeline imports the files of one format instance. Every Run starts from fresh per-file
// state, so one Pipeline may run several files concurrently.
type Pipeline struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mapper == nil {
		cfg.Mapper = converter.DefaultMapper()
	}
	return &Pipeline{cfg: cfg, logger: logger.With("format", cfg.Format.Name)}
}

// Format returns the descriptor the pipeline runs.
func (p *Pipeline) Format() format.Descriptor { return p.cfg.Format }

// Run imports src and returns the entries whose identity key is not in existing, in file order.
// existing is only read. On error no results are returned.
func (p *Pipeline) Run(src Source, existing reconcile.KeySet) ([]ImportResult, error) {
	candidates, err := p.generate(src)
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", src.Name, err)
	}

	pending := reconcile.Reconcile(candidates, existing)
	reconcile.Summary(p.logger, src.Name, len(candidates), len(pending))

	results := make([]ImportResult, len(pending))
	for i, c := range pending {
		results[i] = ImportResult{
			Date:   c.Entry.EntryDate(),
			Entry:  c.Entry,
			Info:   Info{Format: p.cfg.Format.Name, Filename: src.Name, MetaKey: p.cfg.Format.Identity.Key()},
			Key:    c.Key,
			Source: c.Source,
		}
	}
	return results, nil
}

// generate turns every event of src into a keyed candidate entry.
func (p *Pipeline) generate(src Source) ([]reconcile.Candidate, error) {
	d := p.cfg.Format

	f, err := src.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := textenc.NewReader(f, d.Encoding)
	if err != nil {
		return nil, err
	}
	parser, err := d.NewParser(p.logger)
	if err != nil {
		return nil, err
	}

	cls := classifier.New(d.Classifier, d.Currency, p.logger)
	conv := converter.NewConverter(p.cfg.Mapper, inventory.NewTracker(p.cfg.CostBasis), converter.Options{
		Account:            p.cfg.Account,
		IncomeSuspense:     d.IncomeSuspense,
		SecurityCategories: d.SecurityCategories,
	}, p.logger)
	metaKey := d.Identity.Key()

	var (
		candidates []reconcile.Candidate
		state      classifier.Context
		excluded   int
	)
	for rec, err := range parser.Records(r, src.Name) {
		if err != nil {
			return nil, err
		}
		if !d.KnownSection(rec) {
			p.logger.Debug("skipping record of unknown section", "location", rec.Location.String(), "section", rec.Section)
			continue
		}
		if rule, ok := d.Excluded(rec); ok {
			p.logger.Debug("excluded record", "location", rec.Location.String(), "rule", rule)
			excluded++
			continue
		}

		var cl classifier.Classified
		cl, state, err = cls.Classify(rec, state)
		if err != nil {
			return nil, err
		}
		entry, err := conv.Convert(cl)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			continue
		}

		key := reconcile.Identify(rec, cl.Category, cl.Date, d.Identity)
		if key == "" {
			return nil, &record.MissingReferenceError{Location: rec.Location, Date: cl.Date.Format(record.DateLayout)}
		}
		entry.Meta()[metaKey] = key
		candidates = append(candidates, reconcile.Candidate{Key: key, Entry: entry, Source: rec.Location})
	}

	for _, pos := range conv.Tracker().Positions() {
		p.logger.Debug("open position", "file", src.Name, "symbol", pos.Symbol, "quantity", pos.Quantity.String())
	}
	p.logger.Debug("file processed",
		"file", src.Name, "entries", len(candidates), "excluded", excluded,
		"cost_basis", conv.Tracker().Method().String())
	return candidates, nil
}
