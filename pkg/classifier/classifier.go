// Package classifier assigns a semantic category and counterparty to statement records
// and normalizes them into Classified values.
package classifier

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

// Metadata keys attached by the classifier.
const (
	MetaBalance      = "balance"
	MetaBalanceCheck = "balance_check"
)

// Columns names the record fields the classifier reads. Each entry lists candidate
// field names; the first non-empty one is used.
type Columns struct {
	Date         []string      `yaml:"date"`
	DateLayouts  []string      `yaml:"date_layouts"`
	Amount       []string      `yaml:"amount"`
	Currency     []string      `yaml:"currency"`
	Locale       amount.Locale `yaml:"locale"`
	NegateAmount bool          `yaml:"negate_amount"`
	Fee          []string      `yaml:"fee"`
	FeeCurrency  []string      `yaml:"fee_currency"`
	Narration    []string      `yaml:"narration"`
	Counterparty []string      `yaml:"counterparty"`
	Reference    []string      `yaml:"reference"`
	Code         []string      `yaml:"code"`
	// Balance is the running balance column.
	Balance []string `yaml:"balance"`
	// Metadata copies fields into transaction metadata, keyed by metadata name.
	Metadata map[string]string `yaml:"metadata"`
	Trade    *TradeColumns     `yaml:"trade"`
}

// TradeColumns names the fields of a trade record.
type TradeColumns struct {
	AssetCategory string `yaml:"asset_category"`
	Symbol        string `yaml:"symbol"`
	Quantity      string `yaml:"quantity"`
	Price         string `yaml:"price"`
	Proceeds      string `yaml:"proceeds"`
	Commission    string `yaml:"commission"`
	// OptionsPrefix marks asset categories quoted per share of a 100-share contract.
	OptionsPrefix string `yaml:"options_prefix"`
}

// Trade holds the details of a trade record.
type Trade struct {
	AssetCategory string
	Symbol        string
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	Proceeds      decimal.Decimal
	Commission    decimal.Decimal
	Currency      string
	Options       bool
	// BaseCommission is the commission reported in the account base currency ("Comm in EUR").
	BaseCommission amount.Amount
}

// Classified is a categorized, normalized record.
type Classified struct {
	Category     Category
	Rule         string
	Date         time.Time
	Amount       amount.Amount
	Fee          amount.Amount
	Counterparty string
	Narration    string
	Trade        *Trade
	Metadata     map[string]string
	Record       record.Record
}

// Context is the slowly varying per-file state threaded through classification.
type Context struct {
	Section      string
	PriorBalance *amount.Amount
}

// Classifier classifies the records of one format.
type Classifier struct {
	cfg      Config
	rules    []Rule
	currency string
	logger   *slog.Logger
}

// New creates a Classifier. currency is used when the record carries none.
func New(cfg Config, currency string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Columns.DateLayouts) == 0 {
		cfg.Columns.DateLayouts = []string{record.DateLayout}
	}
	return &Classifier{cfg: cfg, rules: cfg.Rules(), currency: currency, logger: logger}
}

// Config returns the classification table.
func (c *Classifier) Config() Config { return c.cfg }

// Classify maps a record to a Classified value and returns the context for the next record.
func (c *Classifier) Classify(rec record.Record, ctx Context) (Classified, Context, error) {
	ctx.Section = rec.Section
	cols := c.cfg.Columns

	date, err := c.date(rec)
	if err != nil {
		return Classified{}, ctx, err
	}
	currency := firstOr(rec, cols.Currency, record.FieldCurrency)
	if currency == "" {
		currency = c.currency
	}

	out := Classified{
		Date:     date,
		Metadata: map[string]string{},
		Record:   rec,
	}

	if rec.Kind == record.KindBalance {
		raw := firstOr(rec, cols.Amount, record.FieldAmount)
		n, err := amount.ParseNumber(raw, cols.Locale)
		if err != nil {
			return Classified{}, ctx, &record.MalformedRowError{Location: rec.Location, Field: record.FieldAmount, Value: raw, Err: err}
		}
		out.Category = CategoryBalanceAssertion
		out.Rule = "balance"
		out.Amount = amount.New(n, currency)
		ctx.PriorBalance = &out.Amount
		return out, ctx, nil
	}

	n := amount.ParseNumberOrZero(firstOr(rec, cols.Amount, record.FieldAmount), cols.Locale)
	if cols.NegateAmount {
		n = n.Neg()
	}
	out.Amount = amount.New(n, currency)

	if fee := amount.ParseNumberOrZero(firstOr(rec, cols.Fee, record.FieldFee), cols.Locale); !fee.IsZero() {
		feeCurrency := firstOr(rec, cols.FeeCurrency, record.FieldFeeCurrency)
		if feeCurrency == "" {
			feeCurrency = currency
		}
		out.Fee = amount.New(fee.Abs(), feeCurrency)
	}

	in := Input{
		Section:      rec.Section,
		Code:         firstOr(rec, cols.Code, record.FieldCode),
		Narration:    firstOr(rec, cols.Narration, record.FieldNarration),
		Counterparty: firstOr(rec, cols.Counterparty, record.FieldCounterparty),
		Reference:    firstOr(rec, cols.Reference, record.FieldReference),
	}
	if cols.Trade != nil {
		in.AssetCategory = rec.Get(cols.Trade.AssetCategory)
	}
	res, rule := Evaluate(c.rules, in)
	out.Category = res.Category
	out.Rule = rule
	out.Counterparty = res.Counterparty
	out.Narration = res.Narration
	if res.Category == CategoryUnclassified {
		c.logger.Debug("record unclassified", "location", rec.Location.String(), "section", rec.Section)
	}

	if out.Category.IsTrade() {
		trade, err := c.trade(rec, currency)
		if err != nil {
			return Classified{}, ctx, err
		}
		out.Trade = trade
	}

	for key, field := range cols.Metadata {
		if v := rec.Get(field); v != "" {
			out.Metadata[key] = v
		}
	}
	ctx = c.checkBalance(rec, &out, ctx)
	return out, ctx, nil
}

// checkBalance attaches the running balance and flags it when it disagrees with the
// prior balance moved by this record.
func (c *Classifier) checkBalance(rec record.Record, out *Classified, ctx Context) Context {
	raw := first(rec, c.cfg.Columns.Balance)
	if raw == "" {
		return ctx
	}
	n, err := amount.ParseNumber(raw, c.cfg.Columns.Locale)
	if err != nil {
		c.logger.Debug("unparseable running balance", "location", rec.Location.String(), "value", raw)
		return ctx
	}
	balance := amount.New(n, out.Amount.Currency)
	out.Metadata[MetaBalance] = balance.String()

	if ctx.PriorBalance != nil && ctx.PriorBalance.Currency == balance.Currency {
		want := ctx.PriorBalance.Number.Add(out.Amount.Number)
		if out.Fee.Currency == balance.Currency {
			want = want.Sub(out.Fee.Number)
		}
		if !want.Equal(balance.Number) {
			out.Metadata[MetaBalanceCheck] = "mismatch"
			c.logger.Debug("running balance mismatch",
				"location", rec.Location.String(), "expected", want.String(), "balance", balance.Number.String())
		}
	}
	ctx.PriorBalance = &balance
	return ctx
}

var baseCommission = regexp.MustCompile(`^Comm in ([A-Z]{3})$`)

func (c *Classifier) trade(rec record.Record, currency string) (*Trade, error) {
	tc := c.cfg.Columns.Trade
	if tc == nil {
		return nil, &record.MalformedRowError{Location: rec.Location, Err: fmt.Errorf("format has no trade columns")}
	}
	t := &Trade{
		AssetCategory: rec.Get(tc.AssetCategory),
		Symbol:        rec.Get(tc.Symbol),
		Currency:      currency,
		Proceeds:      amount.ParseNumberOrZero(rec.Get(tc.Proceeds), amount.English),
		Commission:    amount.ParseNumberOrZero(rec.Get(tc.Commission), amount.English),
	}
	t.Options = tc.OptionsPrefix != "" && strings.HasPrefix(t.AssetCategory, tc.OptionsPrefix)

	var err error
	if t.Quantity, err = strict(rec, tc.Quantity); err != nil {
		return nil, err
	}
	if t.Price, err = strict(rec, tc.Price); err != nil {
		return nil, err
	}

	for _, col := range rec.Columns {
		if m := baseCommission.FindStringSubmatch(col); m != nil {
			n := amount.ParseNumberOrZero(rec.Get(col), amount.English)
			t.BaseCommission = amount.New(n, m[1])
			break
		}
	}
	return t, nil
}

func strict(rec record.Record, field string) (decimal.Decimal, error) {
	v := rec.Get(field)
	d, err := amount.ParseNumber(v, amount.English)
	if err != nil {
		return decimal.Zero, &record.MalformedRowError{Location: rec.Location, Field: field, Value: v, Err: err}
	}
	return d, nil
}

func (c *Classifier) date(rec record.Record) (time.Time, error) {
	raw := firstOr(rec, c.cfg.Columns.Date, record.FieldDate)
	for _, layout := range c.cfg.Columns.DateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	// Some exports append a time to the configured date layouts.
	if i := strings.IndexAny(raw, " T"); i > 0 {
		for _, layout := range c.cfg.Columns.DateLayouts {
			if t, err := time.Parse(layout, raw[:i]); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, &record.MalformedRowError{
		Location: rec.Location,
		Field:    "date",
		Value:    raw,
		Err:      fmt.Errorf("no layout of %v matches", c.cfg.Columns.DateLayouts),
	}
}

func first(rec record.Record, names []string) string {
	return rec.First(names...)
}

// firstOr reads the candidate fields, falling back to a canonical field name.
func firstOr(rec record.Record, names []string, canonical string) string {
	if len(names) == 0 {
		return rec.Get(canonical)
	}
	return rec.First(names...)
}
