package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/classifier"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/inventory"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/ledger"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

// DefaultSecurityCategories are the asset category prefixes of tradable securities.
var DefaultSecurityCategories = []string{"Stocks", "Equity and Index Options"}

// Balance types that describe the start of a day; every other balance is an end-of-day
// balance and is asserted on the following day.
var openingBalanceTypes = map[string]bool{"OPBD": true, "PRCD": true, "OPAV": true}

// Options configure a Converter for one format instance.
type Options struct {
	// Account is the statement's own ledger account.
	Account string
	// IncomeSuspense routes unresolved inflows to the income placeholder.
	IncomeSuspense bool
	// SecurityCategories overrides DefaultSecurityCategories.
	SecurityCategories []string
}

// Converter converts classified records to ledger entries.
type Converter struct {
	mapper  *Mapper
	tracker *inventory.Tracker
	opts    Options
	logger  *slog.Logger
}

// NewConverter creates a new Converter. The tracker holds the positions of the file being converted.
func NewConverter(mapper *Mapper, tracker *inventory.Tracker, opts Options, logger *slog.Logger) *Converter {
	if mapper == nil {
		mapper = DefaultMapper()
	}
	if tracker == nil {
		tracker = inventory.NewTracker(inventory.Latest)
	}
	if opts.SecurityCategories == nil {
		opts.SecurityCategories = DefaultSecurityCategories
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Converter{mapper: mapper, tracker: tracker, opts: opts, logger: logger}
}

// Tracker returns the inventory tracker of the converter.
func (c *Converter) Tracker() *inventory.Tracker { return c.tracker }

// Convert builds the ledger entry for a classified record. A nil entry with a nil error
// means the record books nothing.
func (c *Converter) Convert(cl classifier.Classified) (ledger.Entry, error) {
	switch cl.Category {
	case classifier.CategoryBalanceAssertion:
		return c.convertBalance(cl), nil
	case classifier.CategoryTradeForex:
		return c.convertForex(cl)
	case classifier.CategoryTradeSecurity:
		if cl.Trade != nil && cl.Trade.Quantity.IsZero() {
			c.logger.Debug("skipping trade without quantity",
				"location", cl.Record.Location.String(), "symbol", cl.Trade.Symbol)
			return nil, nil
		}
		return c.convertSecurity(cl)
	default:
		return c.convertCash(cl)
	}
}

func (c *Converter) convertBalance(cl classifier.Classified) *ledger.Balance {
	date := cl.Date
	if !openingBalanceTypes[cl.Record.Get(record.FieldBalanceType)] {
		date = date.AddDate(0, 0, 1)
	}
	return &ledger.Balance{
		Date:     date,
		Account:  c.opts.Account,
		Amount:   cl.Amount,
		Metadata: ledger.Metadata{},
	}
}

// convertCash builds the two-leg shape plus a separate fee pair.
func (c *Converter) convertCash(cl classifier.Classified) (*ledger.Transaction, error) {
	txn := c.newTransaction(cl, cl.Narration)

	// For inflows the counter leg is a credit, for outflows a debit.
	counter := c.counterAccount(cl)
	txn.Postings = append(txn.Postings,
		ledger.NewPosting(c.opts.Account, cl.Amount),
		ledger.NewPosting(counter, cl.Amount.Neg()),
	)

	if !cl.Fee.IsZero() {
		txn.Postings = append(txn.Postings,
			ledger.NewPosting(c.opts.Account, cl.Fee.Abs().Neg()),
			ledger.NewPosting(c.mapper.ServiceFeeAccount(), cl.Fee.Abs()),
		)
	}

	if err := txn.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cl.Record.Location, err)
	}
	return txn, nil
}

func (c *Converter) counterAccount(cl classifier.Classified) string {
	if account := c.mapper.CategoryAccount(cl.Category); account != "" {
		return account
	}
	if account, ok := c.mapper.PayeeAccount(cl.Category, cl.Counterparty, cl.Narration); ok {
		return account
	}
	if c.opts.IncomeSuspense && cl.Amount.IsPositive() {
		return c.mapper.IncomePlaceholder()
	}
	return c.mapper.ExpensePlaceholder()
}

// convertForex books a currency exchange: the bought currency at the trade price, the
// sold currency, and the commission drawn from the same account. The commission pair is
// always written, in the sold currency when the statement reports none.
func (c *Converter) convertForex(cl classifier.Classified) (*ledger.Transaction, error) {
	t := cl.Trade
	bought, sold, ok := strings.Cut(t.Symbol, ".")
	if !ok || bought == "" || sold == "" {
		return nil, &record.MalformedRowError{
			Location: cl.Record.Location,
			Field:    "Symbol",
			Value:    t.Symbol,
			Err:      errors.New("want a currency pair like EUR.USD"),
		}
	}

	txn := c.newTransaction(cl, fmt.Sprintf("%s - %s @ %s", t.Quantity, t.Symbol, t.Price))
	price := amount.New(t.Price, sold)
	txn.Postings = append(txn.Postings,
		ledger.Posting{Account: c.opts.Account, Units: ptr(amount.New(t.Quantity, bought)), Price: &price},
		ledger.NewPosting(c.opts.Account, amount.New(t.Proceeds, sold)),
	)

	fee := t.BaseCommission.Abs()
	if fee.Currency == "" {
		fee = amount.New(decimal.Zero, sold)
	}
	fee = fee.Round()
	txn.Postings = append(txn.Postings,
		ledger.NewPosting(c.mapper.BrokerageFeeAccount(), fee),
		ledger.NewPosting(c.opts.Account, fee.Neg()),
	)

	if err := txn.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cl.Record.Location, err)
	}
	return txn, nil
}

// convertSecurity books a security trade against the inventory tracker.
func (c *Converter) convertSecurity(cl classifier.Classified) (*ledger.Transaction, error) {
	t := cl.Trade
	if !c.supported(t.AssetCategory) {
		return nil, &record.UnsupportedAssetCategoryError{Location: cl.Record.Location, Category: t.AssetCategory}
	}

	symbol := strings.ReplaceAll(t.Symbol, " ", "_")
	trade := inventory.Trade{
		Symbol:   symbol,
		Quantity: t.Quantity,
		Price:    t.Price,
		Currency: t.Currency,
		Date:     cl.Date,
	}
	if t.Options {
		trade.Multiplier = inventory.OptionsMultiplier
	}
	out := c.tracker.Apply(trade)
	c.logger.Debug("trade applied",
		"symbol", symbol, "action", out.Action.String(),
		"quantity", t.Quantity.String(), "position", out.After.Quantity.String())

	txn := c.newTransaction(cl, fmt.Sprintf("%s - %s @ %s", t.Quantity, symbol, t.Price))
	txn.Postings = append(txn.Postings,
		ledger.NewPosting(c.opts.Account, amount.New(t.Proceeds.Add(t.Commission), t.Currency)),
	)
	if !t.Commission.IsZero() {
		txn.Postings = append(txn.Postings,
			ledger.NewPosting(c.mapper.BrokerageFeeAccount(), amount.New(t.Commission.Neg(), t.Currency)),
		)
	}
	for _, leg := range out.Legs {
		txn.Postings = append(txn.Postings, ledger.Posting{
			Account: c.mapper.StockAccount(),
			Units:   ptr(amount.New(leg.Quantity, symbol)),
			Cost:    &ledger.Cost{Number: leg.Cost.Price, Currency: leg.Cost.Currency, Date: leg.Cost.Date},
			Price:   ptr(amount.New(leg.Price, t.Currency)),
		})
	}

	// The realized gain is whatever balances the transaction.
	if out.Realized || len(txn.Residual()) > 0 {
		txn.Postings = append(txn.Postings, ledger.Posting{Account: c.mapper.TradingGainsAccount()})
	}

	if err := txn.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cl.Record.Location, err)
	}
	return txn, nil
}

func (c *Converter) supported(category string) bool {
	for _, prefix := range c.opts.SecurityCategories {
		if strings.HasPrefix(category, prefix) {
			return true
		}
	}
	return false
}

func (c *Converter) newTransaction(cl classifier.Classified, narration string) *ledger.Transaction {
	meta := make(ledger.Metadata, len(cl.Metadata))
	for k, v := range cl.Metadata {
		meta[k] = v
	}
	flag := ledger.FlagOK
	if meta[classifier.MetaBalanceCheck] != "" {
		flag = ledger.FlagWarning
	}
	return &ledger.Transaction{
		Date:      cl.Date,
		Flag:      flag,
		Payee:     cl.Counterparty,
		Narration: narration,
		Metadata:  meta,
	}
}

func ptr(a amount.Amount) *amount.Amount { return &a }
