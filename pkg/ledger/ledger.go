// Package ledger defines the double-entry entries produced by an import.
package ledger

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
)

const (
	FlagOK      = "*"
	FlagWarning = "!"
)

// Metadata holds key-value pairs attached to an entry.
type Metadata map[string]string

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Entry is a dated ledger directive.
type Entry interface {
	EntryDate() time.Time
	Meta() Metadata
}

// Cost is the acquisition price of a posting that moves an inventory position.
type Cost struct {
	Number   decimal.Decimal
	Currency string
	Date     time.Time
}

// Posting is one leg of a transaction. A nil Units means the amount is omitted
// and balances the remainder.
type Posting struct {
	Account string
	Units   *amount.Amount
	Cost    *Cost
	Price   *amount.Amount
}

// NewPosting returns a posting with an explicit amount.
func NewPosting(account string, units amount.Amount) Posting {
	return Posting{Account: account, Units: &units}
}

// Weight returns the amount the posting contributes to the balance of its transaction.
func (p Posting) Weight() (amount.Amount, bool) {
	if p.Units == nil {
		return amount.Amount{}, false
	}
	switch {
	case p.Cost != nil:
		return amount.New(p.Units.Number.Mul(p.Cost.Number), p.Cost.Currency), true
	case p.Price != nil:
		return amount.New(p.Units.Number.Mul(p.Price.Number), p.Price.Currency), true
	default:
		return *p.Units, true
	}
}

// Transaction is a balanced set of postings.
type Transaction struct {
	Date      time.Time
	Flag      string
	Payee     string
	Narration string
	Tags      []string
	Metadata  Metadata
	Postings  []Posting
}

func (t *Transaction) EntryDate() time.Time { return t.Date }
func (t *Transaction) Meta() Metadata       { return t.Metadata }

// Balance asserts the balance of an account at the start of a date.
type Balance struct {
	Date     time.Time
	Account  string
	Amount   amount.Amount
	Metadata Metadata
}

func (b *Balance) EntryDate() time.Time { return b.Date }
func (b *Balance) Meta() Metadata       { return b.Metadata }

// Weights returns the per-currency sum of the explicit posting weights.
func (t *Transaction) Weights() map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, p := range t.Postings {
		w, ok := p.Weight()
		if !ok {
			continue
		}
		sums[w.Currency] = sums[w.Currency].Add(w.Number)
	}
	return sums
}

// Tolerances returns, per currency, half a unit of the least precise explicit
// amount written in that currency.
func (t *Transaction) Tolerances() map[string]decimal.Decimal {
	half := decimal.New(5, -1)
	tol := make(map[string]decimal.Decimal)
	for _, p := range t.Postings {
		if p.Units == nil || p.Units.Number.Exponent() >= 0 {
			continue
		}
		v := half.Mul(decimal.New(1, p.Units.Number.Exponent()))
		if cur, ok := tol[p.Units.Currency]; !ok || v.GreaterThan(cur) {
			tol[p.Units.Currency] = v
		}
	}
	return tol
}

// Residual returns the currencies whose weights do not sum to zero within tolerance.
func (t *Transaction) Residual() map[string]decimal.Decimal {
	tol := t.Tolerances()
	out := make(map[string]decimal.Decimal)
	for cur, sum := range t.Weights() {
		if sum.Abs().GreaterThan(tol[cur]) {
			out[cur] = sum
		}
	}
	return out
}

// UnbalancedError reports a transaction whose postings do not sum to zero.
type UnbalancedError struct {
	Currency string
	Residual decimal.Decimal
}

func (e *UnbalancedError) Error() string {
	return fmt.Sprintf("transaction does not balance: residual %s %s", e.Residual, e.Currency)
}

// Validate checks the structural invariants of a transaction: at least two postings,
// at most one omitted amount and, without an omitted amount, a zero residual per currency.
func (t *Transaction) Validate() error {
	if len(t.Postings) < 2 {
		return fmt.Errorf("transaction has %d postings, need at least 2", len(t.Postings))
	}
	omitted := 0
	for _, p := range t.Postings {
		if p.Account == "" {
			return fmt.Errorf("posting without account")
		}
		if p.Units == nil {
			omitted++
		}
	}
	if omitted > 1 {
		return fmt.Errorf("transaction has %d postings without amount, at most 1 allowed", omitted)
	}
	if omitted == 1 {
		return nil
	}
	residual := t.Residual()
	if keys := slices.Sorted(maps.Keys(residual)); len(keys) > 0 {
		return &UnbalancedError{Currency: keys[0], Residual: residual[keys[0]]}
	}
	return nil
}
