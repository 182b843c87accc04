// Package inventory tracks per-symbol positions and decides how each trade affects them.
package inventory

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OptionsMultiplier is the number of shares one options contract controls.
var OptionsMultiplier = decimal.NewFromInt(100)

// divisionPrecision bounds the digits of averaged prices.
const divisionPrecision = 8

// Position is the running state of one symbol.
type Position struct {
	Symbol   string
	Quantity decimal.Decimal
	// Price is the acquisition unit price; zero while the position is flat.
	Price    decimal.Decimal
	Currency string
	Date     time.Time
}

// Trade is one trade record applied to the tracker.
type Trade struct {
	Symbol   string
	Quantity decimal.Decimal
	Price    decimal.Decimal
	Currency string
	Date     time.Time
	// Multiplier scales the quoted price; zero means 1.
	Multiplier decimal.Decimal
}

// Cost is an acquisition price attached to a leg.
type Cost struct {
	Price    decimal.Decimal
	Currency string
	Date     time.Time
}

// Leg is one inventory posting produced by a trade.
type Leg struct {
	Quantity decimal.Decimal
	Cost     Cost
	// Price is the effective unit price of the trade.
	Price decimal.Decimal
	// Matched reports whether Cost was matched against the existing position
	// rather than established by this trade.
	Matched bool
}

// Action classifies the effect of a trade on the position.
type Action int

const (
	ActionNone Action = iota
	ActionOpen
	ActionIncrease
	ActionReduce
	ActionClose
	ActionFlip
)

func (a Action) String() string {
	switch a {
	case ActionOpen:
		return "open"
	case ActionIncrease:
		return "increase"
	case ActionReduce:
		return "reduce"
	case ActionClose:
		return "close"
	case ActionFlip:
		return "flip"
	default:
		return "none"
	}
}

// Outcome describes what Apply did.
type Outcome struct {
	Action Action
	Legs   []Leg
	// Realized is true when the transaction needs a realized gain posting.
	Realized bool
	// Price is the effective unit price after the multiplier.
	Price  decimal.Decimal
	Before Position
	After  Position
}

// Tracker owns the positions of one statement file. It is not safe for concurrent use.
type Tracker struct {
	method    CostBasisMethod
	positions map[string]*Position
}

// NewTracker creates an empty Tracker.
func NewTracker(method CostBasisMethod) *Tracker {
	return &Tracker{method: method, positions: make(map[string]*Position)}
}

// Method returns the cost basis method of the tracker.
func (t *Tracker) Method() CostBasisMethod { return t.method }

// Apply updates the position of tr.Symbol and returns the legs to post.
// The stored quantity is always the previous quantity plus tr.Quantity.
func (t *Tracker) Apply(tr Trade) Outcome {
	price := tr.Price
	if !tr.Multiplier.IsZero() {
		price = price.Mul(tr.Multiplier)
	}

	pos, ok := t.positions[tr.Symbol]
	if !ok {
		pos = &Position{Symbol: tr.Symbol, Quantity: decimal.Zero, Currency: tr.Currency}
		t.positions[tr.Symbol] = pos
	}
	out := Outcome{Price: price, Before: *pos}

	q, delta := pos.Quantity, tr.Quantity
	established := Cost{Price: price, Currency: tr.Currency, Date: tr.Date}
	held := Cost{Price: pos.Price, Currency: pos.Currency, Date: pos.Date}

	switch {
	case delta.IsZero():
		out.Action = ActionNone
		out.Realized = price.IsZero()

	case q.IsZero():
		out.Action = ActionOpen
		out.Legs = []Leg{{Quantity: delta, Cost: established, Price: price}}
		pos.Price, pos.Currency, pos.Date = price, tr.Currency, tr.Date

	case q.Sign() == delta.Sign():
		out.Action = ActionIncrease
		out.Legs = []Leg{{Quantity: delta, Cost: established, Price: price}}
		if t.method == Average {
			total := pos.Price.Mul(q.Abs()).Add(price.Mul(delta.Abs()))
			pos.Price = total.DivRound(q.Abs().Add(delta.Abs()), divisionPrecision)
		} else {
			pos.Price = price
		}
		pos.Date = tr.Date

	case delta.Abs().LessThanOrEqual(q.Abs()):
		out.Action = ActionReduce
		if delta.Abs().Equal(q.Abs()) {
			out.Action = ActionClose
		}
		out.Legs = []Leg{{Quantity: delta, Cost: held, Price: price, Matched: true}}
		out.Realized = price.IsZero() || !price.Equal(pos.Price)

	default:
		out.Action = ActionFlip
		out.Legs = []Leg{
			{Quantity: q.Neg(), Cost: held, Price: price, Matched: true},
			{Quantity: q.Add(delta), Cost: established, Price: price},
		}
		out.Realized = true
		pos.Price, pos.Currency, pos.Date = price, tr.Currency, tr.Date
	}

	pos.Quantity = q.Add(delta)
	if pos.Quantity.IsZero() {
		pos.Price = decimal.Zero
		pos.Date = time.Time{}
	}
	out.After = *pos
	return out
}

// Position returns the current position of symbol.
func (t *Tracker) Position(symbol string) (Position, bool) {
	pos, ok := t.positions[symbol]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}

// Positions returns a snapshot of all positions sorted by symbol, flat ones included.
func (t *Tracker) Positions() []Position {
	out := make([]Position, 0, len(t.positions))
	for _, pos := range t.positions {
		out = append(out, *pos)
	}
	slices.SortFunc(out, func(a, b Position) int { return strings.Compare(a.Symbol, b.Symbol) })
	return out
}
