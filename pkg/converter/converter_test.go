package converter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/statement-importer/pkg/amount"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/classifier"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/inventory"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/ledger"
	"github.com/shunichi-ikebuchi/statement-importer/pkg/record"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func amt(n, cur string) amount.Amount { return amount.New(d(n), cur) }

var day = time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

func cash(category classifier.Category, n, cur string) classifier.Classified {
	return classifier.Classified{
		Category:  category,
		Date:      day,
		Amount:    amt(n, cur),
		Narration: "test",
		Metadata:  map[string]string{},
		Record:    record.Record{Location: record.Location{File: "s.csv", Row: 1}},
	}
}

func stockTrade(qty, price, proceeds, comm string) classifier.Classified {
	return classifier.Classified{
		Category: classifier.CategoryTradeSecurity,
		Date:     day,
		Metadata: map[string]string{},
		Trade: &classifier.Trade{
			AssetCategory: "Stocks",
			Symbol:        "AAPL",
			Quantity:      d(qty),
			Price:         d(price),
			Proceeds:      d(proceeds),
			Commission:    d(comm),
			Currency:      "USD",
		},
	}
}

func convert(t *testing.T, c *Converter, cl classifier.Classified) *ledger.Transaction {
	t.Helper()
	e, err := c.Convert(cl)
	if err != nil {
		t.Fatalf("Convert() error = %v", err)
	}
	txn, ok := e.(*ledger.Transaction)
	if !ok {
		t.Fatalf("Convert() = %T, want *ledger.Transaction", e)
	}
	return txn
}

func accounts(txn *ledger.Transaction) []string {
	var out []string
	for _, p := range txn.Postings {
		out = append(out, p.Account)
	}
	return out
}

func TestConvertCashCategories(t *testing.T) {
	tests := []struct {
		category classifier.Category
		want     string
	}{
		{classifier.CategorySalary, "Income:Salary"},
		{classifier.CategoryATMWithdrawal, "Expenses:Cash"},
		{classifier.CategoryDividend, "Income:Dividends"},
		{classifier.CategoryWithholdingTax, "Expenses:Tax:Withholding"},
		{classifier.CategoryInterest, "Expenses:Fees:BrokerageInterest"},
		{classifier.CategoryFee, "Expenses:Fees:Brokerage"},
		{classifier.CategoryCardPurchase, "Expenses:TBD"},
		{classifier.CategoryUnclassified, "Expenses:TBD"},
	}
	c := NewConverter(nil, nil, Options{Account: "Assets:Bank"}, nil)
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			txn := convert(t, c, cash(tt.category, "-12.50", "CHF"))
			if len(txn.Postings) != 2 {
				t.Fatalf("got %d postings, want 2", len(txn.Postings))
			}
			if txn.Postings[0].Account != "Assets:Bank" || !txn.Postings[0].Units.Equal(amt("-12.50", "CHF")) {
				t.Errorf("own leg = %s %s", txn.Postings[0].Account, txn.Postings[0].Units)
			}
			if txn.Postings[1].Account != tt.want || !txn.Postings[1].Units.Equal(amt("12.50", "CHF")) {
				t.Errorf("counter leg = %s %s, want %s 12.50 CHF", txn.Postings[1].Account, txn.Postings[1].Units, tt.want)
			}
		})
	}
}

func TestConvertFeePair(t *testing.T) {
	c := NewConverter(nil, nil, Options{Account: "Assets:Wise"}, nil)
	cl := cash(classifier.CategoryTransfer, "-100", "EUR")
	cl.Fee = amt("1.20", "EUR")
	txn := convert(t, c, cl)

	want := []string{"Assets:Wise", "Expenses:TBD", "Assets:Wise", "Expenses:Financial:Fees"}
	if got := accounts(txn); len(got) != 4 || got[2] != want[2] || got[3] != want[3] {
		t.Fatalf("accounts = %v, want %v", got, want)
	}
	if !txn.Postings[2].Units.Equal(amt("-1.20", "EUR")) || !txn.Postings[3].Units.Equal(amt("1.20", "EUR")) {
		t.Errorf("fee pair = %s / %s", txn.Postings[2].Units, txn.Postings[3].Units)
	}
	if !txn.Postings[0].Units.Equal(amt("-100", "EUR")) {
		t.Errorf("principal = %s, want fee kept out of it", txn.Postings[0].Units)
	}
}

func TestConvertCounterAccountResolution(t *testing.T) {
	cfg := AccountMappingConfig{Payees: []PayeeMapping{
		{Match: "migros", Account: "Expenses:Groceries"},
		{Match: "acme", Account: "Income:Consulting", Category: "transfer"},
	}}
	m, err := NewMapperFromConfig(cfg)
	if err != nil {
		t.Fatalf("NewMapperFromConfig() error = %v", err)
	}
	c := NewConverter(m, nil, Options{Account: "Assets:Bank", IncomeSuspense: true}, nil)

	tests := []struct {
		name         string
		category     classifier.Category
		counterparty string
		amount       string
		want         string
	}{
		{"payee rule", classifier.CategoryCardPurchase, "MIGROS Zuerich", "-20", "Expenses:Groceries"},
		{"category beats payee", classifier.CategorySalary, "ACME AG", "5000", "Income:Salary"},
		{"payee rule restricted by category", classifier.CategoryTransfer, "ACME AG", "300", "Income:Consulting"},
		{"inflow to income suspense", classifier.CategoryTransfer, "Someone", "40", "Income:TBD"},
		{"outflow to expense suspense", classifier.CategoryTransfer, "Someone", "-40", "Expenses:TBD"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl := cash(tt.category, tt.amount, "CHF")
			cl.Counterparty = tt.counterparty
			txn := convert(t, c, cl)
			if got := txn.Postings[1].Account; got != tt.want {
				t.Errorf("counter account = %s, want %s", got, tt.want)
			}
			if txn.Payee != tt.counterparty {
				t.Errorf("Payee = %q, want %q", txn.Payee, tt.counterparty)
			}
		})
	}
}

func TestConvertForex(t *testing.T) {
	c := NewConverter(nil, nil, Options{Account: "Assets:IB"}, nil)
	cl := classifier.Classified{
		Category: classifier.CategoryTradeForex,
		Date:     day,
		Metadata: map[string]string{},
		Trade: &classifier.Trade{
			AssetCategory:  "Forex",
			Symbol:         "EUR.USD",
			Quantity:       d("10000"),
			Price:          d("1.0950"),
			Proceeds:       d("-10950.00"),
			Currency:       "USD",
			BaseCommission: amt("-2", "EUR"),
		},
	}
	txn := convert(t, c, cl)
	if len(txn.Postings) != 4 {
		t.Fatalf("got %d postings, want 4", len(txn.Postings))
	}
	first := txn.Postings[0]
	if !first.Units.Equal(amt("10000", "EUR")) || first.Price == nil || !first.Price.Equal(amt("1.0950", "USD")) {
		t.Errorf("bought leg = %s @ %v", first.Units, first.Price)
	}
	if txn.Postings[2].Account != "Expenses:Fees:Brokerage" || !txn.Postings[2].Units.Equal(amt("2", "EUR")) {
		t.Errorf("fee leg = %s %s", txn.Postings[2].Account, txn.Postings[2].Units)
	}
	if txn.Postings[3].Account != "Assets:IB" || !txn.Postings[3].Units.Equal(amt("-2", "EUR")) {
		t.Errorf("fee funding leg = %s %s", txn.Postings[3].Account, txn.Postings[3].Units)
	}
	if r := txn.Residual(); len(r) != 0 {
		t.Errorf("Residual() = %v, want balanced", r)
	}
	if txn.Narration != "10000 - EUR.USD @ 1.095" {
		t.Errorf("Narration = %q", txn.Narration)
	}
}

func TestConvertSecurityFlip(t *testing.T) {
	tracker := inventory.NewTracker(inventory.Latest)
	c := NewConverter(nil, tracker, Options{Account: "Assets:IB"}, nil)

	buy := convert(t, c, stockTrade("10", "100", "-1000", "-1"))
	if got := accounts(buy); len(got) != 3 {
		t.Errorf("buy accounts = %v, want cash, fee, stock", got)
	}

	sell := convert(t, c, stockTrade("-15", "110", "1650", "-1"))
	var stockLegs []ledger.Posting
	gain := false
	for _, p := range sell.Postings {
		switch p.Account {
		case "Assets:Stock":
			stockLegs = append(stockLegs, p)
		case "Income:TradingProfit":
			gain = p.Units == nil
		}
	}
	if len(stockLegs) != 2 {
		t.Fatalf("got %d stock legs, want 2", len(stockLegs))
	}
	if !stockLegs[0].Units.Equal(amt("-10", "AAPL")) || !stockLegs[0].Cost.Number.Equal(d("100")) {
		t.Errorf("closing leg = %s {%s}", stockLegs[0].Units, stockLegs[0].Cost.Number)
	}
	if !stockLegs[1].Units.Equal(amt("-5", "AAPL")) || !stockLegs[1].Cost.Number.Equal(d("110")) {
		t.Errorf("opening leg = %s {%s}", stockLegs[1].Units, stockLegs[1].Cost.Number)
	}
	if !gain {
		t.Error("missing realized gain posting without amount")
	}
	if !sell.Weights()["USD"].Equal(d("100")) {
		t.Errorf("USD residual before the gain leg = %s, want 100", sell.Weights()["USD"])
	}

	pos, _ := tracker.Position("AAPL")
	if !pos.Quantity.Equal(d("-5")) || !pos.Price.Equal(d("110")) {
		t.Errorf("position = %s @ %s, want -5 @ 110", pos.Quantity, pos.Price)
	}
}

func TestConvertOptionsSymbol(t *testing.T) {
	c := NewConverter(nil, nil, Options{Account: "Assets:IB"}, nil)
	cl := stockTrade("1", "2.5", "-250", "-0.7")
	cl.Trade.AssetCategory = "Equity and Index Options"
	cl.Trade.Symbol = "SPY 240119C00470000"
	cl.Trade.Options = true
	txn := convert(t, c, cl)
	leg := txn.Postings[2]
	if leg.Units.Currency != "SPY_240119C00470000" || !leg.Cost.Number.Equal(d("250")) {
		t.Errorf("options leg = %s {%s}", leg.Units, leg.Cost.Number)
	}
}

func TestConvertUnsupportedAssetCategory(t *testing.T) {
	c := NewConverter(nil, nil, Options{Account: "Assets:IB"}, nil)
	cl := stockTrade("1", "100", "-100", "0")
	cl.Trade.AssetCategory = "Bonds"
	_, err := c.Convert(cl)
	if !errors.Is(err, record.ErrUnsupportedAssetCategory) {
		t.Errorf("error = %v, want unsupported asset category", err)
	}
}

func TestBalanceInvariant(t *testing.T) {
	c := NewConverter(nil, nil, Options{Account: "Assets:IB"}, nil)
	inputs := []classifier.Classified{
		cash(classifier.CategoryDividend, "12.34", "USD"),
		cash(classifier.CategoryTransfer, "-0.01", "CHF"),
		stockTrade("10", "100", "-1000", "-1"),
		stockTrade("5", "120", "-600", "-1"),
		stockTrade("-4", "90", "360", "-1"),
		stockTrade("-20", "130", "2600", "-1.25"),
		stockTrade("9", "0", "0", "0"),
	}
	for i, cl := range inputs {
		e, err := c.Convert(cl)
		if err != nil {
			t.Fatalf("input %d: Convert() error = %v", i, err)
		}
		txn := e.(*ledger.Transaction)
		if err := txn.Validate(); err != nil {
			t.Errorf("input %d: Validate() = %v", i, err)
		}
	}
}

func TestConvertBalance(t *testing.T) {
	c := NewConverter(nil, nil, Options{Account: "Assets:Bank"}, nil)
	tests := []struct {
		balanceType string
		want        string
	}{
		{"OPBD", "2024-06-03"},
		{"CLBD", "2024-06-04"},
		{"LEDGERBAL", "2024-06-04"},
	}
	for _, tt := range tests {
		t.Run(tt.balanceType, func(t *testing.T) {
			cl := cash(classifier.CategoryBalanceAssertion, "5912.30", "CHF")
			cl.Record.Fields = map[string]string{record.FieldBalanceType: tt.balanceType}
			e, err := c.Convert(cl)
			if err != nil {
				t.Fatalf("Convert() error = %v", err)
			}
			b, ok := e.(*ledger.Balance)
			if !ok {
				t.Fatalf("Convert() = %T, want *ledger.Balance", e)
			}
			if b.Date.Format("2006-01-02") != tt.want || b.Account != "Assets:Bank" {
				t.Errorf("balance = %s %s", b.Date.Format("2006-01-02"), b.Account)
			}
		})
	}
}

func TestNewMapper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "accounts.yaml")
	yaml := `placeholders:
  expense: Expenses:Uncategorized
categories:
  salary: Income:Job
payees:
  - match: Swisscom
    account: Expenses:Phone
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := NewMapper(path)
	if err != nil {
		t.Fatalf("NewMapper() error = %v", err)
	}
	if got := m.CategoryAccount(classifier.CategorySalary); got != "Income:Job" {
		t.Errorf("salary account = %s, want Income:Job", got)
	}
	if got := m.CategoryAccount(classifier.CategoryDividend); got != "Income:Dividends" {
		t.Errorf("dividend account = %s, want default", got)
	}
	if got := m.ExpensePlaceholder(); got != "Expenses:Uncategorized" {
		t.Errorf("ExpensePlaceholder() = %s", got)
	}
	if got, ok := m.PayeeAccount(classifier.CategoryTransfer, "", "SWISSCOM invoice"); !ok || got != "Expenses:Phone" {
		t.Errorf("PayeeAccount() = %s %v", got, ok)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("categories:\n  lottery: Income:Luck\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewMapper(bad); err == nil {
		t.Error("NewMapper() with an unknown category succeeded, want error")
	}
}

func TestConvertForexCommission(t *testing.T) {
	tests := []struct {
		name       string
		commission amount.Amount
		want       amount.Amount
	}{
		{"missing column", amount.Amount{}, amt("0", "USD")},
		{"zero", amt("0", "EUR"), amt("0", "EUR")},
		{"sub-cent", amt("-1.994", "EUR"), amt("1.99", "EUR")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConverter(nil, nil, Options{Account: "Assets:IB"}, nil)
			cl := classifier.Classified{
				Category: classifier.CategoryTradeForex,
				Date:     day,
				Metadata: map[string]string{},
				Trade: &classifier.Trade{
					AssetCategory:  "Forex",
					Symbol:         "EUR.USD",
					Quantity:       d("10000"),
					Price:          d("1.0950"),
					Proceeds:       d("-10950.00"),
					Currency:       "USD",
					BaseCommission: tt.commission,
				},
			}
			txn := convert(t, c, cl)
			if len(txn.Postings) != 4 {
				t.Fatalf("got %d postings, want 4", len(txn.Postings))
			}
			if got := *txn.Postings[2].Units; !got.Equal(tt.want) {
				t.Errorf("fee leg = %s, want %s", got, tt.want)
			}
			if got := *txn.Postings[3].Units; !got.Equal(tt.want.Neg()) {
				t.Errorf("fee funding leg = %s, want %s", got, tt.want.Neg())
			}
		})
	}
}

func TestConvertZeroQuantityTrade(t *testing.T) {
	tracker := inventory.NewTracker(inventory.Latest)
	c := NewConverter(nil, tracker, Options{Account: "Assets:IB"}, nil)

	e, err := c.Convert(stockTrade("0", "100", "0", "0"))
	if err != nil || e != nil {
		t.Fatalf("Convert() = %v, %v, want nothing booked", e, err)
	}
	if _, ok := tracker.Position("AAPL"); ok {
		t.Error("zero-quantity trade opened a position")
	}
}
