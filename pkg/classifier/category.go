package classifier

// Category is the semantic kind of a statement record.
type Category string

const (
	CategorySalary           Category = "salary"
	CategoryCardPurchase     Category = "card-purchase"
	CategoryATMWithdrawal    Category = "atm-withdrawal"
	CategoryTransfer         Category = "transfer"
	CategoryDividend         Category = "dividend"
	CategoryFee              Category = "fee"
	CategoryInterest         Category = "interest"
	CategoryWithholdingTax   Category = "withholding-tax"
	CategoryTradeForex       Category = "trade-forex"
	CategoryTradeSecurity    Category = "trade-security"
	CategoryBalanceAssertion Category = "balance-assertion"
	CategoryUnclassified     Category = "unclassified"
)

// Categories lists every category in declaration order.
var Categories = []Category{
	CategorySalary, CategoryCardPurchase, CategoryATMWithdrawal, CategoryTransfer,
	CategoryDividend, CategoryFee, CategoryInterest, CategoryWithholdingTax,
	CategoryTradeForex, CategoryTradeSecurity, CategoryBalanceAssertion, CategoryUnclassified,
}

// ParseCategory returns the category named s.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }

// IsTrade reports whether records of this category move an inventory position or a currency pair.
func (c Category) IsTrade() bool {
	return c == CategoryTradeForex || c == CategoryTradeSecurity
}
