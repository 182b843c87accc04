package inventory

import "fmt"

// CostBasisMethod defines how the acquisition price of a position evolves when it grows.
type CostBasisMethod int

const (
	// Latest records the price of the most recent opening or increasing trade.
	Latest CostBasisMethod = iota
	// Average records the quantity weighted average price of all increasing trades.
	Average
)

func (m CostBasisMethod) String() string {
	switch m {
	case Latest:
		return "latest"
	case Average:
		return "average"
	default:
		return "unknown"
	}
}

// ParseCostBasisMethod parses a string into a CostBasisMethod. An empty string is Latest.
func ParseCostBasisMethod(s string) (CostBasisMethod, error) {
	switch s {
	case "", "latest":
		return Latest, nil
	case "average":
		return Average, nil
	default:
		return 0, fmt.Errorf("unknown cost basis method: %q", s)
	}
}
