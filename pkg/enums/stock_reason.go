package enums

import "fmt"

// StockReason labels why a stock movement happened.
type StockReason string

const (
	StockReasonCheckout   StockReason = "checkout"
	StockReasonAdjustment StockReason = "adjustment"
	StockReasonRestock    StockReason = "restock"
)

var validStockReasons = []StockReason{
	StockReasonCheckout,
	StockReasonAdjustment,
	StockReasonRestock,
}

// String implements fmt.Stringer.
func (r StockReason) String() string {
	return string(r)
}

// IsValid reports whether the value is a known StockReason.
func (r StockReason) IsValid() bool {
	for _, candidate := range validStockReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStockReason converts raw input into a StockReason.
func ParseStockReason(value string) (StockReason, error) {
	for _, candidate := range validStockReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock reason %q", value)
}
