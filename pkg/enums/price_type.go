package enums

import "fmt"

// PriceType describes how a listing's unit price is interpreted.
type PriceType string

const (
	PriceTypeFixed      PriceType = "fixed"
	PriceTypeHourly     PriceType = "hourly"
	PriceTypePerDay     PriceType = "per_day"
	PriceTypeNegotiable PriceType = "negotiable"
)

var validPriceTypes = []PriceType{
	PriceTypeFixed,
	PriceTypeHourly,
	PriceTypePerDay,
	PriceTypeNegotiable,
}

// String implements fmt.Stringer.
func (p PriceType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PriceType.
func (p PriceType) IsValid() bool {
	for _, candidate := range validPriceTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePriceType converts raw input into a PriceType.
func ParsePriceType(value string) (PriceType, error) {
	for _, candidate := range validPriceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid price type %q", value)
}
