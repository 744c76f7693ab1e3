package enums

import "fmt"

// HandoverDirection binds a verification code to one leg of the physical exchange.
type HandoverDirection string

const (
	HandoverDirectionDelivery HandoverDirection = "delivery"
	HandoverDirectionReturn   HandoverDirection = "return"
)

var validHandoverDirections = []HandoverDirection{
	HandoverDirectionDelivery,
	HandoverDirectionReturn,
}

// String implements fmt.Stringer.
func (h HandoverDirection) String() string {
	return string(h)
}

// IsValid reports whether the value is a known HandoverDirection.
func (h HandoverDirection) IsValid() bool {
	for _, candidate := range validHandoverDirections {
		if candidate == h {
			return true
		}
	}
	return false
}

// ParseHandoverDirection converts raw input into a HandoverDirection.
func ParseHandoverDirection(value string) (HandoverDirection, error) {
	for _, candidate := range validHandoverDirections {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid handover direction %q", value)
}
