package enums

import "fmt"

// NegotiationAction is the closed set of moves in a price negotiation.
type NegotiationAction string

const (
	NegotiationActionOffer   NegotiationAction = "offer"
	NegotiationActionCounter NegotiationAction = "counter"
	NegotiationActionAccept  NegotiationAction = "accept"
	NegotiationActionDecline NegotiationAction = "decline"
)

var validNegotiationActions = []NegotiationAction{
	NegotiationActionOffer,
	NegotiationActionCounter,
	NegotiationActionAccept,
	NegotiationActionDecline,
}

// String implements fmt.Stringer.
func (n NegotiationAction) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NegotiationAction.
func (n NegotiationAction) IsValid() bool {
	for _, candidate := range validNegotiationActions {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNegotiationAction converts raw input into a NegotiationAction.
func ParseNegotiationAction(value string) (NegotiationAction, error) {
	for _, candidate := range validNegotiationActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid negotiation action %q", value)
}

// CarriesAmount reports whether the action must record a unit price.
func (n NegotiationAction) CarriesAmount() bool {
	switch n {
	case NegotiationActionOffer, NegotiationActionCounter, NegotiationActionAccept:
		return true
	default:
		return false
	}
}
