package handover

import (
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

func TestPayloadRoundTrip(t *testing.T) {
	original := Payload{
		OrderID:   uuid.New(),
		Direction: enums.HandoverDirectionDelivery,
		Secret:    "0123456789abcdef",
	}

	encoded := EncodePayload(original)
	if !strings.HasPrefix(encoded, "rentloop://handover/v1?") {
		t.Fatalf("unexpected payload prefix %q", encoded)
	}

	parsed, err := ParsePayload(encoded)
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed.OrderID != original.OrderID {
		t.Fatalf("order id mismatch: %s != %s", parsed.OrderID, original.OrderID)
	}
	if parsed.Direction != original.Direction {
		t.Fatalf("direction mismatch: %s != %s", parsed.Direction, original.Direction)
	}
	if parsed.Secret != original.Secret {
		t.Fatalf("secret mismatch")
	}
}

func TestParsePayloadRejectsMalformedInput(t *testing.T) {
	cases := map[string]string{
		"empty":            "",
		"wrong scheme":     "https://handover/v1?order=x&dir=delivery&secret=s",
		"wrong host":       "rentloop://other/v1?order=x&dir=delivery&secret=s",
		"bad order id":     "rentloop://handover/v1?order=nope&dir=delivery&secret=s",
		"bad direction":    "rentloop://handover/v1?order=" + uuid.NewString() + "&dir=sideways&secret=s",
		"missing secret":   "rentloop://handover/v1?order=" + uuid.NewString() + "&dir=return",
		"not a uri at all": "plain text",
	}

	for name, raw := range cases {
		if _, err := ParsePayload(raw); err == nil {
			t.Errorf("%s: expected error for %q", name, raw)
		}
	}
}
