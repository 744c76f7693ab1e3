package handover

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/rentloop/rentloop-backend/pkg/enums"
)

const (
	payloadScheme = "rentloop"
	payloadHost   = "handover"
	payloadPath   = "/v1"
)

// Payload is the scannable handover code content. It round-trips losslessly
// through EncodePayload/ParsePayload so a scanning client can recover the
// order, direction, and secret.
type Payload struct {
	OrderID   uuid.UUID
	Direction enums.HandoverDirection
	Secret    string
}

// EncodePayload renders the payload as an opaque rentloop:// URI suitable for
// QR rendering by clients.
func EncodePayload(p Payload) string {
	values := url.Values{}
	values.Set("order", p.OrderID.String())
	values.Set("dir", string(p.Direction))
	values.Set("secret", p.Secret)
	u := url.URL{
		Scheme:   payloadScheme,
		Host:     payloadHost,
		Path:     payloadPath,
		RawQuery: values.Encode(),
	}
	return u.String()
}

// ParsePayload decodes a scanned payload back into its components.
func ParsePayload(raw string) (*Payload, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty handover payload")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse handover payload: %w", err)
	}
	if u.Scheme != payloadScheme || u.Host != payloadHost || u.Path != payloadPath {
		return nil, fmt.Errorf("unrecognized handover payload")
	}

	values := u.Query()
	orderID, err := uuid.Parse(values.Get("order"))
	if err != nil {
		return nil, fmt.Errorf("invalid order id in payload")
	}
	direction, err := enums.ParseHandoverDirection(values.Get("dir"))
	if err != nil {
		return nil, fmt.Errorf("invalid direction in payload")
	}
	secret := values.Get("secret")
	if secret == "" {
		return nil, fmt.Errorf("missing secret in payload")
	}

	return &Payload{
		OrderID:   orderID,
		Direction: direction,
		Secret:    secret,
	}, nil
}
