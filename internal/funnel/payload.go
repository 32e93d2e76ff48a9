package funnel

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StatusApproved is the only checkout status that completes the funnel.
const StatusApproved = "approved"

// Payload is the decoded checkout result sent through web_app_data.
type Payload struct {
	Status   string
	Package  string
	OrderID  string
	Amount   string
	Currency string
	Source   string
	Type     string
}

// ParsePayload decodes raw leniently. Anything that is not a JSON object
// yields an empty Payload, and non-string scalars are stringified.
func ParsePayload(raw string) Payload {
	var fields map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err != nil {
		return Payload{}
	}

	return Payload{
		Status:   scalar(fields, "status"),
		Package:  firstScalar(fields, "pkg", "package"),
		OrderID:  scalar(fields, "order_id"),
		Amount:   scalar(fields, "amount"),
		Currency: scalar(fields, "currency"),
		Source:   scalar(fields, "source"),
		Type:     scalar(fields, "type"),
	}
}

// Approved reports whether the payload reports a successful checkout.
func (p Payload) Approved() bool {
	return strings.EqualFold(strings.TrimSpace(p.Status), StatusApproved)
}

func firstScalar(fields map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := scalar(fields, key); v != "" {
			return v
		}
	}
	return ""
}

func scalar(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}
