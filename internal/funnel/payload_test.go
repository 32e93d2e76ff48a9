package funnel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePayload(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected Payload
		approved bool
	}{
		{
			name:     "full payload",
			raw:      `{"status":"approved","pkg":"pkg2","order_id":"X1","amount":"4.99","currency":"USD","source":"checkout","type":"payment"}`,
			expected: Payload{Status: "approved", Package: "pkg2", OrderID: "X1", Amount: "4.99", Currency: "USD", Source: "checkout", Type: "payment"},
			approved: true,
		},
		{
			name:     "numeric amount and mixed case status",
			raw:      `{"status":" Approved ","amount":2.5,"order_id":123}`,
			expected: Payload{Status: "Approved", Amount: "2.5", OrderID: "123"},
			approved: true,
		},
		{
			name:     "package alias",
			raw:      `{"status":"approved","package":"pkg3"}`,
			expected: Payload{Status: "approved", Package: "pkg3"},
			approved: true,
		},
		{
			name:     "other status",
			raw:      `{"status":"pending"}`,
			expected: Payload{Status: "pending"},
		},
		{
			name: "invalid json",
			raw:  `{"status":`,
		},
		{
			name: "array",
			raw:  `["approved"]`,
		},
		{
			name: "plain string",
			raw:  `approved`,
		},
		{
			name: "empty",
			raw:  ``,
		},
		{
			name:     "nested status ignored",
			raw:      `{"status":{"value":"approved"}}`,
			expected: Payload{},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := ParsePayload(tc.raw)
			assert.Equal(t, tc.expected, got)
			assert.Equal(t, tc.approved, got.Approved())
		})
	}
}
