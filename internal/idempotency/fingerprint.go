package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Fingerprint derives a stable 128-bit hex identifier from parts. Parts are
// separated so ("a", "bc") and ("ab", "c") differ.
func Fingerprint(parts ...any) string {
	h := sha256.New()
	for i, part := range parts {
		if i > 0 {
			_, _ = h.Write([]byte{0})
		}
		_, _ = fmt.Fprint(h, part)
	}

	return hex.EncodeToString(h.Sum(nil)[:16])
}
