package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashKey digests a customer email so logs and the ledger can correlate a
// buyer across events without holding the address. Case and surrounding
// whitespace are ignored.
func HashKey(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}
