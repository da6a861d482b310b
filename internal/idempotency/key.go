package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey builds a deterministic key using all provided parts.
func GenerateKey(parts ...interface{}) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%v:", part)
	}

	return hex.EncodeToString(h.Sum(nil))
}

// UpdateKey identifies one Telegram update. Telegram redelivers an update with the same id
// when the previous getUpdates response was not acknowledged.
func UpdateKey(updateID int) string {
	return GenerateKey("update", updateID)
}
