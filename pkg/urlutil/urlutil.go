package urlutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashURL creates a SHA-256 hash of a URL string, giving a consistent,
// safe key for Redis.
func HashURL(rawURL string) string {
	h := sha256.New()
	h.Write([]byte(rawURL))
	return hex.EncodeToString(h.Sum(nil))
}
