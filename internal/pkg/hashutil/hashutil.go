package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// ContentHash returns the SHA-256 hex digest used as the optimistic
// concurrency marker for version content.
func ContentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func VerifyContentHash(content, expected string) bool {
	return ContentHash(content) == expected
}
