package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashOwner maps an upload owner (user id or the guest namespace) to a
// 64-char hex path segment so raw ids never appear in storage keys.
func HashOwner(owner string) string {
	sum := sha256.Sum256([]byte(owner))
	return hex.EncodeToString(sum[:])
}
