package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sha256Hex computes a SHA-256 digest over the UTF-8 concatenation of the
// given parts and returns it as a lowercase hex string. Every hash in the
// chain (transaction, block, merkle node) is produced by this function.
func Sha256Hex(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}
