package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// SecureCompare reports whether a and b are equal in time independent of
// where they differ. Both sides are hashed first so a length mismatch does
// not return early.
func SecureCompare(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}

// HMACSHA256Hex signs payload with secret and returns lowercase hex.
func HMACSHA256Hex(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	_, _ = h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}
