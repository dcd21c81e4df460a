// Package auth implements the shared-secret checksum that callers attach to session uploads.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// Checksum is hex(sha256(apiKey + id)).
func Checksum(apiKey, id string) string {
	sum := sha256.Sum256([]byte(apiKey + id))
	return hex.EncodeToString(sum[:])
}

// Verify compares cs against the expected checksum in constant time.
// An empty key or checksum never verifies.
func Verify(apiKey, id, cs string) bool {
	if apiKey == "" || cs == "" {
		return false
	}
	want := Checksum(apiKey, id)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(cs))) == 1
}
