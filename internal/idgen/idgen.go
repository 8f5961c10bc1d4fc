// Package idgen provides cryptographically random ID generation.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
)

func randHex(numBytes int) string {
	b := make([]byte, numBytes)
	if _, err := rand.Read(b); err != nil {
		panic("crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// WithPrefix generates a random ID with a type prefix (e.g. "bat_", "vl_",
// "adm_"). Result is prefix + 24 hex chars.
func WithPrefix(prefix string) string {
	return prefix + randHex(12)
}

// Hex generates a random hex string of the given byte length.
func Hex(numBytes int) string {
	return randHex(numBytes)
}
