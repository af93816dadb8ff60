package signing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewConfirmToken generates a 64-char hex confirm token from 32 random bytes.
func NewConfirmToken() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails on supported platforms
		panic("signing: crypto/rand unavailable: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// HashFingerprint returns the sha256 hex digest of a requester attribute
// (IP, User-Agent). Only these one-way hashes are ever stored.
func HashFingerprint(data string) string {
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])
}
