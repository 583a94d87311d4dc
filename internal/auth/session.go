package auth

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashSessionToken derives the lookup key stored for an app session token.
func HashSessionToken(secret, token string) string {
	sum := sha256.Sum256([]byte(secret + ":" + token))
	return hex.EncodeToString(sum[:])
}
