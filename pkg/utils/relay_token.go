package utils

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"
)

// RelayToken derives the hourly bearer token shared between the publishing
// pipeline and the signing relay: hex(sha256(secret + ":" + hourBucket)).
func RelayToken(secret string, t time.Time) string {
	bucket := t.Unix() / 3600
	if t.Unix() < 0 && t.Unix()%3600 != 0 {
		bucket--
	}
	sum := sha256.Sum256([]byte(secret + ":" + strconv.FormatInt(bucket, 10)))
	return hex.EncodeToString(sum[:])
}

// VerifyRelayToken recomputes the token for the hour containing t.
func VerifyRelayToken(secret, token string, t time.Time) bool {
	if secret == "" || token == "" {
		return false
	}
	expected := RelayToken(secret, t)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 1
}
