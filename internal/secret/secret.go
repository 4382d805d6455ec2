package secret

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
)

// New generates a new cryptographically secure byte array of length len and returns its URL-safe base64
// representation (usable as a cookie value) + the hex encoded SHA512 hash to store instead of the raw value
func New(len int) (string, string, error) {
	bytes := make([]byte, len)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", err
	}

	raw := base64.RawURLEncoding.EncodeToString(bytes)
	sum := sha512.Sum512(bytes)
	return raw, hex.EncodeToString(sum[:]), nil
}

// Hash decodes the given base64 string and returns its hex encoded SHA512 hash
func Hash(raw string) (string, error) {
	bytes, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return "", err
	}
	sum := sha512.Sum512(bytes)
	return hex.EncodeToString(sum[:]), nil
}
