// Package idgen generates prefixed identifiers and bearer secrets from a
// cryptographically secure source.
package idgen

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// alphabet is the character set used for generated identifiers.
const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecureID returns "<prefix>_<random>" where the random part has the
// requested length drawn from a lowercase alphanumeric alphabet.
func GenerateSecureID(prefix string, length int) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("prefix is required")
	}
	if length <= 0 {
		return "", fmt.Errorf("length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return fmt.Sprintf("%s_%s", prefix, string(buf)), nil
}

// GenerateSecret returns "<prefix>_<hex>" with entropyBytes bytes of
// crypto/rand entropy hex encoded. Callers needing brute-force resistance
// should pass at least 16 bytes (128 bits).
func GenerateSecret(prefix string, entropyBytes int) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("prefix is required")
	}
	if entropyBytes < 16 {
		return "", fmt.Errorf("entropy too small: %d bytes", entropyBytes)
	}

	buf := make([]byte, entropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return fmt.Sprintf("%s_%s", prefix, hex.EncodeToString(buf)), nil
}
