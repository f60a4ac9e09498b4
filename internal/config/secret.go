package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateAPIToken returns a 32-byte random token encoded as hex, used to
// guard run triggers on the daemon API.
func GenerateAPIToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating api token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
