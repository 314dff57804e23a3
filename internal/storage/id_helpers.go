package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// generateStreamSecret returns an 8-character secret used for the admin and
// source passwords handed to newly created streams.
func generateStreamSecret() (string, error) {
	bytes := make([]byte, 4)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate stream secret: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
