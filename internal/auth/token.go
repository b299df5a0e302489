package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// BotTokenPrefix marks MDT bot tokens so they are recognizable in logs and
// secret scanners.
const BotTokenPrefix = "mdt_"

// NewBotToken returns a random bot token and the hash to store for it.
func NewBotToken() (plain, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("could not generate token: %w", err)
	}
	plain = BotTokenPrefix + base64.RawURLEncoding.EncodeToString(buf)
	return plain, HashBotToken(plain), nil
}

// HashBotToken returns the hex SHA-256 of a bot token. Tokens carry 256 bits
// of entropy, so a fast hash is enough and allows lookup by hash.
func HashBotToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}
