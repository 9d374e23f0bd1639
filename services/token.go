package services

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

const (
	inviteTokenBytes = 32 // 256 бит энтропии

	DefaultInviteExpiryHours = 168 // 7 дней
	MaxInviteExpiryHours     = 8760

	maxTokenAttempts = 3 // Попытки сгенерировать уникальный токен
)

// TokenGenerator produces opaque invite tokens.
type TokenGenerator interface {
	Generate() (string, error)
}

type cryptoTokenGenerator struct{}

// NewCryptoTokenGenerator returns a generator of 32 random bytes encoded as
// unpadded base64url (43 characters).
func NewCryptoTokenGenerator() TokenGenerator {
	return cryptoTokenGenerator{}
}

func (cryptoTokenGenerator) Generate() (string, error) {
	buf := make([]byte, inviteTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// inviteExpiry resolves the requested lifetime. Zero means the default.
func inviteExpiry(now time.Time, hours int) (time.Time, error) {
	if hours == 0 {
		hours = DefaultInviteExpiryHours
	}
	if hours < 1 || hours > MaxInviteExpiryHours {
		return time.Time{}, fmt.Errorf("%w: got %d", ErrInvalidExpiryHours, hours)
	}
	return now.Add(time.Duration(hours) * time.Hour), nil
}
