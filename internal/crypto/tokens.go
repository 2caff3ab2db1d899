package crypto

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

const (
	// ClaimTokenBytes is the amount of randomness in a claim token (192 bits).
	ClaimTokenBytes = 24

	// VerificationCodePrefix marks codes so they are easy to spot in a post.
	VerificationCodePrefix = "PONZI-"

	verificationCodeBytes = 3
)

// NewClaimToken returns a hex-encoded random claim token.
func NewClaimToken() (string, error) {
	return randomHex(ClaimTokenBytes)
}

// NewVerificationCode returns a short human-typeable code such as "PONZI-3FA9C1".
func NewVerificationCode() (string, error) {
	h, err := randomHex(verificationCodeBytes)
	if err != nil {
		return "", err
	}
	return VerificationCodePrefix + strings.ToUpper(h), nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
