package service

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	unlockTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	unlockTokenLength   = 50

	// No 0/O or 1/I so codes survive being read aloud or copied from paper.
	accessCodeAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	DefaultAccessCodeLength = 6
)

// newSessionToken returns a random UUIDv4 for the participant's browser.
func newSessionToken() string {
	return uuid.NewString()
}

// newUnlockToken returns a 50-character token for administrative unlock.
func newUnlockToken() (string, error) {
	return randomString(unlockTokenAlphabet, unlockTokenLength)
}

func newAccessCode(length int) (string, error) {
	if length <= 0 {
		length = DefaultAccessCodeLength
	}
	return randomString(accessCodeAlphabet, length)
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		buf[i] = alphabet[idx.Int64()]
	}
	return string(buf), nil
}
