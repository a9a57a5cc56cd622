package kadmin

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const passwordLength = 13

const passwordChars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomPassword returns a 13 character password drawn from digits and
// letters, suitable for freshly created service principals.
func RandomPassword() (string, error) {
	password := make([]byte, passwordLength)
	max := big.NewInt(int64(len(passwordChars)))

	for i := range password {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random password: %w", err)
		}
		password[i] = passwordChars[n.Int64()]
	}

	return string(password), nil
}
