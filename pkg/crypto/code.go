package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
)

// MaxCodeDigits bounds GenerateNumericCode so the modulus stays well inside int64.
const MaxCodeDigits = 18

// ErrInvalidDigits is returned for a digit count outside [1, MaxCodeDigits].
var ErrInvalidDigits = errors.New("crypto: digit count out of range")

// GenerateNumericCode returns a uniformly random decimal string of exactly
// the requested length. Leading zeros are preserved.
func GenerateNumericCode(digits int) (string, error) {
	return GenerateNumericCodeFrom(rand.Reader, digits)
}

// GenerateNumericCodeFrom is GenerateNumericCode with an explicit entropy source.
func GenerateNumericCodeFrom(r io.Reader, digits int) (string, error) {
	if digits < 1 || digits > MaxCodeDigits {
		return "", ErrInvalidDigits
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(r, limit)
	if err != nil {
		return "", fmt.Errorf("crypto: read random: %w", err)
	}

	return fmt.Sprintf("%0*d", digits, n.Int64()), nil
}
