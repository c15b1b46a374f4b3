package token

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// CodeLength is the number of digits in a one-time code.
const CodeLength = 6

// NewNumericCode generates a cryptographically random zero-padded numeric code
// of CodeLength digits.
func NewNumericCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
