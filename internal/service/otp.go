package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// generateOTP returns a zero-padded numeric code of the given length.
// crypto/rand so codes are not guessable from earlier ones.
func generateOTP(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}

const (
	arrivalOTPDigits    = 4
	completionOTPDigits = 5
)
