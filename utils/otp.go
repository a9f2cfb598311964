// utils/otp.go
package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

var otpFormat = regexp.MustCompile(`^[0-9]{6}$`)

// GenerateOTP generates a random numeric code of the given length, each
// digit drawn uniformly from crypto/rand. An entropy failure is returned
// to the caller and aborts issuance.
func GenerateOTP(length int) (string, error) {
	const digits = "0123456789"
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		result[i] = digits[num.Int64()]
	}
	return string(result), nil
}

// IsValidOTPFormat checks that a submitted code is a 6-digit string.
// Malformed codes are rejected before touching the store.
func IsValidOTPFormat(code string) bool {
	return otpFormat.MatchString(code)
}
