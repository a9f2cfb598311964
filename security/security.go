package security

import (
	"crypto/subtle"
)

// SecureCompare reports whether two strings are equal without leaking
// the position of the first differing byte through timing.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
