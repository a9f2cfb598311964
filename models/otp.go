package models

import (
	"time"
)

// OTPResult is the outcome of checking a submitted code against the store.
type OTPResult int

const (
	OTPValid OTPResult = iota
	OTPExpired
	OTPMismatched
	OTPAttemptsExceeded
	OTPNotFound
)

func (r OTPResult) String() string {
	switch r {
	case OTPValid:
		return "valid"
	case OTPExpired:
		return "expired"
	case OTPMismatched:
		return "mismatched"
	case OTPAttemptsExceeded:
		return "attempts_exceeded"
	case OTPNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// OTPRecord represents the live verification state for one identity.
// At most one record exists per identity; issuing a new code overwrites
// the previous one.
type OTPRecord struct {
	Identity string    `bson:"identity" json:"identity"`
	Code     string    `bson:"code" json:"-"`
	IssuedAt time.Time `bson:"issuedAt" json:"issuedAt"`
	Attempts int       `bson:"attempts" json:"attempts"`
}

// OTPPolicy is the single server-owned validity policy. Call sites never
// carry their own TTL or attempt values.
type OTPPolicy struct {
	TTL            time.Duration
	MaxAttempts    int
	ResendInterval time.Duration // 0 disables the resend throttle
	CodeLength     int
}

// DefaultOTPPolicy returns the policy used when no configuration is set.
func DefaultOTPPolicy() OTPPolicy {
	return OTPPolicy{
		TTL:            10 * time.Minute,
		MaxAttempts:    3,
		ResendInterval: 60 * time.Second,
		CodeLength:     6,
	}
}
