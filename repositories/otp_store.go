package repositories

import (
	"context"
	"errors"

	"github.com/tribehub/tribehub_backend/models"
)

// ErrResendThrottled is returned by Put when the previous code for the
// identity is younger than the policy's resend interval.
var ErrResendThrottled = errors.New("a code was sent recently, please wait before requesting another")

// OTPStore is the authoritative record of issued one-time passwords,
// keyed by identity (email or username). Implementations must serialize
// operations on the same identity; operations on different identities
// must not block each other.
//
// Verify checks a submitted code without consuming the record, so the
// caller can re-validate at final submission time. Consume performs the
// same checks but removes the record atomically on match; at most one
// caller ever observes OTPValid from Consume for a given record.
type OTPStore interface {
	Put(ctx context.Context, identity, code string) error
	Verify(ctx context.Context, identity, code string) (models.OTPResult, error)
	Consume(ctx context.Context, identity, code string) (models.OTPResult, error)
	Invalidate(ctx context.Context, identity string) error
}
