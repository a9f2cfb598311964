package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/tribehub/tribehub_backend/models"
	"github.com/tribehub/tribehub_backend/repositories"
	"github.com/tribehub/tribehub_backend/utils"
)

// ErrDispatchFailed is returned when the email gateway rejects the
// dispatch. The stored code is kept; the user retries by resending.
var ErrDispatchFailed = errors.New("failed to send verification email")

// VerificationError carries a non-valid store outcome as an error with a
// caller-facing, non-leaking message.
type VerificationError struct {
	Result models.OTPResult
}

func (e *VerificationError) Error() string {
	return OTPFailureMessage(e.Result)
}

// OTPFailureMessage maps a store outcome to the message shown to the
// user. Expiry and attempt exhaustion are distinguished from a wrong
// code so the user knows to request a new one rather than retype.
func OTPFailureMessage(result models.OTPResult) string {
	switch result {
	case models.OTPExpired:
		return "Verification code has expired. Please request a new one"
	case models.OTPAttemptsExceeded:
		return "Too many incorrect attempts. Please request a new code"
	case models.OTPMismatched:
		return "Incorrect verification code"
	case models.OTPNotFound:
		return "No pending verification. Please request a new code"
	default:
		return "Verification failed"
	}
}

// RecoveryService orchestrates the four server-facing recovery
// operations over the OTP store, the mail gateway and the user
// directory. Both recovery entry points (self-service and
// administrator-forced) go through it.
type RecoveryService struct {
	users  repositories.UserDirectory
	store  repositories.OTPStore
	mailer Mailer
	policy models.OTPPolicy
}

func NewRecoveryService(users repositories.UserDirectory, store repositories.OTPStore, mailer Mailer, policy models.OTPPolicy) *RecoveryService {
	return &RecoveryService{users: users, store: store, mailer: mailer, policy: policy}
}

// Policy returns the active validity policy.
func (s *RecoveryService) Policy() models.OTPPolicy {
	return s.policy
}

// Issue generates a fresh code for identity, stores it and dispatches it
// through the email gateway. The store write happens before dispatch and
// is not rolled back on gateway failure. Returns the server-side expiry
// of the new code.
func (s *RecoveryService) Issue(ctx context.Context, identity, displayName string) (time.Time, error) {
	code, err := utils.GenerateOTP(s.policy.CodeLength)
	if err != nil {
		return time.Time{}, err
	}

	if err := s.store.Put(ctx, identity, code); err != nil {
		return time.Time{}, err
	}
	expiresAt := time.Now().Add(s.policy.TTL)

	// Dispatch after the store write so no store lock is held while
	// waiting on the gateway.
	if err := s.mailer.SendOTP(identity, displayName, code, s.policy.TTL); err != nil {
		log.Printf("OTP dispatch failed for %s: %v", utils.MaskEmail(identity), err)
		return expiresAt, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	return expiresAt, nil
}

// VerifyCode checks a submitted code without consuming the record.
func (s *RecoveryService) VerifyCode(ctx context.Context, identity, code string) (models.OTPResult, error) {
	return s.store.Verify(ctx, identity, code)
}

// SetPassword is the authoritative credential mutation. It re-validates
// the code via an atomic consume, never trusting an earlier client-side
// "verified" state, then stores the new password hash.
func (s *RecoveryService) SetPassword(ctx context.Context, identity, code, newPassword string) error {
	if err := utils.ValidatePassword(newPassword); err != nil {
		return err
	}

	result, err := s.store.Consume(ctx, identity, code)
	if err != nil {
		return err
	}
	if result != models.OTPValid {
		return &VerificationError{Result: result}
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return errors.New("failed to secure new password")
	}

	return s.users.UpdatePassword(ctx, identity, hashed)
}

// Invalidate drops any pending code for identity.
func (s *RecoveryService) Invalidate(ctx context.Context, identity string) error {
	return s.store.Invalidate(ctx, identity)
}

// ResolveEmail is the self-service identity resolver: the user enters
// their own email address.
func (s *RecoveryService) ResolveEmail(ctx context.Context, input string) (string, string, error) {
	email, err := utils.SanitizeEmail(input)
	if err != nil {
		return "", "", err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", "", err
	}
	return user.Email, user.FullName, nil
}

// ResolveUsername is the admin-forced resolver: the identity is looked
// up from a known username and flagged for reset.
func (s *RecoveryService) ResolveUsername(ctx context.Context, input string) (string, string, error) {
	username, err := utils.SanitizeUsername(input)
	if err != nil {
		return "", "", err
	}

	user, err := s.users.MarkNeedsReset(ctx, username)
	if err != nil {
		return "", "", err
	}
	return user.Email, user.FullName, nil
}
