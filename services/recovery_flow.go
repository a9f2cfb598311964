package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/tribehub/tribehub_backend/models"
	"github.com/tribehub/tribehub_backend/utils"
)

// ErrInvalidTransition is returned when a flow method is called in a
// step that does not allow it.
var ErrInvalidTransition = errors.New("operation not allowed in the current step")

// OTPIssuer issues a fresh code for an identity and reports its expiry.
type OTPIssuer interface {
	Issue(ctx context.Context, identity, displayName string) (time.Time, error)
}

// OTPVerifier checks a submitted code without consuming it.
type OTPVerifier interface {
	VerifyCode(ctx context.Context, identity, code string) (models.OTPResult, error)
}

// CredentialMutator performs the authoritative password change, gated on
// its own server-side re-validation of the code.
type CredentialMutator interface {
	SetPassword(ctx context.Context, identity, code, newPassword string) error
}

// IdentityResolver turns user input (an email address or a username,
// depending on the entry point) into the identity a code is bound to.
type IdentityResolver func(ctx context.Context, input string) (identity, displayName string, err error)

// RecoveryFlow sequences one in-progress password recovery:
// identify account, await code, verify code, set new password, done.
// It is identity-source-agnostic; the two entry points differ only in
// their resolver. The flow holds no server-side authority: the expiry it
// tracks mirrors the store's TTL for display, and abandoning the flow at
// any step needs no cleanup beyond natural expiry.
type RecoveryFlow struct {
	ID string

	resolve  IdentityResolver
	issuer   OTPIssuer
	verifier OTPVerifier
	mutator  CredentialMutator

	step        models.FlowStep
	identity    string
	displayName string
	pendingCode string
	expiresAt   time.Time
	lastReason  string
}

// NewRecoveryFlow creates a flow starting at the identify-account step.
func NewRecoveryFlow(resolve IdentityResolver, issuer OTPIssuer, verifier OTPVerifier, mutator CredentialMutator) *RecoveryFlow {
	return &RecoveryFlow{
		ID:       uuid.NewString(),
		resolve:  resolve,
		issuer:   issuer,
		verifier: verifier,
		mutator:  mutator,
		step:     models.StepIdentifyAccount,
	}
}

// NewSelfServiceFlow starts a flow for a user who enters their own email.
func (s *RecoveryService) NewSelfServiceFlow() *RecoveryFlow {
	return NewRecoveryFlow(s.ResolveEmail, s, s, s)
}

// NewAdminResetFlow starts a flow for an administrator-forced reset,
// resolving the identity from a known username.
func (s *RecoveryService) NewAdminResetFlow() *RecoveryFlow {
	return NewRecoveryFlow(s.ResolveUsername, s, s, s)
}

func (f *RecoveryFlow) Step() models.FlowStep { return f.step }
func (f *RecoveryFlow) Identity() string      { return f.identity }
func (f *RecoveryFlow) DisplayName() string   { return f.displayName }

// ExpiresAt mirrors the server-side TTL for countdown display only; the
// store's expiry check remains authoritative.
func (f *RecoveryFlow) ExpiresAt() time.Time { return f.expiresAt }

// LastReason is the user-facing reason for the most recent failure.
func (f *RecoveryFlow) LastReason() string { return f.lastReason }

// SubmitIdentity resolves the account and issues the first code, moving
// the flow to the await-code step.
func (f *RecoveryFlow) SubmitIdentity(ctx context.Context, input string) error {
	if f.step != models.StepIdentifyAccount {
		return ErrInvalidTransition
	}

	identity, displayName, err := f.resolve(ctx, input)
	if err != nil {
		f.lastReason = "Account could not be found"
		return err
	}

	expiresAt, err := f.issuer.Issue(ctx, identity, displayName)
	if err != nil && !errors.Is(err, ErrDispatchFailed) {
		f.lastReason = "Could not send a verification code"
		return err
	}

	f.identity = identity
	f.displayName = displayName
	f.expiresAt = expiresAt
	f.pendingCode = ""
	f.lastReason = ""
	f.step = models.StepAwaitOtp
	return err
}

// Resend issues a fresh code for the same identity, restarting the TTL
// and discarding any previously entered code. The previous code is
// superseded server-side.
func (f *RecoveryFlow) Resend(ctx context.Context) error {
	if f.step != models.StepAwaitOtp && f.step != models.StepVerifyOtp {
		return ErrInvalidTransition
	}

	expiresAt, err := f.issuer.Issue(ctx, f.identity, f.displayName)
	if err != nil && !errors.Is(err, ErrDispatchFailed) {
		f.lastReason = "Could not send a verification code"
		return err
	}

	f.expiresAt = expiresAt
	f.pendingCode = ""
	f.lastReason = ""
	f.step = models.StepAwaitOtp
	return err
}

// SubmitCode verifies the code the user typed. Success advances to the
// set-password step; failure returns to await-code with the reason
// surfaced so the user knows whether to retype or request a new code.
func (f *RecoveryFlow) SubmitCode(ctx context.Context, code string) error {
	if f.step != models.StepAwaitOtp && f.step != models.StepVerifyOtp {
		return ErrInvalidTransition
	}
	f.step = models.StepVerifyOtp

	if !utils.IsValidOTPFormat(code) {
		f.step = models.StepAwaitOtp
		f.lastReason = "Enter the 6-digit code from the email"
		return errors.New(f.lastReason)
	}

	result, err := f.verifier.VerifyCode(ctx, f.identity, code)
	if err != nil {
		f.step = models.StepAwaitOtp
		f.lastReason = "Verification failed"
		return err
	}
	if result != models.OTPValid {
		f.step = models.StepAwaitOtp
		f.lastReason = OTPFailureMessage(result)
		return &VerificationError{Result: result}
	}

	f.pendingCode = code
	f.lastReason = ""
	f.step = models.StepSetPassword
	return nil
}

// SubmitPassword validates the new password locally, then performs the
// authoritative mutation, which re-validates and consumes the code. The
// flow reaches the terminal step only when the mutation succeeds.
func (f *RecoveryFlow) SubmitPassword(ctx context.Context, newPassword string) error {
	if f.step != models.StepSetPassword {
		return ErrInvalidTransition
	}

	if err := utils.ValidatePassword(newPassword); err != nil {
		f.lastReason = err.Error()
		return err
	}

	if err := f.mutator.SetPassword(ctx, f.identity, f.pendingCode, newPassword); err != nil {
		f.lastReason = err.Error()
		return err
	}

	f.pendingCode = ""
	f.lastReason = ""
	f.step = models.StepDone
	return nil
}

// Back steps the flow backwards one screen. This is a pure UI
// affordance: nothing is invalidated server-side.
func (f *RecoveryFlow) Back() error {
	switch f.step {
	case models.StepVerifyOtp:
		f.step = models.StepAwaitOtp
	case models.StepSetPassword:
		f.step = models.StepVerifyOtp
	default:
		return ErrInvalidTransition
	}
	return nil
}

// Cancel abandons the flow. No server-side cleanup happens; the TTL and
// overwrite-on-resend bound the exposure window.
func (f *RecoveryFlow) Cancel() {
	f.step = models.StepIdentifyAccount
	f.identity = ""
	f.displayName = ""
	f.pendingCode = ""
	f.expiresAt = time.Time{}
	f.lastReason = ""
}
