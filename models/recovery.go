package models

// FlowStep is a position in the password-recovery state machine.
type FlowStep int

const (
	StepIdentifyAccount FlowStep = iota
	StepAwaitOtp
	StepVerifyOtp
	StepSetPassword
	StepDone
)

func (s FlowStep) String() string {
	switch s {
	case StepIdentifyAccount:
		return "identify_account"
	case StepAwaitOtp:
		return "await_otp"
	case StepVerifyOtp:
		return "verify_otp"
	case StepSetPassword:
		return "set_password"
	case StepDone:
		return "done"
	default:
		return "unknown"
	}
}

type ForgotPasswordRequest struct {
	Email    string `json:"email" validate:"required"`
	FullName string `json:"fullName,omitempty"`
}

type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required"`
	OTP   string `json:"otp" validate:"required"`
}

type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required"`
	OTP         string `json:"otp" validate:"required"`
	ResetToken  string `json:"resetToken" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required"`
}

type CheckResetRequest struct {
	Username string `json:"username" validate:"required"`
}
