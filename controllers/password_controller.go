// controllers/password_controller.go
package controllers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tribehub/tribehub_backend/models"
	"github.com/tribehub/tribehub_backend/repositories"
	"github.com/tribehub/tribehub_backend/services"
	"github.com/tribehub/tribehub_backend/utils"
)

// resetTokenTTL is the grace window between a successful verification
// and the final password submission.
const resetTokenTTL = 5 * time.Minute

// PasswordController handles the password recovery endpoints
type PasswordController struct {
	Recovery *services.RecoveryService
	Users    repositories.UserDirectory
}

// NewPasswordController creates a new password controller
func NewPasswordController(recovery *services.RecoveryService, users repositories.UserDirectory) *PasswordController {
	return &PasswordController{Recovery: recovery, Users: users}
}

// ForgotPassword initiates the password reset process: it issues a fresh
// verification code and dispatches it to the account's email. The code
// itself is never included in the response.
func (pc *PasswordController) ForgotPassword(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	var req models.ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email is required",
		})
	}

	identity, displayName, err := pc.Recovery.ResolveEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "No account associated with this email",
			})
		}
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email address",
		})
	}

	// Accounts without a stored name fall back to the name the client
	// supplied, so the email greeting is still personal.
	if displayName == "" {
		displayName = strings.TrimSpace(req.FullName)
	}

	expiresAt, err := pc.Recovery.Issue(ctx, identity, displayName)
	if err != nil {
		return pc.issueFailure(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:    http.StatusOK,
		Message:   "Verification code sent successfully",
		Timestamp: time.Now().Format(time.RFC3339),
		Data: map[string]interface{}{
			"email":     utils.MaskEmail(identity),
			"expiresAt": expiresAt.Format(time.RFC3339),
		},
	})
}

// VerifyOTP verifies the code provided by the user. On success it hands
// out a short-lived reset token authorizing the password mutation; the
// mutation endpoint still re-validates the code server-side.
func (pc *PasswordController) VerifyOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email and verification code are required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email address",
		})
	}
	if !utils.IsValidOTPFormat(req.OTP) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Verification code must be 6 digits",
		})
	}

	result, err := pc.Recovery.VerifyCode(ctx, email, req.OTP)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to verify code",
		})
	}
	if result != models.OTPValid {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: services.OTPFailureMessage(result),
		})
	}

	resetToken, err := utils.GenerateResetToken(email, resetTokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to authorize password reset",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Code verified successfully",
		Data: map[string]interface{}{
			"resetToken": resetToken,
		},
	})
}

// ResetPassword performs the authoritative credential mutation. It
// requires both the reset token and the original code; the code is
// consumed atomically so it cannot be replayed after the flow completes.
func (pc *PasswordController) ResetPassword(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Email, code, reset token and new password are required",
		})
	}

	email, err := utils.SanitizeEmail(req.Email)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid email address",
		})
	}
	if !utils.IsValidOTPFormat(req.OTP) {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Verification code must be 6 digits",
		})
	}

	tokenIdentity, err := utils.ParseResetToken(req.ResetToken)
	if err != nil || tokenIdentity != email {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid or expired reset token",
		})
	}

	if err := pc.Recovery.SetPassword(ctx, email, req.OTP, req.NewPassword); err != nil {
		var verr *services.VerificationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, models.Response{
				Status:  http.StatusBadRequest,
				Message: verr.Error(),
			})
		}
		if errors.Is(err, repositories.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "User not found",
			})
		}
		// Password policy violations carry their own message.
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Password reset successfully",
	})
}

// CheckReset reports whether an account has been flagged for a forced
// password reset, returning the masked email the code would be sent to.
func (pc *PasswordController) CheckReset(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	var req models.CheckResetRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Username is required",
		})
	}

	username, err := utils.SanitizeUsername(req.Username)
	if err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid username",
		})
	}

	user, err := pc.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "User not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to check account",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Account status retrieved",
		Data: map[string]interface{}{
			"needsReset": user.NeedsReset,
			"email":      utils.MaskEmail(user.Email),
			"fullName":   user.FullName,
		},
	})
}

// ForceReset flags an account for reset and issues a verification code
// to its email. Administrator-only; drives the same protocol as the
// self-service flow, with the identity resolved from the username.
func (pc *PasswordController) ForceReset(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 30*time.Second)
	defer cancel()

	username := c.Param("username")

	identity, displayName, err := pc.Recovery.ResolveUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "User not found",
			})
		}
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid username",
		})
	}

	expiresAt, err := pc.Recovery.Issue(ctx, identity, displayName)
	if err != nil {
		return pc.issueFailure(c, err)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:    http.StatusOK,
		Message:   "Reset initiated and verification code sent",
		Timestamp: time.Now().Format(time.RFC3339),
		Data: map[string]interface{}{
			"email":     utils.MaskEmail(identity),
			"expiresAt": expiresAt.Format(time.RFC3339),
		},
	})
}

// issueFailure maps issuance errors to responses without leaking
// internals.
func (pc *PasswordController) issueFailure(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repositories.ErrResendThrottled):
		return c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: "A code was sent recently. Please wait before requesting another",
		})
	case errors.Is(err, services.ErrDispatchFailed):
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to send verification email",
		})
	default:
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate verification code",
		})
	}
}
