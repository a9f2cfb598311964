package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tribehub/tribehub_backend/controllers"
)

// RegisterAuthRoutes sets up the public authentication and recovery routes
func RegisterAuthRoutes(e *echo.Echo, authController *controllers.AuthController, passwordController *controllers.PasswordController) {
	e.POST("/api/auth/login", authController.Login)

	// Password recovery protocol
	e.POST("/api/auth/forgot-password", passwordController.ForgotPassword)
	e.POST("/api/auth/verify-otp", passwordController.VerifyOTP)
	e.POST("/api/auth/reset-password", passwordController.ResetPassword)
	e.POST("/api/auth/check-reset", passwordController.CheckReset)
}
