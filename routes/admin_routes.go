package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/tribehub/tribehub_backend/controllers"
	"github.com/tribehub/tribehub_backend/middleware"
)

// RegisterAdminRoutes sets up the administrator-only recovery routes
func RegisterAdminRoutes(e *echo.Echo, passwordController *controllers.PasswordController) {
	adminGroup := e.Group("/api/admin")
	adminGroup.Use(middleware.JWTMiddleware())
	adminGroup.Use(middleware.RequireAdmin())

	adminGroup.POST("/users/:username/force-reset", passwordController.ForceReset)
}
