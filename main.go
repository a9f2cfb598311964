package main

import (
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"

	"github.com/tribehub/tribehub_backend/config"
	"github.com/tribehub/tribehub_backend/controllers"
	"github.com/tribehub/tribehub_backend/middleware"
	"github.com/tribehub/tribehub_backend/repositories"
	"github.com/tribehub/tribehub_backend/routes"
	"github.com/tribehub/tribehub_backend/services"
)

// CustomValidator is a custom validator for Echo
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

func main() {
	// Load .env file
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found")
	}

	// Connect to database
	client := config.ConnectDB()
	policy := config.LoadOTPPolicy()

	// The OTP store: Redis when available (shared across instances),
	// otherwise in process memory with a periodic reaper.
	var otpStore repositories.OTPStore
	if redisClient := config.ConnectRedis(); redisClient != nil {
		otpStore = repositories.NewRedisOTPStore(redisClient, policy)
	} else {
		memStore := repositories.NewMemoryOTPStore(policy)
		go func() {
			for {
				time.Sleep(policy.TTL)
				if n := memStore.ReapExpired(); n > 0 {
					log.Printf("Reaped %d expired verification codes", n)
				}
			}
		}()
		otpStore = memStore
	}

	// Create a new Echo instance
	e := echo.New()

	// Initialize custom validator
	customValidator := &CustomValidator{validator: validator.New()}
	e.Validator = customValidator

	// Initialize rate limiter
	rateLimiter := middleware.NewRateLimiter()

	// Middleware
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.GlobalCORS())
	e.Use(middleware.SecurityHeaders())
	e.Use(rateLimiter.RateLimit())

	e.Match([]string{"GET", "HEAD"}, "/", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "OK",
			"message": "TribeHub Backend is running",
			"version": "1.0",
		})
	})

	e.Match([]string{"GET", "HEAD"}, "/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":   "healthy",
			"database": "connected",
		})
	})

	e.Use(httpsRedirect())

	// Initialize repositories and services
	userRepo := repositories.NewUserRepository(config.GetCollection(client, "users"))
	mailService := services.NewMailService(config.LoadSMTPConfig())
	recoveryService := services.NewRecoveryService(userRepo, otpStore, mailService, policy)

	// Initialize controllers
	authController := controllers.NewAuthController(userRepo)
	passwordController := controllers.NewPasswordController(recoveryService, userRepo)

	// Register routes
	routes.RegisterAuthRoutes(e, authController, passwordController)
	routes.RegisterAdminRoutes(e, passwordController)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	e.Logger.Fatal(e.Start(":" + port))
}

func httpsRedirect() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Header.Get("X-Forwarded-Proto") == "http" {
				return c.Redirect(301, "https://"+c.Request().Host+c.Request().RequestURI)
			}
			return next(c)
		}
	}
}
