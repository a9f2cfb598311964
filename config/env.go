// config/env.go
package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/tribehub/tribehub_backend/models"
)

// SMTPConfig holds the email-delivery gateway settings.
type SMTPConfig struct {
	Host     string
	Port     int
	UseTLS   bool
	Username string
	Password string
	From     string
}

// ErrMissingSMTPConfig is returned when the gateway credentials are not
// configured. Issuance treats this as a per-request server error, not a
// process-fatal one.
var ErrMissingSMTPConfig = errors.New("missing SMTP configuration")

// Validate checks that all required gateway settings are present.
func (c SMTPConfig) Validate() error {
	if c.Host == "" || c.Port == 0 || c.Username == "" || c.Password == "" || c.From == "" {
		return ErrMissingSMTPConfig
	}
	return nil
}

// LoadSMTPConfig reads the email gateway configuration from environment
// variables.
func LoadSMTPConfig() SMTPConfig {
	port := 0
	if portStr := os.Getenv("SMTP_PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			log.Printf("Warning: invalid SMTP_PORT %q", portStr)
		} else {
			port = p
		}
	}

	return SMTPConfig{
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		UseTLS:   envBool("SMTP_USE_TLS", false),
		Username: os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASS"),
		From:     os.Getenv("FROM_EMAIL"),
	}
}

// LoadOTPPolicy reads the OTP validity policy from environment variables,
// falling back to the defaults (10 minute TTL, 3 attempts, 60s resend
// interval, 6-digit codes).
func LoadOTPPolicy() models.OTPPolicy {
	policy := models.DefaultOTPPolicy()
	policy.TTL = envDuration("OTP_TTL", policy.TTL)
	policy.MaxAttempts = envInt("OTP_MAX_ATTEMPTS", policy.MaxAttempts)
	policy.ResendInterval = envDuration("OTP_RESEND_INTERVAL", policy.ResendInterval)
	policy.CodeLength = envInt("OTP_CODE_LENGTH", policy.CodeLength)
	return policy
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: invalid duration for %s: %q", key, value)
		return fallback
	}
	return d
}

func envInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid integer for %s: %q", key, value)
		return fallback
	}
	return n
}

func envBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: invalid boolean for %s: %q", key, value)
		return fallback
	}
	return b
}
