// utils/auth.go
package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"

	"github.com/tribehub/tribehub_backend/middleware"
)

const resetTokenPurpose = "password_reset"

// ResetTokenClaims are the claims carried by the short-lived token handed
// out after a successful OTP verification. The token authorizes the
// downstream password mutation; the mutation still re-validates the OTP
// server-side.
type ResetTokenClaims struct {
	Identity string `json:"identity"`
	Purpose  string `json:"purpose"`
	jwt.StandardClaims
}

// HashPassword hashes a password with bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPasswordHash compares a plaintext password with a bcrypt hash
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateResetToken signs a reset token for the given identity, valid
// for the given duration.
func GenerateResetToken(identity string, ttl time.Duration) (string, error) {
	claims := &ResetTokenClaims{
		Identity: identity,
		Purpose:  resetTokenPurpose,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(ttl).Unix(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(middleware.GetJWTSecret()))
}

// ParseResetToken validates a reset token and returns the identity it was
// issued for.
func ParseResetToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &ResetTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(middleware.GetJWTSecret()), nil
	})
	if err != nil {
		return "", errors.New("invalid or expired reset token")
	}

	claims, ok := token.Claims.(*ResetTokenClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid reset token claims")
	}
	if claims.Purpose != resetTokenPurpose {
		return "", errors.New("token not issued for password reset")
	}
	if claims.ExpiresAt > 0 && time.Now().Unix() > claims.ExpiresAt {
		return "", errors.New("reset token has expired")
	}

	return claims.Identity, nil
}
