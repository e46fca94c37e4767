package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/futuretrendsent/zaryo-market/internal/alerts"
	"github.com/futuretrendsent/zaryo-market/internal/db"
)

func resetTokenTTL() time.Duration {
	if v := os.Getenv("PASSWORD_RESET_EXP_MINUTES"); v != "" {
		if dur, err := time.ParseDuration(v + "m"); err == nil && dur > 0 {
			return dur
		}
	}
	return 30 * time.Minute
}

// newResetToken issues a short-lived single-purpose token. The purpose
// claim keeps session JWTs from doubling as reset tokens.
func newResetToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"purpose": "password_reset",
		"exp":     time.Now().Add(resetTokenTTL()).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(os.Getenv("JWT_SECRET")))
}

// parseResetToken validates the token and returns the subject user id.
func parseResetToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(os.Getenv("JWT_SECRET")), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil || !parsed.Valid {
		return "", errors.New("invalid or expired token")
	}
	if purpose, _ := claims["purpose"].(string); purpose != "password_reset" {
		return "", errors.New("invalid token purpose")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", errors.New("invalid token subject")
	}
	return userID, nil
}

// POST /auth/password/request
// Always answers with the same message so callers cannot probe which
// emails exist.
func RequestPasswordReset(c echo.Context) error {
	const generic = "If the email exists, a reset link has been sent."

	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusOK, echo.Map{"message": generic})
	}

	var userID, name string
	err := db.Conn.QueryRow(context.Background(),
		`SELECT id, full_name FROM profiles WHERE email = $1 AND is_active = TRUE`,
		req.Email,
	).Scan(&userID, &name)
	if err != nil || userID == "" {
		return c.JSON(http.StatusOK, echo.Map{"message": generic})
	}

	signed, err := newResetToken(userID)
	if err != nil {
		return c.JSON(http.StatusOK, echo.Map{"message": generic})
	}

	base := os.Getenv("APP_URL")
	if base == "" {
		base = "http://localhost:3000"
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s",
		strings.TrimRight(base, "/"), url.QueryEscape(signed))

	_ = alerts.EnqueuePasswordReset(userID, req.Email, name, resetURL)

	return c.JSON(http.StatusOK, echo.Map{"message": generic})
}

// POST /auth/password/reset
func ResetPassword(c echo.Context) error {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := c.Bind(&req); err != nil || req.Token == "" || len(req.NewPassword) < 6 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "token and a password of at least 6 characters are required"})
	}

	userID, err := parseResetToken(req.Token)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "server error"})
	}

	ct, err := db.Conn.Exec(context.Background(),
		`UPDATE profiles SET password_hash = $1 WHERE id = $2`, string(hashed), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update password"})
	}
	if ct.RowsAffected() == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "password updated successfully"})
}
