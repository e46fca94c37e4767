package auth

import (
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestResetTokenRoundTrip(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	signed, err := newResetToken("user-1")
	if err != nil {
		t.Fatalf("newResetToken: %v", err)
	}
	userID, err := parseResetToken(signed)
	if err != nil {
		t.Fatalf("parseResetToken: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("userID = %q, want user-1", userID)
	}
}

func TestResetTokenRejectsSessionToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	// A login JWT has no purpose claim and must not reset passwords.
	session, err := SignToken("user-1", "fan")
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if _, err := parseResetToken(session); err == nil {
		t.Fatal("session token accepted as reset token")
	}
}

func TestResetTokenRejectsExpired(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")

	claims := jwt.MapClaims{
		"user_id": "user-1",
		"purpose": "password_reset",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(os.Getenv("JWT_SECRET")))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := parseResetToken(signed); err == nil {
		t.Fatal("expired token accepted")
	}
}

func TestResetTokenRejectsWrongSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	signed, err := newResetToken("user-1")
	if err != nil {
		t.Fatalf("newResetToken: %v", err)
	}

	t.Setenv("JWT_SECRET", "other-secret")
	if _, err := parseResetToken(signed); err == nil {
		t.Fatal("token signed with a different secret accepted")
	}
}

func TestResetTokenTTLOverride(t *testing.T) {
	t.Setenv("PASSWORD_RESET_EXP_MINUTES", "5")
	if got := resetTokenTTL(); got != 5*time.Minute {
		t.Fatalf("ttl = %v, want 5m", got)
	}
	t.Setenv("PASSWORD_RESET_EXP_MINUTES", "garbage")
	if got := resetTokenTTL(); got != 30*time.Minute {
		t.Fatalf("ttl = %v, want default 30m", got)
	}
}
