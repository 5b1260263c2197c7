package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func init() {
	SetJWTSecret("test-secret-key-for-testing")
}

func TestGenerateToken(t *testing.T) {
	token, err := GenerateToken(1, "admin@example.com", "admin", 24)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if len(token) < 50 {
		t.Errorf("token seems too short: %d chars", len(token))
	}
}

func TestGenerateToken_DifferentTokens(t *testing.T) {
	token1, _ := GenerateToken(1, "a@example.com", "admin", 24)
	token2, _ := GenerateToken(2, "b@example.com", "employee", 24)

	if token1 == token2 {
		t.Error("different users should produce different tokens")
	}
}

func TestParseToken(t *testing.T) {
	token, _ := GenerateToken(42, "mona@example.com", "manager", 24)

	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, expected 42", claims.UserID)
	}
	if claims.Email != "mona@example.com" {
		t.Errorf("Email = %q", claims.Email)
	}
	if claims.Role != "manager" {
		t.Errorf("Role = %q, expected manager", claims.Role)
	}
	if claims.ID == "" {
		t.Error("token should carry an id")
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, expected 42", claims.Subject)
	}
}

func TestParseToken_InvalidToken(t *testing.T) {
	invalidTokens := []string{
		"",
		"invalid",
		"not.a.token",
		"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9.invalid.signature",
	}

	for _, token := range invalidTokens {
		if _, err := ParseToken(token); err == nil {
			t.Errorf("ParseToken(%q) should return error", token)
		}
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	SetJWTSecret("original-secret")
	token, _ := GenerateToken(1, "a@example.com", "admin", 24)

	SetJWTSecret("different-secret")
	_, err := ParseToken(token)

	SetJWTSecret("test-secret-key-for-testing")

	if err == nil {
		t.Error("ParseToken should fail with wrong secret")
	}
}

func TestParseToken_Expired(t *testing.T) {
	token, _ := GenerateToken(1, "a@example.com", "admin", -1)
	if _, err := ParseToken(token); err == nil {
		t.Error("expired token should be rejected")
	}
}

func TestParseToken_RejectsForeignIssuerAndMissingUser(t *testing.T) {
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "someone-else",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	signed, _ := foreign.SignedString([]byte("test-secret-key-for-testing"))
	if _, err := ParseToken(signed); err == nil {
		t.Error("token from another issuer should be rejected")
	}

	anonymous, _ := GenerateToken(0, "", "", 1)
	if _, err := ParseToken(anonymous); err == nil {
		t.Error("token without a user id should be rejected")
	}
}

func TestGenerateToken_Expiration(t *testing.T) {
	token, _ := GenerateToken(1, "a@example.com", "admin", 1)
	claims, err := ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}

	expectedExpiry := time.Now().Add(1 * time.Hour)
	diff := claims.ExpiresAt.Time.Sub(expectedExpiry)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expiration time is off by more than 1 minute: %v", diff)
	}
}
