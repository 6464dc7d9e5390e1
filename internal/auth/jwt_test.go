package auth_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/tarascos/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	adminID := uuid.New()
	email := "admin@tarascos.mx"

	token, err := auth.GenerateToken(secret, adminID, email)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.AdminID != adminID {
		t.Errorf("admin ID: got %v, want %v", claims.AdminID, adminID)
	}
	if claims.Email != email {
		t.Errorf("email: got %v, want %v", claims.Email, email)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), "admin@tarascos.mx")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}
