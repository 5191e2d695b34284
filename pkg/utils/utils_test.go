package utils

import (
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	password := "walkies123"
	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if hash == password {
		t.Errorf("Expected hash to differ from plaintext")
	}
	if !CheckPassword(password, hash) {
		t.Errorf("Expected password check to pass")
	}
	if CheckPassword("wrongpassword", hash) {
		t.Errorf("Expected password check to fail for wrong password")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "supersecret"
	userID := "42"
	role := "sitter"

	token, err := GenerateToken(userID, role, secret)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := ValidateToken(token, secret)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("Expected UserID %s, got %s", userID, claims.UserID)
	}
	if claims.Role != role {
		t.Errorf("Expected Role %s, got %s", role, claims.Role)
	}

	if _, err := ValidateToken(token, "wrongsecret"); err == nil {
		t.Errorf("Expected error with wrong secret")
	}
	if _, err := ValidateToken("not-a-token", secret); err == nil {
		t.Errorf("Expected error for malformed token")
	}
}
