package auth

import (
	"errors"
	"testing"
	"time"
)

func testJWTManager() *JWTManager {
	return NewJWTManager(JWTConfig{
		SecretKey:            "test-secret",
		AccessTokenDuration:  15 * time.Minute,
		RefreshTokenDuration: 7 * 24 * time.Hour,
		Issuer:               "chatflow-test",
	})
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := testJWTManager()

	token, err := manager.GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := manager.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("expected user ID user-1, got %q", claims.UserID)
	}
	if claims.Email != "alice@example.com" {
		t.Errorf("expected email alice@example.com, got %q", claims.Email)
	}
	if claims.TokenType != "access" {
		t.Errorf("expected token type access, got %q", claims.TokenType)
	}
}

func TestJWTManager_TokenTypeMismatch(t *testing.T) {
	manager := testJWTManager()

	refresh, err := manager.GenerateRefreshToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}

	if _, err := manager.ValidateAccessToken(refresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for refresh token used as access, got %v", err)
	}

	access, err := manager.GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}
	if _, err := manager.ValidateRefreshToken(access); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for access token used as refresh, got %v", err)
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	manager := NewJWTManager(JWTConfig{
		SecretKey:           "test-secret",
		AccessTokenDuration: -time.Minute,
		Issuer:              "chatflow-test",
	})

	token, err := manager.GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	if _, err := manager.ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expected ErrExpiredToken, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := testJWTManager().GenerateAccessToken("user-1", "alice@example.com")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	other := NewJWTManager(JWTConfig{
		SecretKey:           "different-secret",
		AccessTokenDuration: 15 * time.Minute,
		Issuer:              "chatflow-test",
	})
	if _, err := other.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}
