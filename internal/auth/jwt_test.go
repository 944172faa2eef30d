package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 44-character base64 string, as produced by `openssl rand -base64 32`
const testSecret = "wJ6Qk8Qn1v9Qw1Zb2l8Qk9J3p6Qk8Qn1v9Qw1Zb2l8Qk="

func TestGenerateSubmitToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	tests := []struct {
		name    string
		subject string
		wantErr bool
	}{
		{
			name:    "valid token",
			subject: "device-123",
			wantErr: false,
		},
		{
			name:    "empty subject",
			subject: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.GenerateSubmitToken(tt.subject)
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateSubmitToken() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil && token == "" {
				t.Error("GenerateSubmitToken() returned empty token")
			}
		})
	}
}

func TestValidateToken(t *testing.T) {
	svc := NewJWTService(testSecret)

	token, err := svc.GenerateSubmitToken("device-123")
	if err != nil {
		t.Fatalf("GenerateSubmitToken() error = %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Subject != "device-123" {
		t.Errorf("claims.Subject = %s, want device-123", claims.Subject)
	}
	if claims.Type != TokenTypeSubmit {
		t.Errorf("claims.Type = %s, want %s", claims.Type, TokenTypeSubmit)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	svc := NewJWTService(testSecret)
	other := NewJWTService("completely-different-secret-value!")

	token, err := svc.GenerateSubmitToken("device-123")
	if err != nil {
		t.Fatalf("GenerateSubmitToken() error = %v", err)
	}

	if _, err := other.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService(testSecret)
	svc.leeway = 0

	now := time.Now().Add(-48 * time.Hour)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "device-123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SubmitTokenExpiry)),
		},
		Type: TokenTypeSubmit,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateToken(token); err != ErrExpiredToken {
		t.Errorf("ValidateToken() error = %v, want ErrExpiredToken", err)
	}
}

func TestValidateToken_RejectsUnsignedAlg(t *testing.T) {
	svc := NewJWTService(testSecret)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "device-123",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Type: TokenTypeSubmit,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("ValidateToken() accepted an unsigned token")
	}
}

func TestValidateToken_Rotation(t *testing.T) {
	oldSvc := NewJWTService("previous-secret-previous-secret!")
	token, err := oldSvc.GenerateSubmitToken("device-123")
	if err != nil {
		t.Fatalf("GenerateSubmitToken() error = %v", err)
	}

	// Rotated service validates tokens signed with either key.
	rotated := NewJWTServiceWithRotation(testSecret, "previous-secret-previous-secret!")
	claims, err := rotated.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() with previous secret error = %v", err)
	}
	if claims.Subject != "device-123" {
		t.Errorf("claims.Subject = %s, want device-123", claims.Subject)
	}

	newToken, err := rotated.GenerateSubmitToken("device-456")
	if err != nil {
		t.Fatalf("GenerateSubmitToken() error = %v", err)
	}
	if _, err := rotated.ValidateToken(newToken); err != nil {
		t.Errorf("ValidateToken() with current secret error = %v", err)
	}

	// After the rotation window closes the old key stops working.
	final := NewJWTServiceWithRotation(testSecret, "")
	if _, err := final.ValidateToken(token); err != ErrInvalidToken {
		t.Errorf("ValidateToken() error = %v, want ErrInvalidToken", err)
	}
}
