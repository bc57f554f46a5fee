package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	token, err := GenerateToken(42, "ana@example.com", "s3cret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ParseToken(token, "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != 42 || claims.Email != "ana@example.com" || claims.Issuer != Issuer {
		t.Errorf("claims = %+v", claims)
	}
}

func TestParseTokenRejects(t *testing.T) {
	valid, err := GenerateToken(42, "", "s3cret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := GenerateToken(42, "", "s3cret", -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID:           42,
		RegisteredClaims: jwt.RegisteredClaims{Issuer: "someone-else"},
	}).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		token  string
		secret string
	}{
		{"wrong secret", valid, "other"},
		{"expired", expired, "s3cret"},
		{"foreign issuer", foreign, "s3cret"},
		{"garbage", "not-a-token", "s3cret"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token, tt.secret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("err = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

func TestGenerateTokenRequiresSecret(t *testing.T) {
	if _, err := GenerateToken(1, "", "", time.Hour); err == nil {
		t.Error("expected error for empty secret")
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "correct horse" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "correct horse") {
		t.Error("matching password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}
