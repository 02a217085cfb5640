package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/voucherbay/voucherbay-backend/pkg/config"
	"github.com/voucherbay/voucherbay-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "unit-test-secret",
		Issuer:            "voucherbay-test",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:             userID,
		Role:               enums.UserRoleUser,
		VerificationStatus: enums.VerificationStatusVerified,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	claims, err := ParseAccessToken(cfg, token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("user id mismatch: %s", claims.UserID)
	}
	if claims.Role != enums.UserRoleUser {
		t.Fatalf("role mismatch: %s", claims.Role)
	}
	if claims.VerificationStatus != enums.VerificationStatusVerified {
		t.Fatalf("verification status mismatch: %s", claims.VerificationStatus)
	}

	principal := claims.Principal()
	if principal.ID != userID || principal.IsAdmin() {
		t.Fatalf("unexpected principal: %+v", principal)
	}
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:             uuid.New(),
		Role:               enums.UserRoleAdmin,
		VerificationStatus: enums.VerificationStatusVerified,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	other := cfg
	other.Secret = "different-secret"
	if _, err := ParseAccessToken(other, token); err == nil {
		t.Fatal("expected parse failure with wrong secret")
	}
}

func TestMintAccessTokenExpired(t *testing.T) {
	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-2*time.Hour), AccessTokenPayload{
		UserID:             uuid.New(),
		Role:               enums.UserRoleUser,
		VerificationStatus: enums.VerificationStatusPending,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	if _, err := ParseAccessToken(cfg, token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestMintAccessTokenValidation(t *testing.T) {
	cfg := testJWTConfig()

	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:             uuid.New(),
		Role:               enums.UserRole("ghost"),
		VerificationStatus: enums.VerificationStatusVerified,
	}); err == nil {
		t.Fatal("expected invalid role to be rejected")
	}

	cfg.Secret = ""
	if _, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		UserID:             uuid.New(),
		Role:               enums.UserRoleUser,
		VerificationStatus: enums.VerificationStatusVerified,
	}); err == nil {
		t.Fatal("expected missing secret to be rejected")
	}
}
