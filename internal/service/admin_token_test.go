package service

import (
	"errors"
	"testing"
	"time"

	"github.com/bluewater-shop/storefront/internal/config"
)

func TestAdminTokenRoundTrip(t *testing.T) {
	svc := NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret", Issuer: "bluewater-storefront", ExpireHours: 1})

	token, expiresAt, err := svc.Issue("ops@bluewater", "tenant", "t1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Fatalf("expiry should be in the future")
	}
	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if claims.TenantID != "t1" || claims.Subject != "ops@bluewater" || claims.IsPlatform() {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if !claims.CanAccessTenant("t1") || claims.CanAccessTenant("t2") {
		t.Fatalf("tenant token must be scoped to its tenant")
	}
}

func TestAdminTokenPlatformAccessesAnyTenant(t *testing.T) {
	svc := NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret"})
	token, _, err := svc.Issue("root", "platform", "")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	claims, err := svc.Parse(token)
	if err != nil || !claims.CanAccessTenant("any-tenant") {
		t.Fatalf("platform token should access any tenant: %+v %v", claims, err)
	}
}

func TestAdminTokenRejectsWrongSecretAndExpired(t *testing.T) {
	issuer := NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret", ExpireHours: 1})
	token, _, err := issuer.Issue("ops", "tenant", "t1")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	other := NewAdminTokenService(config.JWTConfig{SecretKey: "different"})
	if _, err := other.Parse(token); !errors.Is(err, ErrAdminTokenInvalid) {
		t.Fatalf("expected invalid token for wrong secret, got %v", err)
	}

	later := NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret"})
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := later.Parse(token); !errors.Is(err, ErrAdminTokenInvalid) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestAdminTokenIssueValidation(t *testing.T) {
	svc := NewAdminTokenService(config.JWTConfig{SecretKey: "s3cret"})
	if _, _, err := svc.Issue("ops", "tenant", ""); !errors.Is(err, ErrTenantRequired) {
		t.Fatalf("expected tenant required, got %v", err)
	}
	if _, _, err := svc.Issue("ops", "owner", "t1"); !errors.Is(err, ErrAdminRoleInvalid) {
		t.Fatalf("expected invalid role, got %v", err)
	}
	if _, _, err := NewAdminTokenService(config.JWTConfig{}).Issue("ops", "platform", ""); !errors.Is(err, ErrAdminSecretMissing) {
		t.Fatalf("expected missing secret, got %v", err)
	}
}
