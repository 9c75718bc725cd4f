package service

import (
	"errors"
	"strings"
	"time"

	"github.com/bluewater-shop/storefront/internal/config"
	"github.com/bluewater-shop/storefront/internal/constants"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrAdminTokenInvalid   = errors.New("admin token invalid")
	ErrAdminSecretMissing  = errors.New("admin jwt secret missing")
	ErrAdminRoleInvalid    = errors.New("admin role invalid")
	ErrAdminTenantMismatch = errors.New("admin token not valid for tenant")
)

// AdminClaims are carried by admin API tokens. Tenant admins are scoped to
// TenantID; platform admins may act on any tenant.
type AdminClaims struct {
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsPlatform reports whether the token may act on any tenant.
func (c *AdminClaims) IsPlatform() bool {
	return c != nil && c.Role == constants.AdminRolePlatform
}

// CanAccessTenant reports whether the token may manage tenantID.
func (c *AdminClaims) CanAccessTenant(tenantID string) bool {
	if c == nil {
		return false
	}
	if c.IsPlatform() {
		return true
	}
	tenantID = strings.TrimSpace(tenantID)
	return tenantID != "" && c.TenantID == tenantID
}

// AdminTokenService signs and parses HS256 admin tokens.
type AdminTokenService struct {
	cfg config.JWTConfig
	now func() time.Time
}

// NewAdminTokenService creates the service.
func NewAdminTokenService(cfg config.JWTConfig) *AdminTokenService {
	return &AdminTokenService{cfg: cfg, now: time.Now}
}

// Issue signs a token for role. Tenant tokens require tenantID.
func (s *AdminTokenService) Issue(subject, role, tenantID string) (string, time.Time, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return "", time.Time{}, ErrAdminSecretMissing
	}
	role = strings.ToLower(strings.TrimSpace(role))
	tenantID = strings.TrimSpace(tenantID)
	switch role {
	case constants.AdminRolePlatform:
	case constants.AdminRoleTenant:
		if tenantID == "" {
			return "", time.Time{}, ErrTenantRequired
		}
	default:
		return "", time.Time{}, ErrAdminRoleInvalid
	}

	hours := s.cfg.ExpireHours
	if hours <= 0 {
		hours = 24
	}
	now := s.now()
	expiresAt := now.Add(time.Duration(hours) * time.Hour)
	claims := AdminClaims{
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strings.TrimSpace(subject),
			Issuer:    s.cfg.Issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.SecretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Parse verifies tokenString and returns its claims.
func (s *AdminTokenService) Parse(tokenString string) (*AdminClaims, error) {
	if strings.TrimSpace(s.cfg.SecretKey) == "" {
		return nil, ErrAdminSecretMissing
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}
	parser := jwt.NewParser(opts...)
	claims := &AdminClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrAdminTokenInvalid
	}
	switch claims.Role {
	case constants.AdminRolePlatform:
	case constants.AdminRoleTenant:
		if strings.TrimSpace(claims.TenantID) == "" {
			return nil, ErrAdminTokenInvalid
		}
	default:
		return nil, ErrAdminTokenInvalid
	}
	return claims, nil
}
